package storage

import (
	"slices"

	"github.com/eternalApril/moonkv/internal/glob"
)

// Delete removes the key. Returns true if a live key was removed
func (tx *Txn) Delete(key string) bool {
	tx.mustWrite()

	if tx.entity(key) == nil {
		return false
	}
	tx.shard(key).remove(key)
	return true
}

// Exists reports whether the key is present and not expired
func (tx *Txn) Exists(key string) bool {
	return tx.entity(key) != nil
}

// Type returns the type of value stored at key, "none" for absent keys
func (tx *Txn) Type(key string) string {
	e := tx.entity(key)
	if e == nil {
		return "none"
	}
	return e.Type.String()
}

// Keys returns the sorted live keys matching a glob pattern in the locked shards
func (tx *Txn) Keys(pattern string) []string {
	var keys []string

	tx.lockedShards(func(sh *shard) {
		for key := range sh.data {
			if sh.isExpired(key, tx.now) {
				continue
			}
			if pattern == "*" || glob.Match(pattern, key) {
				keys = append(keys, key)
			}
		}
	})

	slices.Sort(keys)
	return keys
}

// KeyCount returns the number of live keys in the locked shards
func (tx *Txn) KeyCount() int {
	n := 0
	tx.lockedShards(func(sh *shard) {
		n += sh.liveCount(tx.now)
	})
	return n
}

// Flush drops every key of the locked shards
func (tx *Txn) Flush() {
	tx.mustWrite()

	tx.lockedShards(func(sh *shard) {
		clear(sh.data)
		clear(sh.expires)
	})
}
