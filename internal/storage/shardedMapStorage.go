package storage

import (
	"errors"
	"math/bits"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ShardedMapStorage is a thread-safe typed key-value storage,
// divided into segments (shards) to reduce contention for locking.
// A shard lock guards every key hashed to it, so the shard table doubles as the per-key lock table
type ShardedMapStorage struct {
	shards    []*shard
	shardMask uint64
	allMask   uint64
	now       func() time.Time
	waiters   *waitRegistry
}

// Option configures a ShardedMapStorage
type Option func(*ShardedMapStorage)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *ShardedMapStorage) {
		s.now = now
	}
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64.
func NewShardedMapStorage(requestedShards uint, opts ...Option) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, errors.New("requested shards must be a power of 2")
	}

	if requestedShards > 64 {
		return nil, errors.New("requested shards must be less or equal than 64")
	}

	s := &ShardedMapStorage{
		shards:    make([]*shard, requestedShards),
		shardMask: uint64(requestedShards - 1),
		allMask:   ^uint64(0) >> (64 - requestedShards),
		now:       time.Now,
		waiters:   newWaitRegistry(),
	}

	for i := range s.shards {
		s.shards[i] = newShard()
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// getShardIndex returns index of shard by key
func (s *ShardedMapStorage) getShardIndex(key string) uint64 {
	return xxhash.Sum64String(key) & s.shardMask
}

// shardSet returns the bitmask of shards owning keys
func (s *ShardedMapStorage) shardSet(keys []string) uint64 {
	var mask uint64
	for _, key := range keys {
		mask |= 1 << s.getShardIndex(key)
	}
	return mask
}

// begin locks the shards in mask in ascending index order.
// Every multi-shard caller goes through here, so the order is global and lock cycles are impossible
func (s *ShardedMapStorage) begin(mask uint64, write bool) *Txn {
	for m := mask; m != 0; m &= m - 1 {
		sh := s.shards[bits.TrailingZeros64(m)]
		if write {
			sh.mu.Lock()
		} else {
			sh.mu.RLock()
		}
	}

	return &Txn{
		s:     s,
		mask:  mask,
		write: write,
		now:   s.now().UnixNano(),
	}
}

// end releases the shards in descending order
func (s *ShardedMapStorage) end(tx *Txn) {
	for m := tx.mask; m != 0; {
		i := 63 - bits.LeadingZeros64(m)
		m &^= 1 << i
		if tx.write {
			s.shards[i].mu.Unlock()
		} else {
			s.shards[i].mu.RUnlock()
		}
	}
	tx.mask = 0
}

func (s *ShardedMapStorage) run(mask uint64, write bool, fn func(tx *Txn) error) error {
	tx := s.begin(mask, write)
	err := func() error {
		defer s.end(tx)
		return fn(tx)
	}()

	if len(tx.expired) > 0 {
		s.purge(tx.expired)
	}
	return err
}

// View runs fn with read access to keys
func (s *ShardedMapStorage) View(keys []string, fn func(tx *Txn) error) error {
	return s.run(s.shardSet(keys), false, fn)
}

// Update runs fn with exclusive access to keys
func (s *ShardedMapStorage) Update(keys []string, fn func(tx *Txn) error) error {
	return s.run(s.shardSet(keys), true, fn)
}

// ViewAll runs fn with read access to every shard
func (s *ShardedMapStorage) ViewAll(fn func(tx *Txn) error) error {
	return s.run(s.allMask, false, fn)
}

// UpdateAll runs fn with exclusive access to every shard
func (s *ShardedMapStorage) UpdateAll(fn func(tx *Txn) error) error {
	return s.run(s.allMask, true, fn)
}

// purge removes keys found expired under a read lock.
// checking again, can be changed while waiting for the lock
func (s *ShardedMapStorage) purge(keys []string) {
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, key := range keys {
		sh := s.shards[s.getShardIndex(key)]
		sh.mu.Lock()
		if sh.isExpired(key, s.now().UnixNano()) {
			sh.remove(key)
		}
		sh.mu.Unlock()
	}
}

// Get returns the string value and true if the key is found
func (s *ShardedMapStorage) Get(key string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := s.View([]string{key}, func(tx *Txn) error {
		var err error
		val, ok, err = tx.Get(key)
		return err
	})
	return val, ok, err
}

// Set writes the value based on the options. Returns true if recording has been performed
func (s *ShardedMapStorage) Set(key, value string, options SetOptions) bool {
	var ok bool
	_ = s.Update([]string{key}, func(tx *Txn) error {
		ok = tx.Set(key, value, options)
		return nil
	})
	return ok
}

// Delete deletes the key. Returns true if the key existed and was deleted
func (s *ShardedMapStorage) Delete(key string) bool {
	var ok bool
	_ = s.Update([]string{key}, func(tx *Txn) error {
		ok = tx.Delete(key)
		return nil
	})
	return ok
}

// KeyCount returns the number of live keys over all shards
func (s *ShardedMapStorage) KeyCount() int {
	now := s.now().UnixNano()
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += sh.liveCount(now)
		sh.mu.RUnlock()
	}
	return total
}

// ExpiresCount returns the number of live keys with a TTL
func (s *ShardedMapStorage) ExpiresCount() int {
	now := s.now().UnixNano()
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, exp := range sh.expires {
			if now <= exp {
				total++
			}
		}
		sh.mu.RUnlock()
	}
	return total
}

// DeleteExpired randomly selects a limit of keys from each shard and delete if his TTL has expired.
// Candidates are collected under a read lock, each deletion takes the write lock for one key only
func (s *ShardedMapStorage) DeleteExpired(limit int) SweepStats {
	var stats SweepStats

	for _, sh := range s.shards {
		now := s.now().UnixNano()

		sh.mu.RLock()
		checked := 0
		var candidates []string
		// go map iteration order is random, which gives the sampling
		for key, exp := range sh.expires {
			if checked >= limit {
				break
			}
			checked++
			if now > exp {
				candidates = append(candidates, key)
			}
		}
		sh.mu.RUnlock()

		stats.Checked += checked
		for _, key := range candidates {
			sh.mu.Lock()
			if sh.isExpired(key, now) {
				sh.remove(key)
				stats.Expired++
			}
			sh.mu.Unlock()
		}
	}

	return stats
}
