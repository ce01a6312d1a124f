package storage

import "time"

// setExpiry stores an absolute deadline in nanoseconds
func (tx *Txn) setExpiry(key string, deadline int64) {
	tx.shard(key).expires[key] = deadline
}

func (tx *Txn) clearExpiry(key string) {
	delete(tx.shard(key).expires, key)
}

// Expire sets a relative TTL. A non-positive ttl deletes the key right away.
// Returns false if the key does not exist
func (tx *Txn) Expire(key string, ttl time.Duration) bool {
	return tx.ExpireAt(key, time.Unix(0, tx.now).Add(ttl))
}

// ExpireAt sets an absolute deadline. A deadline in the past deletes the key
func (tx *Txn) ExpireAt(key string, at time.Time) bool {
	tx.mustWrite()

	if tx.entity(key) == nil {
		return false
	}

	deadline := at.UnixNano()
	if deadline <= tx.now {
		tx.shard(key).remove(key)
		return true
	}

	tx.setExpiry(key, deadline)
	return true
}

// Persist removes the TTL. Returns true if the key had one
func (tx *Txn) Persist(key string) bool {
	tx.mustWrite()

	if tx.entity(key) == nil {
		return false
	}

	sh := tx.shard(key)
	if _, ok := sh.expires[key]; !ok {
		return false
	}
	delete(sh.expires, key)
	return true
}

// Expiry returns the remaining lifetime of the key with its status
func (tx *Txn) Expiry(key string) (time.Duration, ExpiryStatus) {
	if tx.entity(key) == nil {
		return 0, ExpNotFound
	}

	exp, ok := tx.shard(key).expires[key]
	if !ok {
		return 0, ExpNoTimeout
	}

	return time.Duration(exp - tx.now), ExpActive
}
