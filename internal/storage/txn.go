package storage

import "math/bits"

// Txn is a set of locked shards. All typed operations run through a Txn,
// so everything done inside one callback is atomic with respect to the locked keys.
// A Txn must not be used after its callback returns
type Txn struct {
	s       *ShardedMapStorage
	mask    uint64
	write   bool
	now     int64    // time snapshot for the whole transaction
	expired []string // keys found expired under read locks, purged after unlock
}

// Writable reports whether the transaction holds write locks
func (tx *Txn) Writable() bool {
	return tx.write
}

// Covers reports whether every key belongs to a locked shard
func (tx *Txn) Covers(keys ...string) bool {
	need := tx.s.shardSet(keys)
	return need&tx.mask == need
}

// CoversAll reports whether the transaction locked the whole keyspace
func (tx *Txn) CoversAll() bool {
	return tx.mask == tx.s.allMask
}

func (tx *Txn) shard(key string) *shard {
	idx := tx.s.getShardIndex(key)
	if tx.mask&(1<<idx) == 0 {
		panic("storage: key " + key + " accessed outside of its transaction")
	}
	return tx.s.shards[idx]
}

func (tx *Txn) mustWrite() {
	if !tx.write {
		panic("storage: write operation in read-only transaction")
	}
}

// lockedShards iterates over the shards held by the transaction
func (tx *Txn) lockedShards(fn func(sh *shard)) {
	for m := tx.mask; m != 0; m &= m - 1 {
		fn(tx.s.shards[bits.TrailingZeros64(m)])
	}
}

// entity returns the live entity stored at key or nil.
// Expired keys are removed right away under write locks and deferred under read locks
func (tx *Txn) entity(key string) *Entity {
	sh := tx.shard(key)
	e, ok := sh.data[key]
	if !ok {
		return nil
	}

	if sh.isExpired(key, tx.now) {
		if tx.write {
			sh.remove(key)
		} else {
			tx.expired = append(tx.expired, key)
		}
		return nil
	}

	return e
}

// lookup returns the entity at key if it has type t, nil if the key is absent
func (tx *Txn) lookup(key string, t DataType) (*Entity, error) {
	e := tx.entity(key)
	if e == nil {
		return nil, nil
	}
	if e.Type != t {
		return nil, ErrWrongType
	}
	return e, nil
}

// lookupOrCreate returns the entity at key, creating an empty one of type t when absent
func (tx *Txn) lookupOrCreate(key string, t DataType, empty func() interface{}) (*Entity, error) {
	tx.mustWrite()

	e, err := tx.lookup(key, t)
	if err != nil || e != nil {
		return e, err
	}

	e = &Entity{Type: t, Value: empty()}
	tx.shard(key).data[key] = e
	return e, nil
}

// put stores e at key; the existing TTL is kept only if keepTTL is set
func (tx *Txn) put(key string, e *Entity, keepTTL bool) {
	tx.mustWrite()
	sh := tx.shard(key)
	sh.data[key] = e
	if !keepTTL {
		delete(sh.expires, key)
	}
}

// removeIfEmpty deletes aggregate keys that lost their last element
func (tx *Txn) removeIfEmpty(key string, n int) {
	if n == 0 {
		tx.shard(key).remove(key)
	}
}
