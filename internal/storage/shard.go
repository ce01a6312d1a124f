package storage

import "sync"

// shard is one lock domain of the storage
type shard struct {
	mu      sync.RWMutex
	data    map[string]*Entity // key - value
	expires map[string]int64   // key - expires time nanoseconds
}

func newShard() *shard {
	return &shard{
		data:    make(map[string]*Entity),
		expires: make(map[string]int64),
	}
}

// isExpired reports whether key has a deadline in the past
func (sh *shard) isExpired(key string, now int64) bool {
	exp, ok := sh.expires[key]
	return ok && now > exp
}

// remove drops the key and its expiry entry together
func (sh *shard) remove(key string) {
	delete(sh.data, key)
	delete(sh.expires, key)
}

// liveCount counts keys that are not expired yet
func (sh *shard) liveCount(now int64) int {
	n := len(sh.data)
	for _, exp := range sh.expires {
		if now > exp {
			n--
		}
	}
	return n
}
