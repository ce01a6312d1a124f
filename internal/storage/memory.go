package storage

import "unsafe"

const (
	entryOverhead   = int64(unsafe.Sizeof(Entity{})) + 48 // map bucket share + pointer
	elementOverhead = 16
)

// MemoryUsage returns an estimate of the bytes held by keys and values.
// It walks every shard under a read lock, so it is meant for INFO, not hot paths
func (s *ShardedMapStorage) MemoryUsage() int64 {
	var total int64
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, e := range sh.data {
			total += int64(len(key)) + entryOverhead + e.size()
		}
		total += int64(len(sh.expires)) * 16
		sh.mu.RUnlock()
	}
	return total
}

func (e *Entity) size() int64 {
	var n int64
	switch e.Type {
	case TypeString:
		n = int64(len(e.str()))
	case TypeList:
		l := e.list()
		for i := 0; i < l.Len(); i++ {
			n += int64(len(l.At(i))) + elementOverhead
		}
	case TypeSet:
		for m := range e.set() {
			n += int64(len(m)) + elementOverhead
		}
	case TypeHash:
		for f, v := range e.hash() {
			n += int64(len(f)+len(v)) + 2*elementOverhead
		}
	case TypeZSet:
		for _, m := range e.zset().items {
			// member is stored in the slice and in the map
			n += 2*int64(len(m.Member)) + 8 + 2*elementOverhead
		}
	}
	return n
}
