package storage

import "sync"

// Waiter is a registration for pushes to a set of keys.
// C receives a signal after any of the keys got new elements; signals are coalesced
type Waiter struct {
	C    chan struct{}
	keys []string
	reg  *waitRegistry
	once sync.Once
}

// Close unregisters the waiter. It is safe to call more than once
func (w *Waiter) Close() {
	w.once.Do(func() {
		w.reg.remove(w)
	})
}

type waitRegistry struct {
	mu      sync.Mutex
	waiters map[string]map[*Waiter]struct{}
}

func newWaitRegistry() *waitRegistry {
	return &waitRegistry{waiters: make(map[string]map[*Waiter]struct{})}
}

func (r *waitRegistry) add(keys []string) *Waiter {
	w := &Waiter{
		C:    make(chan struct{}, 1),
		keys: keys,
		reg:  r,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		set, ok := r.waiters[key]
		if !ok {
			set = make(map[*Waiter]struct{})
			r.waiters[key] = set
		}
		set[w] = struct{}{}
	}
	return w
}

func (r *waitRegistry) remove(w *Waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range w.keys {
		set := r.waiters[key]
		delete(set, w)
		if len(set) == 0 {
			delete(r.waiters, key)
		}
	}
}

// notify wakes every waiter of key without blocking
func (r *waitRegistry) notify(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for w := range r.waiters[key] {
		select {
		case w.C <- struct{}{}:
		default:
		}
	}
}

// waiting returns the number of registered waiters of key
func (r *waitRegistry) waiting(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters[key])
}

// NewWaiter registers interest in pushes to keys.
// Callers must register before checking the lists, otherwise a push in between is lost
func (s *ShardedMapStorage) NewWaiter(keys ...string) *Waiter {
	return s.waiters.add(keys)
}
