package storage

// Push inserts values at the head (front) or the tail of the list and returns the new length.
// Waiters blocked on the key are woken up
func (tx *Txn) Push(key string, front bool, values ...string) (int, error) {
	e, err := tx.lookupOrCreate(key, TypeList, func() interface{} { return NewList() })
	if err != nil {
		return 0, err
	}

	l := e.list()
	for _, v := range values {
		if front {
			l.PushFront(v)
		} else {
			l.PushBack(v)
		}
	}

	tx.s.waiters.notify(key)
	return l.Len(), nil
}

// Pop removes up to count elements from the head or the tail of the list.
// Returns nil when the key does not exist
func (tx *Txn) Pop(key string, front bool, count int) ([]string, error) {
	tx.mustWrite()

	e, err := tx.lookup(key, TypeList)
	if err != nil || e == nil {
		return nil, err
	}

	l := e.list()
	out := make([]string, 0, min(count, l.Len()))
	for len(out) < count {
		var (
			v  string
			ok bool
		)
		if front {
			v, ok = l.PopFront()
		} else {
			v, ok = l.PopBack()
		}
		if !ok {
			break
		}
		out = append(out, v)
	}

	tx.removeIfEmpty(key, l.Len())
	return out, nil
}

// PopFirst pops one element from the first non-empty list of keys.
// Used by blocking pops, found is false when every list is empty
func (tx *Txn) PopFirst(keys []string, front bool) (key, value string, found bool, err error) {
	for _, k := range keys {
		vals, err := tx.Pop(k, front, 1)
		if err != nil {
			return "", "", false, err
		}
		if len(vals) == 1 {
			return k, vals[0], true, nil
		}
	}
	return "", "", false, nil
}

// Range returns the elements between start and stop inclusive, negative indexes count from the end
func (tx *Txn) Range(key string, start, stop int) ([]string, error) {
	e, err := tx.lookup(key, TypeList)
	if err != nil || e == nil {
		return []string{}, err
	}

	l := e.list()
	from, to, ok := normalizeRange(start, stop, l.Len())
	if !ok {
		return []string{}, nil
	}
	return l.Slice(from, to), nil
}

// Len returns the length of the list, 0 for a missing key
func (tx *Txn) Len(key string) (int, error) {
	e, err := tx.lookup(key, TypeList)
	if err != nil || e == nil {
		return 0, err
	}
	return e.list().Len(), nil
}

// Index returns the element at index, negative indexes count from the end
func (tx *Txn) Index(key string, index int) (string, bool, error) {
	e, err := tx.lookup(key, TypeList)
	if err != nil || e == nil {
		return "", false, err
	}

	l := e.list()
	if index < 0 {
		index += l.Len()
	}
	if index < 0 || index >= l.Len() {
		return "", false, nil
	}
	return l.At(index), true, nil
}

// normalizeRange converts inclusive start/stop with negative indexes into valid positions.
// ok is false when the range is empty
func normalizeRange(start, stop, n int) (int, int, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
