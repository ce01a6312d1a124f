package storage

// List is a double-ended queue of strings.
// head holds the front elements in reverse order, tail holds the rest in order,
// so pushes and pops at both ends are amortized O(1)
type List struct {
	head []string
	tail []string
}

// NewList returns an empty list
func NewList() *List {
	return &List{}
}

// Len returns the number of elements
func (l *List) Len() int {
	return len(l.head) + len(l.tail)
}

// PushFront inserts v before the first element
func (l *List) PushFront(v string) {
	l.head = append(l.head, v)
}

// PushBack inserts v after the last element
func (l *List) PushBack(v string) {
	l.tail = append(l.tail, v)
}

// PopFront removes and returns the first element
func (l *List) PopFront() (string, bool) {
	if len(l.head) == 0 {
		if len(l.tail) == 0 {
			return "", false
		}
		l.rebalance(true)
	}

	n := len(l.head) - 1
	v := l.head[n]
	l.head[n] = ""
	l.head = l.head[:n]
	return v, true
}

// PopBack removes and returns the last element
func (l *List) PopBack() (string, bool) {
	if len(l.tail) == 0 {
		if len(l.head) == 0 {
			return "", false
		}
		l.rebalance(false)
	}

	n := len(l.tail) - 1
	v := l.tail[n]
	l.tail[n] = ""
	l.tail = l.tail[:n]
	return v, true
}

// At returns the element at position i, 0 is the front
func (l *List) At(i int) string {
	if i < len(l.head) {
		return l.head[len(l.head)-1-i]
	}
	return l.tail[i-len(l.head)]
}

// Slice returns elements from start to stop inclusive. Bounds must be normalized
func (l *List) Slice(start, stop int) []string {
	out := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, l.At(i))
	}
	return out
}

// rebalance moves half of the elements to the empty side.
// toFront is true when head is empty and must be refilled from tail
func (l *List) rebalance(toFront bool) {
	all := l.Slice(0, l.Len()-1)
	mid := (len(all) + 1) / 2

	front, back := all[:mid], all[mid:]
	if !toFront {
		// keep at least one element on the back side
		mid = len(all) / 2
		front, back = all[:mid], all[mid:]
	}

	l.head = make([]string, 0, len(front))
	for i := len(front) - 1; i >= 0; i-- {
		l.head = append(l.head, front[i])
	}
	l.tail = append(make([]string, 0, len(back)), back...)
}
