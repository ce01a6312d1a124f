package storage

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ZMember is a sorted set element
type ZMember struct {
	Member string
	Score  float64
}

func (a ZMember) less(b ZMember) bool {
	return a.Score < b.Score || (a.Score == b.Score && a.Member < b.Member)
}

// SortedSet keeps members ordered by (score asc, member asc).
// items is the ordered view, scores gives O(1) lookup by member
type SortedSet struct {
	items  []ZMember
	scores map[string]float64
}

// NewSortedSet returns an empty sorted set
func NewSortedSet() *SortedSet {
	return &SortedSet{scores: make(map[string]float64)}
}

// Len returns the number of members
func (z *SortedSet) Len() int {
	return len(z.items)
}

// Score returns the score of member
func (z *SortedSet) Score(member string) (float64, bool) {
	score, ok := z.scores[member]
	return score, ok
}

// Add inserts member or moves it to a new score. Returns true if the member is new
func (z *SortedSet) Add(member string, score float64) bool {
	old, exists := z.scores[member]
	if exists {
		if old == score {
			return false
		}
		z.remove(ZMember{Member: member, Score: old})
	}

	m := ZMember{Member: member, Score: score}
	i := z.search(m)
	z.items = append(z.items, ZMember{})
	copy(z.items[i+1:], z.items[i:])
	z.items[i] = m
	z.scores[member] = score
	return !exists
}

// Remove deletes member. Returns false if it was absent
func (z *SortedSet) Remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	z.remove(ZMember{Member: member, Score: score})
	delete(z.scores, member)
	return true
}

// Rank returns the 0-based ascending position of member
func (z *SortedSet) Rank(member string) (int, bool) {
	score, ok := z.scores[member]
	if !ok {
		return 0, false
	}
	return z.search(ZMember{Member: member, Score: score}), true
}

// RevRank returns the position of member in descending score order,
// members with equal scores keep ascending member order
func (z *SortedSet) RevRank(member string) (int, bool) {
	rank, ok := z.Rank(member)
	if !ok {
		return 0, false
	}

	score := z.items[rank].Score
	groupStart := z.firstAtLeast(score, false)
	groupEnd := z.firstAtLeast(score, true)
	greater := len(z.items) - groupEnd
	return greater + (rank - groupStart), true
}

// Range returns members between the inclusive rank bounds
func (z *SortedSet) Range(start, stop int, rev bool) []ZMember {
	from, to, ok := normalizeRange(start, stop, len(z.items))
	if !ok {
		return []ZMember{}
	}

	if !rev {
		return append([]ZMember(nil), z.items[from:to+1]...)
	}

	out := make([]ZMember, 0, to-from+1)
	pos := 0
	walkDesc(z.items, func(m ZMember) bool {
		if pos >= from {
			out = append(out, m)
		}
		pos++
		return pos <= to
	})
	return out
}

// RangeByScore returns members with score within [min, max], honouring exclusive bounds.
// offset skips matches, a negative count means no limit
func (z *SortedSet) RangeByScore(min, max ScoreBound, rev bool, offset, count int) []ZMember {
	lo := z.firstAtLeast(min.Value, min.Exclusive)
	hi := z.firstAtLeast(max.Value, !max.Exclusive)
	if lo >= hi {
		return []ZMember{}
	}

	matched := z.items[lo:hi]
	out := make([]ZMember, 0)
	if offset < 0 || offset >= len(matched) || count == 0 {
		return out
	}

	take := func(m ZMember) bool {
		if offset > 0 {
			offset--
			return true
		}
		out = append(out, m)
		return count < 0 || len(out) < count
	}

	if rev {
		walkDesc(matched, take)
		return out
	}
	for _, m := range matched {
		if !take(m) {
			break
		}
	}
	return out
}

// search returns the position of m, or where it would be inserted
func (z *SortedSet) search(m ZMember) int {
	return sort.Search(len(z.items), func(i int) bool {
		return !z.items[i].less(m)
	})
}

// firstAtLeast returns the first index with score >= value, or > value when strict
func (z *SortedSet) firstAtLeast(value float64, strict bool) int {
	return sort.Search(len(z.items), func(i int) bool {
		if strict {
			return z.items[i].Score > value
		}
		return z.items[i].Score >= value
	})
}

func (z *SortedSet) remove(m ZMember) {
	i := z.search(m)
	copy(z.items[i:], z.items[i+1:])
	z.items[len(z.items)-1] = ZMember{}
	z.items = z.items[:len(z.items)-1]
}

// walkDesc visits items ordered by score descending, keeping ascending member order
// inside each group of equal scores. Stops when fn returns false
func walkDesc(items []ZMember, fn func(m ZMember) bool) {
	end := len(items)
	for end > 0 {
		score := items[end-1].Score
		start := sort.Search(end, func(i int) bool {
			return items[i].Score >= score
		})
		for _, m := range items[start:end] {
			if !fn(m) {
				return
			}
		}
		end = start
	}
}

// ScoreBound is one end of a score range
type ScoreBound struct {
	Value     float64
	Exclusive bool
}

// ParseScoreBound parses "1.5", "(1.5", "-inf" and "+inf"
func ParseScoreBound(s string) (ScoreBound, error) {
	var b ScoreBound
	if strings.HasPrefix(s, "(") {
		b.Exclusive = true
		s = s[1:]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return ScoreBound{}, ErrInvalidBound
	}
	b.Value = v
	return b, nil
}
