package storage

import "math"

// ZAddOptions controls ZADD behaviour
type ZAddOptions struct {
	NX bool // only add new members
	XX bool // only update existing members
	CH bool // count changed members in the result, not only added ones
}

func newSortedSet() interface{} {
	return NewSortedSet()
}

// ZAdd adds or updates members. Returns the number of added members,
// or added plus updated members when CH is set
func (tx *Txn) ZAdd(key string, opts ZAddOptions, members ...ZMember) (int, error) {
	for _, m := range members {
		if math.IsNaN(m.Score) {
			return 0, ErrNotFloat
		}
	}

	e, err := tx.lookupOrCreate(key, TypeZSet, newSortedSet)
	if err != nil {
		return 0, err
	}

	z := e.zset()
	added, changed := 0, 0
	for _, m := range members {
		old, exists := z.Score(m.Member)
		if (opts.NX && exists) || (opts.XX && !exists) {
			continue
		}
		if z.Add(m.Member, m.Score) {
			added++
		} else if old != m.Score {
			changed++
		}
	}

	tx.removeIfEmpty(key, z.Len())
	if opts.CH {
		return added + changed, nil
	}
	return added, nil
}

// ZIncrBy adds delta to the score of member, creating it with score delta when absent
func (tx *Txn) ZIncrBy(key string, delta float64, member string) (float64, error) {
	e, err := tx.lookupOrCreate(key, TypeZSet, newSortedSet)
	if err != nil {
		return 0, err
	}

	z := e.zset()
	score, _ := z.Score(member)
	score += delta
	if math.IsNaN(score) {
		tx.removeIfEmpty(key, z.Len())
		return 0, ErrNaN
	}

	z.Add(member, score)
	return score, nil
}

// ZScore returns the score of member
func (tx *Txn) ZScore(key, member string) (float64, bool, error) {
	z, err := tx.zsetOf(key)
	if err != nil || z == nil {
		return 0, false, err
	}
	score, ok := z.Score(member)
	return score, ok, nil
}

// ZRank returns the ascending rank of member, or the descending one when rev is set
func (tx *Txn) ZRank(key, member string, rev bool) (int, bool, error) {
	z, err := tx.zsetOf(key)
	if err != nil || z == nil {
		return 0, false, err
	}
	if rev {
		rank, ok := z.RevRank(member)
		return rank, ok, nil
	}
	rank, ok := z.Rank(member)
	return rank, ok, nil
}

// ZRange returns members between inclusive rank bounds
func (tx *Txn) ZRange(key string, start, stop int, rev bool) ([]ZMember, error) {
	z, err := tx.zsetOf(key)
	if err != nil || z == nil {
		return []ZMember{}, err
	}
	return z.Range(start, stop, rev), nil
}

// ZRangeByScore returns members with scores between min and max
func (tx *Txn) ZRangeByScore(key string, min, max ScoreBound, rev bool, offset, count int) ([]ZMember, error) {
	z, err := tx.zsetOf(key)
	if err != nil || z == nil {
		return []ZMember{}, err
	}
	return z.RangeByScore(min, max, rev, offset, count), nil
}

// ZCard returns the number of members
func (tx *Txn) ZCard(key string) (int, error) {
	z, err := tx.zsetOf(key)
	if err != nil || z == nil {
		return 0, err
	}
	return z.Len(), nil
}

// ZRem removes members and returns how many were present
func (tx *Txn) ZRem(key string, members ...string) (int, error) {
	tx.mustWrite()

	z, err := tx.zsetOf(key)
	if err != nil || z == nil {
		return 0, err
	}

	removed := 0
	for _, m := range members {
		if z.Remove(m) {
			removed++
		}
	}

	tx.removeIfEmpty(key, z.Len())
	return removed, nil
}

func (tx *Txn) zsetOf(key string) (*SortedSet, error) {
	e, err := tx.lookup(key, TypeZSet)
	if err != nil || e == nil {
		return nil, err
	}
	return e.zset(), nil
}
