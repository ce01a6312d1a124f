package storage

import (
	"maps"
	"slices"
)

func newSet() interface{} {
	return make(map[string]struct{})
}

// SAdd adds members to the set and returns the number of new members
func (tx *Txn) SAdd(key string, members ...string) (int, error) {
	e, err := tx.lookupOrCreate(key, TypeSet, newSet)
	if err != nil {
		return 0, err
	}

	set := e.set()
	added := 0
	for _, m := range members {
		if _, ok := set[m]; !ok {
			set[m] = struct{}{}
			added++
		}
	}

	tx.removeIfEmpty(key, len(set))
	return added, nil
}

// SRem removes members from the set and returns the number of removed members
func (tx *Txn) SRem(key string, members ...string) (int, error) {
	tx.mustWrite()

	e, err := tx.lookup(key, TypeSet)
	if err != nil || e == nil {
		return 0, err
	}

	set := e.set()
	removed := 0
	for _, m := range members {
		if _, ok := set[m]; ok {
			delete(set, m)
			removed++
		}
	}

	tx.removeIfEmpty(key, len(set))
	return removed, nil
}

// SMembers returns the members sorted
func (tx *Txn) SMembers(key string) ([]string, error) {
	set, err := tx.setOf(key)
	if err != nil {
		return nil, err
	}
	return sortedMembers(set), nil
}

// SIsMember reports whether member belongs to the set
func (tx *Txn) SIsMember(key, member string) (bool, error) {
	set, err := tx.setOf(key)
	if err != nil {
		return false, err
	}
	_, ok := set[member]
	return ok, nil
}

// SCard returns the cardinality of the set
func (tx *Txn) SCard(key string) (int, error) {
	set, err := tx.setOf(key)
	return len(set), err
}

// SInter returns the intersection of all sets. Missing keys are empty sets
func (tx *Txn) SInter(keys ...string) ([]string, error) {
	sets, err := tx.setsOf(keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]struct{})
	for m := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			if _, ok := other[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			result[m] = struct{}{}
		}
	}
	return sortedMembers(result), nil
}

// SUnion returns the union of all sets
func (tx *Txn) SUnion(keys ...string) ([]string, error) {
	sets, err := tx.setsOf(keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]struct{})
	for _, set := range sets {
		maps.Copy(result, set)
	}
	return sortedMembers(result), nil
}

// SDiff returns the members of the first set that are not in any of the others
func (tx *Txn) SDiff(keys ...string) ([]string, error) {
	sets, err := tx.setsOf(keys)
	if err != nil {
		return nil, err
	}

	result := maps.Clone(sets[0])
	for _, other := range sets[1:] {
		for m := range other {
			delete(result, m)
		}
	}
	return sortedMembers(result), nil
}

// setOf returns the set at key, nil for a missing key
func (tx *Txn) setOf(key string) (map[string]struct{}, error) {
	e, err := tx.lookup(key, TypeSet)
	if err != nil || e == nil {
		return nil, err
	}
	return e.set(), nil
}

// setsOf resolves every key before computing anything, so a wrong type fails the whole call
func (tx *Txn) setsOf(keys []string) ([]map[string]struct{}, error) {
	sets := make([]map[string]struct{}, len(keys))
	for i, key := range keys {
		set, err := tx.setOf(key)
		if err != nil {
			return nil, err
		}
		sets[i] = set
	}
	return sets, nil
}

func sortedMembers(set map[string]struct{}) []string {
	out := slices.Collect(maps.Keys(set))
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}
