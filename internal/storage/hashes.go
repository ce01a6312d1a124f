package storage

import (
	"maps"
	"math"
	"slices"
	"strconv"
)

func newHash() interface{} {
	return make(map[string]string)
}

// HSet sets fields of the hash and returns the number of new fields
func (tx *Txn) HSet(key string, fields map[string]string) (int, error) {
	e, err := tx.lookupOrCreate(key, TypeHash, newHash)
	if err != nil {
		return 0, err
	}

	h := e.hash()
	added := 0
	for f, v := range fields {
		if _, ok := h[f]; !ok {
			added++
		}
		h[f] = v
	}

	tx.removeIfEmpty(key, len(h))
	return added, nil
}

// HGet returns the value of field
func (tx *Txn) HGet(key, field string) (string, bool, error) {
	h, err := tx.hashOf(key)
	if err != nil {
		return "", false, err
	}
	v, ok := h[field]
	return v, ok, nil
}

// HGetAll returns a copy of the hash, empty for a missing key
func (tx *Txn) HGetAll(key string) (map[string]string, error) {
	h, err := tx.hashOf(key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(h))
	maps.Copy(out, h)
	return out, nil
}

// HIncrBy adds delta to the integer stored in field, a missing field counts as 0
func (tx *Txn) HIncrBy(key, field string, delta int64) (int64, error) {
	e, err := tx.lookupOrCreate(key, TypeHash, newHash)
	if err != nil {
		return 0, err
	}

	h := e.hash()
	var current int64
	if v, ok := h[field]; ok {
		current, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, ErrHashNotInteger
		}
	}

	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		tx.removeIfEmpty(key, len(h))
		return 0, ErrOverflow
	}

	current += delta
	h[field] = strconv.FormatInt(current, 10)
	return current, nil
}

// HExists reports whether field exists in the hash
func (tx *Txn) HExists(key, field string) (bool, error) {
	h, err := tx.hashOf(key)
	if err != nil {
		return false, err
	}
	_, ok := h[field]
	return ok, nil
}

// HDel removes fields and returns how many existed
func (tx *Txn) HDel(key string, fields ...string) (int, error) {
	tx.mustWrite()

	h, err := tx.hashOf(key)
	if err != nil || h == nil {
		return 0, err
	}

	removed := 0
	for _, f := range fields {
		if _, ok := h[f]; ok {
			delete(h, f)
			removed++
		}
	}

	tx.removeIfEmpty(key, len(h))
	return removed, nil
}

// HLen returns the number of fields
func (tx *Txn) HLen(key string) (int, error) {
	h, err := tx.hashOf(key)
	return len(h), err
}

// HKeys returns the field names sorted
func (tx *Txn) HKeys(key string) ([]string, error) {
	h, err := tx.hashOf(key)
	if err != nil {
		return nil, err
	}
	keys := slices.Sorted(maps.Keys(h))
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// HVals returns the values ordered by their field names
func (tx *Txn) HVals(key string) ([]string, error) {
	keys, err := tx.HKeys(key)
	if err != nil {
		return nil, err
	}
	h, _ := tx.hashOf(key)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = h[k]
	}
	return vals, nil
}

func (tx *Txn) hashOf(key string) (map[string]string, error) {
	e, err := tx.lookup(key, TypeHash)
	if err != nil || e == nil {
		return nil, err
	}
	return e.hash(), nil
}
