package storage

import (
	"math"
	"strconv"
)

// Get returns the string value and true if the key is found
func (tx *Txn) Get(key string) (string, bool, error) {
	e, err := tx.lookup(key, TypeString)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.str(), true, nil
}

// Set writes the value based on the options. Returns true if recording has been performed.
// Set replaces a value of any type, like the SET command does
func (tx *Txn) Set(key, value string, options SetOptions) bool {
	tx.mustWrite()

	exists := tx.entity(key) != nil
	if (options.NX && exists) || (options.XX && !exists) {
		return false
	}

	tx.put(key, &Entity{Type: TypeString, Value: value}, options.KeepTTL)

	switch {
	case !options.ExpireAt.IsZero():
		tx.setExpiry(key, options.ExpireAt.UnixNano())
	case options.TTL > 0:
		tx.setExpiry(key, tx.now+int64(options.TTL))
	}

	return true
}

// GetDel returns the string value and deletes the key
func (tx *Txn) GetDel(key string) (string, bool, error) {
	val, ok, err := tx.Get(key)
	if err != nil || !ok {
		return "", false, err
	}
	tx.Delete(key)
	return val, true, nil
}

// IncrBy adds delta to the integer stored at key. A missing key counts as 0.
// The TTL of an existing key is kept
func (tx *Txn) IncrBy(key string, delta int64) (int64, error) {
	tx.mustWrite()

	e, err := tx.lookup(key, TypeString)
	if err != nil {
		return 0, err
	}

	var current int64
	if e != nil {
		current, err = strconv.ParseInt(e.str(), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
	}

	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return 0, ErrOverflow
	}

	current += delta
	tx.put(key, &Entity{Type: TypeString, Value: strconv.FormatInt(current, 10)}, true)
	return current, nil
}

// IncrByFloat adds delta to the float stored at key. A missing key counts as 0
func (tx *Txn) IncrByFloat(key string, delta float64) (float64, error) {
	tx.mustWrite()

	e, err := tx.lookup(key, TypeString)
	if err != nil {
		return 0, err
	}

	var current float64
	if e != nil {
		current, err = strconv.ParseFloat(e.str(), 64)
		if err != nil || math.IsNaN(current) || math.IsInf(current, 0) {
			return 0, ErrNotFloat
		}
	}

	current += delta
	if math.IsNaN(current) || math.IsInf(current, 0) {
		return 0, ErrNaN
	}

	tx.put(key, &Entity{Type: TypeString, Value: strconv.FormatFloat(current, 'f', -1, 64)}, true)
	return current, nil
}

// Append appends value to the string at key and returns the new length
func (tx *Txn) Append(key, value string) (int, error) {
	tx.mustWrite()

	e, err := tx.lookup(key, TypeString)
	if err != nil {
		return 0, err
	}

	newValue := value
	if e != nil {
		newValue = e.str() + value
	}
	tx.put(key, &Entity{Type: TypeString, Value: newValue}, true)
	return len(newValue), nil
}

// StrLen returns the length of the string stored at key
func (tx *Txn) StrLen(key string) (int, error) {
	val, _, err := tx.Get(key)
	return len(val), err
}

// CompareAndSwap replaces the value only if the current one equals expected.
// A missing key never matches. On success the TTL is cleared, like a plain SET
func (tx *Txn) CompareAndSwap(key, expected, value string) (bool, error) {
	tx.mustWrite()

	current, ok, err := tx.Get(key)
	if err != nil || !ok || current != expected {
		return false, err
	}

	tx.put(key, &Entity{Type: TypeString, Value: value}, false)
	return true, nil
}
