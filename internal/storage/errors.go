package storage

import "errors"

var (
	// ErrWrongType is returned when the key holds a value of another type
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

	// ErrNotInteger is returned when a string value cannot be parsed as int64
	ErrNotInteger = errors.New("value is not an integer or out of range")

	// ErrNotFloat is returned when a string value cannot be parsed as float64
	ErrNotFloat = errors.New("value is not a valid float")

	// ErrHashNotInteger is returned when a hash field cannot be parsed as int64
	ErrHashNotInteger = errors.New("hash value is not an integer")

	// ErrOverflow is returned when an increment would overflow int64
	ErrOverflow = errors.New("increment or decrement would overflow")

	// ErrNaN is returned when an operation would produce a NaN score or value
	ErrNaN = errors.New("resulting score is not a number (NaN)")

	// ErrNoSuchKey is returned by operations that require an existing key
	ErrNoSuchKey = errors.New("no such key")
)

// ErrInvalidBound is returned when a score range bound cannot be parsed
var ErrInvalidBound = errors.New("min or max is not a float")
