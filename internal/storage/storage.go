package storage

import (
	"time"
)

type ExpiryStatus int

const (
	// ExpNotFound means that the key does not exist
	ExpNotFound ExpiryStatus = -2
	// ExpNoTimeout means that the key exists, but it does not have a TTL
	ExpNoTimeout ExpiryStatus = -1
	// ExpActive means that the key has an active lifetime
	ExpActive ExpiryStatus = 1
)

type SetOptions struct {
	TTL      time.Duration // key lifetime
	ExpireAt time.Time     // absolute deadline, takes precedence over TTL when not zero
	KeepTTL  bool          // if true, retain the existing TTL (ignore TTL field)
	NX       bool          // only set if the key does not exist
	XX       bool          // only set if the key already exists
}

// SweepStats reports one pass of the active expiration
type SweepStats struct {
	Checked int
	Expired int
}

// Ratio returns expired/checked, 0 when nothing was checked
func (s SweepStats) Ratio() float64 {
	if s.Checked == 0 {
		return 0
	}
	return float64(s.Expired) / float64(s.Checked)
}

// Storage is a common interface for working with key-value storages.
// All data access goes through transactions that lock the shards owning the given keys
type Storage interface {
	// View runs fn with read access to keys
	View(keys []string, fn func(tx *Txn) error) error

	// Update runs fn with exclusive access to keys
	Update(keys []string, fn func(tx *Txn) error) error

	// ViewAll runs fn with read access to the whole keyspace
	ViewAll(fn func(tx *Txn) error) error

	// UpdateAll runs fn with exclusive access to the whole keyspace
	UpdateAll(fn func(tx *Txn) error) error

	// NewWaiter registers interest in pushes to any of keys
	NewWaiter(keys ...string) *Waiter

	// DeleteExpired samples up to limit keys with a TTL in every shard and deletes the expired ones
	DeleteExpired(limit int) SweepStats

	// KeyCount returns the number of live keys
	KeyCount() int

	// ExpiresCount returns the number of live keys that have a TTL
	ExpiresCount() int

	// MemoryUsage returns an estimate of the bytes held by keys and values
	MemoryUsage() int64
}
