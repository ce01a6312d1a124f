package storage

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxn_SetConditions(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
		opts     SetOptions
		want     bool
	}{
		{"plain on missing", false, SetOptions{}, true},
		{"plain on existing", true, SetOptions{}, true},
		{"nx on missing", false, SetOptions{NX: true}, true},
		{"nx on existing", true, SetOptions{NX: true}, false},
		{"xx on missing", false, SetOptions{XX: true}, false},
		{"xx on existing", true, SetOptions{XX: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStorage(t)
			if tt.existing {
				s.Set("k", "old", SetOptions{})
			}

			assert.Equal(t, tt.want, s.Set("k", "new", tt.opts))

			val, _, _ := s.Get("k")
			if tt.want {
				assert.Equal(t, "new", val)
			} else if tt.existing {
				assert.Equal(t, "old", val)
			}
		})
	}
}

func TestTxn_SetExpireAt(t *testing.T) {
	s, clock := newTestStorage(t)

	s.Set("k", "v", SetOptions{ExpireAt: clock.Now().Add(time.Minute)})
	view(t, s, []string{"k"}, func(tx *Txn) {
		ttl, st := tx.Expiry("k")
		assert.Equal(t, ExpActive, st)
		assert.Equal(t, time.Minute, ttl)
	})
}

func TestTxn_SetOverwritesOtherTypes(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"k"}, func(tx *Txn) {
		_, err := tx.SAdd("k", "a")
		require.NoError(t, err)
		assert.True(t, tx.Set("k", "v", SetOptions{}))
		assert.Equal(t, "string", tx.Type("k"))
	})
}

func TestTxn_IncrBy(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"n", "s", "max", "list"}, func(tx *Txn) {
		v, err := tx.IncrBy("n", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = tx.IncrBy("n", -5)
		require.NoError(t, err)
		assert.Equal(t, int64(-4), v)

		tx.Set("s", "abc", SetOptions{})
		_, err = tx.IncrBy("s", 1)
		assert.ErrorIs(t, err, ErrNotInteger)

		tx.Set("max", strconv.FormatInt(math.MaxInt64, 10), SetOptions{})
		_, err = tx.IncrBy("max", 1)
		assert.ErrorIs(t, err, ErrOverflow)

		_, _ = tx.Push("list", false, "x")
		_, err = tx.IncrBy("list", 1)
		assert.ErrorIs(t, err, ErrWrongType)
	})

	val, _, _ := s.Get("n")
	assert.Equal(t, "-4", val)
}

func TestTxn_IncrByFloat(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"f", "bad"}, func(tx *Txn) {
		v, err := tx.IncrByFloat("f", 10.5)
		require.NoError(t, err)
		assert.Equal(t, 10.5, v)

		v, err = tx.IncrByFloat("f", 0.1)
		require.NoError(t, err)
		assert.InDelta(t, 10.6, v, 1e-9)

		tx.Set("bad", "x", SetOptions{})
		_, err = tx.IncrByFloat("bad", 1)
		assert.ErrorIs(t, err, ErrNotFloat)

		_, err = tx.IncrByFloat("f", math.Inf(1))
		assert.ErrorIs(t, err, ErrNaN)
	})
}

func TestTxn_AppendStrLenGetDel(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"k"}, func(tx *Txn) {
		n, err := tx.Append("k", "Hello")
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = tx.Append("k", " World")
		require.NoError(t, err)
		assert.Equal(t, 11, n)

		n, err = tx.StrLen("k")
		require.NoError(t, err)
		assert.Equal(t, 11, n)

		v, ok, err := tx.GetDel("k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Hello World", v)
		assert.False(t, tx.Exists("k"))

		_, ok, err = tx.GetDel("k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTxn_CompareAndSwap(t *testing.T) {
	s, clock := newTestStorage(t)
	s.Set("k", "v1", SetOptions{TTL: time.Second})

	update(t, s, []string{"k", "missing"}, func(tx *Txn) {
		ok, err := tx.CompareAndSwap("missing", "", "x")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = tx.CompareAndSwap("k", "other", "v2")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = tx.CompareAndSwap("k", "v1", "v2")
		require.NoError(t, err)
		assert.True(t, ok)

		// a second identical swap is a no-op
		ok, err = tx.CompareAndSwap("k", "v1", "v2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	clock.Advance(2 * time.Second)
	val, ok, _ := s.Get("k")
	assert.True(t, ok, "successful swap clears the TTL")
	assert.Equal(t, "v2", val)
}

func TestTxn_TypeIsolation(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"l"}, func(tx *Txn) {
		_, err := tx.Push("l", false, "a")
		require.NoError(t, err)

		_, _, err = tx.Get("l")
		assert.ErrorIs(t, err, ErrWrongType)
		_, err = tx.SAdd("l", "x")
		assert.ErrorIs(t, err, ErrWrongType)
		_, err = tx.HSet("l", map[string]string{"f": "v"})
		assert.ErrorIs(t, err, ErrWrongType)
		_, err = tx.ZAdd("l", ZAddOptions{}, ZMember{Member: "m", Score: 1})
		assert.ErrorIs(t, err, ErrWrongType)

		vals, err := tx.Range("l", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, vals)
	})
}
