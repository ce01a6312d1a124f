package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxn_HashOperations(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"h"}, func(tx *Txn) {
		n, err := tx.HSet("h", map[string]string{"name": "alice", "age": "30"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = tx.HSet("h", map[string]string{"age": "31", "city": "paris"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		v, ok, err := tx.HGet("h", "age")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "31", v)

		_, ok, _ = tx.HGet("h", "missing")
		assert.False(t, ok)

		visits, err := tx.HIncrBy("h", "visits", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), visits)

		_, err = tx.HIncrBy("h", "name", 1)
		assert.ErrorIs(t, err, ErrHashNotInteger)

		keys, err := tx.HKeys("h")
		require.NoError(t, err)
		assert.Equal(t, []string{"age", "city", "name", "visits"}, keys)

		vals, err := tx.HVals("h")
		require.NoError(t, err)
		assert.Equal(t, []string{"31", "paris", "alice", "5"}, vals)

		all, err := tx.HGetAll("h")
		require.NoError(t, err)
		assert.Len(t, all, 4)

		exists, err := tx.HExists("h", "city")
		require.NoError(t, err)
		assert.True(t, exists)

		n, err = tx.HDel("h", "age", "city", "name", "visits", "nope")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.False(t, tx.Exists("h"))

		n, err = tx.HLen("h")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
