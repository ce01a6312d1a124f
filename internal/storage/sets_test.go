package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxn_SetOperations(t *testing.T) {
	s, _ := newTestStorage(t)
	keys := []string{"a", "b", "c", "missing", "str"}

	update(t, s, keys, func(tx *Txn) {
		n, err := tx.SAdd("a", "x", "y", "z", "x")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		_, _ = tx.SAdd("b", "y", "z", "w")
		_, _ = tx.SAdd("c", "z")
		tx.Set("str", "v", SetOptions{})
	})

	view(t, s, keys, func(tx *Txn) {
		members, err := tx.SMembers("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, members)

		ok, err := tx.SIsMember("a", "y")
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := tx.SCard("missing")
		require.NoError(t, err)
		assert.Zero(t, n)

		tests := []struct {
			name string
			op   func(keys ...string) ([]string, error)
			keys []string
			want []string
		}{
			{"inter", tx.SInter, []string{"a", "b"}, []string{"y", "z"}},
			{"inter three", tx.SInter, []string{"a", "b", "c"}, []string{"z"}},
			{"inter with missing", tx.SInter, []string{"a", "missing"}, []string{}},
			{"union", tx.SUnion, []string{"a", "b"}, []string{"w", "x", "y", "z"}},
			{"diff", tx.SDiff, []string{"a", "b"}, []string{"x"}},
			{"diff missing first", tx.SDiff, []string{"missing", "a"}, []string{}},
		}
		for _, tt := range tests {
			got, err := tt.op(tt.keys...)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, got, tt.name)
		}

		_, err = tx.SUnion("a", "str")
		assert.ErrorIs(t, err, ErrWrongType)
	})

	// set algebra does not modify its inputs
	view(t, s, []string{"a"}, func(tx *Txn) {
		n, _ := tx.SCard("a")
		assert.Equal(t, 3, n)
	})

	update(t, s, []string{"c"}, func(tx *Txn) {
		n, err := tx.SRem("c", "z", "nope")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.False(t, tx.Exists("c"))
	})
}
