package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(ms []ZMember) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Member
	}
	return out
}

func leaderboard() *SortedSet {
	z := NewSortedSet()
	z.Add("alice", 100)
	z.Add("bob", 85)
	z.Add("carol", 100)
	z.Add("dave", 70)
	z.Add("erin", 85)
	return z
}

func TestSortedSet_Order(t *testing.T) {
	z := leaderboard()

	assert.Equal(t, []string{"dave", "bob", "erin", "alice", "carol"}, members(z.Range(0, -1, false)))
	// descending score, equal scores keep ascending member order
	assert.Equal(t, []string{"alice", "carol", "bob", "erin", "dave"}, members(z.Range(0, -1, true)))
	assert.Equal(t, []string{"alice", "carol"}, members(z.Range(0, 1, true)))
	assert.Equal(t, []string{"erin", "dave"}, members(z.Range(-2, -1, true)))
	assert.Empty(t, z.Range(5, 10, false))
}

func TestSortedSet_Ranks(t *testing.T) {
	z := leaderboard()
	desc := members(z.Range(0, -1, true))

	for i, m := range members(z.Range(0, -1, false)) {
		rank, ok := z.Rank(m)
		require.True(t, ok)
		assert.Equal(t, i, rank, m)
	}
	for i, m := range desc {
		rank, ok := z.RevRank(m)
		require.True(t, ok)
		assert.Equal(t, i, rank, m)
	}

	_, ok := z.Rank("nobody")
	assert.False(t, ok)
}

func TestSortedSet_UpdateMovesMember(t *testing.T) {
	z := leaderboard()

	assert.False(t, z.Add("dave", 200))
	assert.Equal(t, "dave", z.Range(0, 0, true)[0].Member)
	assert.Equal(t, 5, z.Len())

	assert.True(t, z.Remove("dave"))
	assert.False(t, z.Remove("dave"))
	assert.Equal(t, 4, z.Len())
	_, ok := z.Score("dave")
	assert.False(t, ok)
}

func TestSortedSet_RangeByScore(t *testing.T) {
	z := leaderboard()
	inf := math.Inf(1)

	tests := []struct {
		name          string
		min, max      ScoreBound
		rev           bool
		offset, count int
		want          []string
	}{
		{"all", ScoreBound{Value: -inf}, ScoreBound{Value: inf}, false, 0, -1, []string{"dave", "bob", "erin", "alice", "carol"}},
		{"inclusive", ScoreBound{Value: 85}, ScoreBound{Value: 100}, false, 0, -1, []string{"bob", "erin", "alice", "carol"}},
		{"exclusive min", ScoreBound{Value: 85, Exclusive: true}, ScoreBound{Value: 100}, false, 0, -1, []string{"alice", "carol"}},
		{"exclusive max", ScoreBound{Value: 70}, ScoreBound{Value: 100, Exclusive: true}, false, 0, -1, []string{"dave", "bob", "erin"}},
		{"limit", ScoreBound{Value: -inf}, ScoreBound{Value: inf}, false, 1, 2, []string{"bob", "erin"}},
		{"rev", ScoreBound{Value: 80}, ScoreBound{Value: inf}, true, 0, -1, []string{"alice", "carol", "bob", "erin"}},
		{"rev limit", ScoreBound{Value: -inf}, ScoreBound{Value: inf}, true, 1, 2, []string{"carol", "bob"}},
		{"empty", ScoreBound{Value: 101}, ScoreBound{Value: 200}, false, 0, -1, []string{}},
		{"offset past end", ScoreBound{Value: -inf}, ScoreBound{Value: inf}, false, 10, -1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := z.RangeByScore(tt.min, tt.max, tt.rev, tt.offset, tt.count)
			assert.Equal(t, tt.want, members(got))
		})
	}
}

func TestParseScoreBound(t *testing.T) {
	tests := []struct {
		in      string
		want    ScoreBound
		wantErr bool
	}{
		{"1.5", ScoreBound{Value: 1.5}, false},
		{"(1.5", ScoreBound{Value: 1.5, Exclusive: true}, false},
		{"-inf", ScoreBound{Value: math.Inf(-1)}, false},
		{"+inf", ScoreBound{Value: math.Inf(1)}, false},
		{"(+inf", ScoreBound{Value: math.Inf(1), Exclusive: true}, false},
		{"abc", ScoreBound{}, true},
		{"nan", ScoreBound{}, true},
		{"(", ScoreBound{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScoreBound(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTxn_ZSetOperations(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"lb"}, func(tx *Txn) {
		n, err := tx.ZAdd("lb", ZAddOptions{},
			ZMember{Member: "alice", Score: 10},
			ZMember{Member: "bob", Score: 20},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = tx.ZAdd("lb", ZAddOptions{NX: true}, ZMember{Member: "alice", Score: 99})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = tx.ZAdd("lb", ZAddOptions{XX: true}, ZMember{Member: "carol", Score: 1})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = tx.ZAdd("lb", ZAddOptions{CH: true},
			ZMember{Member: "alice", Score: 15},
			ZMember{Member: "carol", Score: 5},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		score, err := tx.ZIncrBy("lb", 30, "carol")
		require.NoError(t, err)
		assert.Equal(t, 35.0, score)

		score, err = tx.ZIncrBy("lb", 1, "dave")
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)

		got, ok, err := tx.ZScore("lb", "alice")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 15.0, got)

		top, err := tx.ZRange("lb", 0, 1, true)
		require.NoError(t, err)
		assert.Equal(t, []ZMember{{Member: "carol", Score: 35}, {Member: "bob", Score: 20}}, top)

		rank, ok, err := tx.ZRank("lb", "dave", true)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, rank)

		n, err = tx.ZCard("lb")
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		n, err = tx.ZRem("lb", "alice", "bob", "carol", "dave")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.False(t, tx.Exists("lb"))
	})
}

func TestTxn_ZIncrByNaN(t *testing.T) {
	s, _ := newTestStorage(t)

	update(t, s, []string{"z"}, func(tx *Txn) {
		_, err := tx.ZIncrBy("z", math.Inf(1), "m")
		require.NoError(t, err)

		_, err = tx.ZIncrBy("z", math.Inf(-1), "m")
		assert.ErrorIs(t, err, ErrNaN)

		score, _, _ := tx.ZScore("z", "m")
		assert.True(t, math.IsInf(score, 1))
	})
}
