package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaiter_SignalledOnPush(t *testing.T) {
	s, _ := newTestStorage(t)

	w := s.NewWaiter("queue", "other")
	defer w.Close()
	assert.Equal(t, 1, s.waiters.waiting("queue"))

	update(t, s, []string{"queue"}, func(tx *Txn) {
		_, err := tx.Push("queue", false, "job")
		require.NoError(t, err)
		// a second push coalesces into the same signal
		_, err = tx.Push("queue", false, "job2")
		require.NoError(t, err)
	})

	select {
	case <-w.C:
	case <-time.After(time.Second):
		t.Fatal("waiter was not signalled")
	}

	select {
	case <-w.C:
		t.Fatal("signals must coalesce")
	default:
	}
}

func TestWaiter_CloseUnregisters(t *testing.T) {
	s, _ := newTestStorage(t)

	w1 := s.NewWaiter("q")
	w2 := s.NewWaiter("q")
	assert.Equal(t, 2, s.waiters.waiting("q"))

	w1.Close()
	w1.Close()
	assert.Equal(t, 1, s.waiters.waiting("q"))

	w2.Close()
	assert.Zero(t, s.waiters.waiting("q"))
	assert.Empty(t, s.waiters.waiters)
}

func TestWaiter_RegisterThenCheck(t *testing.T) {
	s, _ := newTestStorage(t)

	done := make(chan string)
	go func() {
		w := s.NewWaiter("q")
		defer w.Close()
		for {
			var (
				val   string
				found bool
			)
			_ = s.Update([]string{"q"}, func(tx *Txn) error {
				var err error
				_, val, found, err = tx.PopFirst([]string{"q"}, true)
				return err
			})
			if found {
				done <- val
				return
			}
			<-w.C
		}
	}()

	update(t, s, []string{"q"}, func(tx *Txn) {
		_, _ = tx.Push("q", false, "item")
	})

	select {
	case v := <-done:
		assert.Equal(t, "item", v)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked pop missed the push")
	}
}
