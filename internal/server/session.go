package server

import (
	"context"
	"sync"

	"github.com/eternalApril/moonkv/internal/pubsub"
	"github.com/eternalApril/moonkv/internal/resp"
	"go.uber.org/zap"
)

// Sink receives replies written outside of the request/response flow:
// subscribe confirmations and published messages. Implementations must be safe for concurrent use
type Sink interface {
	Send(v resp.Value) error
	Flush() error
}

type queuedCommand struct {
	name string
	meta commandMetadata
	args []resp.Value
}

// Session is the per-connection state: transaction buffer, subscriptions and lifetime
type Session struct {
	id     string
	addr   string // client address, empty when the sink has none
	ctx    context.Context
	cancel context.CancelFunc
	sink   Sink

	multi bool
	dirty bool
	queue []queuedCommand

	subOnce sync.Once
	sub     *pubsub.Subscriber
	// deliverMu orders queued messages against unsubscribe confirmations
	deliverMu sync.Mutex

	quit bool
}

// ID returns the connection id
func (s *Session) ID() string {
	return s.id
}

// Context is cancelled when the connection goes away
func (s *Session) Context() context.Context {
	return s.ctx
}

// Closing reports whether the client asked to close the connection
func (s *Session) Closing() bool {
	return s.quit
}

// InMulti reports whether commands are being queued
func (s *Session) InMulti() bool {
	return s.multi
}

func (s *Session) subscribed() bool {
	return s.sub != nil && s.sub.Count() > 0
}

func (s *Session) resetMulti() {
	s.multi = false
	s.dirty = false
	s.queue = nil
}

// push writes an out of band frame and flushes it right away
func (s *Session) push(v resp.Value) error {
	if err := s.sink.Send(v); err != nil {
		return err
	}
	return s.sink.Flush()
}

// subscriber returns the pub/sub receiver, creating it and its delivery goroutine on first use
func (s *Session) subscriber(e *Engine) *pubsub.Subscriber {
	s.subOnce.Do(func() {
		s.sub = e.broker.NewSubscriber(s.id)
		go s.deliver(e.logger)
	})
	return s.sub
}

// deliver writes queued messages until the session ends
func (s *Session) deliver(logger *zap.Logger) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.sub.Ready():
		}

		s.deliverMu.Lock()
		err := s.writePending()
		if err == nil {
			err = s.sink.Flush()
		}
		s.deliverMu.Unlock()
		if err != nil {
			logger.Debug("deliver message failed", zap.String("session", s.id), zap.Error(err))
			return
		}
	}
}

// writePending sends every queued message without flushing. Callers hold deliverMu
func (s *Session) writePending() error {
	for _, msg := range s.sub.Drain() {
		if err := s.sink.Send(messageFrame(msg)); err != nil {
			return err
		}
	}
	return nil
}

func messageFrame(msg pubsub.Message) resp.Value {
	if msg.Pattern != "" {
		return resp.MakeBulkArray([]string{"pmessage", msg.Pattern, msg.Channel, msg.Payload})
	}
	return resp.MakeBulkArray([]string{"message", msg.Channel, msg.Payload})
}
