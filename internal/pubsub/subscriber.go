package pubsub

import (
	"slices"
	"sync"
)

// Subscriber is the receiving side of one connection.
// Subscription changes come from the connection goroutine, messages are drained by its delivery goroutine
type Subscriber struct {
	id     string
	broker *Broker

	subMu    sync.Mutex
	channels map[string]struct{}
	patterns map[string]struct{}

	mu      sync.Mutex
	queue   []Message
	dropped uint64
	closed  bool
	ready   chan struct{}
}

// ID returns the subscriber identifier
func (s *Subscriber) ID() string {
	return s.id
}

// Count returns the number of channels and patterns subscribed to
func (s *Subscriber) Count() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.channels) + len(s.patterns)
}

// Channels returns the subscribed channels sorted
func (s *Subscriber) Channels() []string {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return sortedNames(s.channels)
}

// Patterns returns the subscribed patterns sorted
func (s *Subscriber) Patterns() []string {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return sortedNames(s.patterns)
}

// Subscribe adds channel. confirm receives the new subscription count and runs
// before publishers can see the subscription; if it fails nothing is registered
func (s *Subscriber) Subscribe(channel string, confirm func(count int) error) error {
	return s.subscribe(s.channels, s.broker.channels, channel, confirm)
}

// PSubscribe adds a glob pattern, see Subscribe
func (s *Subscriber) PSubscribe(pattern string, confirm func(count int) error) error {
	return s.subscribe(s.patterns, s.broker.patterns, pattern, confirm)
}

// Unsubscribe removes channel, then confirm receives the remaining subscription count.
// Messages already queued are kept and must be drained before the confirmation is written
func (s *Subscriber) Unsubscribe(channel string, confirm func(count int) error) error {
	return s.unsubscribe(s.channels, s.broker.channels, channel, confirm)
}

// PUnsubscribe removes a pattern, see Unsubscribe
func (s *Subscriber) PUnsubscribe(pattern string, confirm func(count int) error) error {
	return s.unsubscribe(s.patterns, s.broker.patterns, pattern, confirm)
}

func (s *Subscriber) subscribe(own map[string]struct{}, index map[string]map[*Subscriber]struct{}, name string, confirm func(int) error) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	_, already := own[name]
	count := len(s.channels) + len(s.patterns)
	if !already {
		count++
	}

	if err := confirm(count); err != nil {
		return err
	}
	if already {
		return nil
	}

	own[name] = struct{}{}
	s.broker.add(index, name, s)
	return nil
}

func (s *Subscriber) unsubscribe(own map[string]struct{}, index map[string]map[*Subscriber]struct{}, name string, confirm func(int) error) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if _, ok := own[name]; ok {
		s.broker.remove(index, name, s)
		delete(own, name)
	}

	return confirm(len(s.channels) + len(s.patterns))
}

// Close drops every subscription and pending message. The subscriber cannot be reused
func (s *Subscriber) Close() {
	s.subMu.Lock()
	for name := range s.channels {
		s.broker.remove(s.broker.channels, name, s)
	}
	for name := range s.patterns {
		s.broker.remove(s.broker.patterns, name, s)
	}
	clear(s.channels)
	clear(s.patterns)
	s.subMu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
}

// Ready is signalled when messages are waiting to be drained
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Drain returns and clears the pending messages in publish order
func (s *Subscriber) Drain() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.queue
	s.queue = nil
	return msgs
}

// Dropped returns how many messages were dropped on overflow
func (s *Subscriber) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// enqueue appends msg, dropping the oldest pending message when the queue is full
func (s *Subscriber) enqueue(msg Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	overflow := len(s.queue) >= s.broker.queueSize
	if overflow {
		s.queue[0] = Message{}
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	if overflow {
		s.broker.dropped(s)
	}

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
