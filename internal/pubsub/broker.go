package pubsub

import (
	"sync"

	"github.com/eternalApril/moonkv/internal/glob"
	"go.uber.org/zap"
)

// Message is one delivery to a subscriber. Pattern is empty for channel subscriptions
type Message struct {
	Pattern string
	Channel string
	Payload string
}

// Broker fans published messages out to channel and pattern subscribers.
// Publishing never blocks on a subscriber, every subscriber owns a bounded queue
type Broker struct {
	mu       sync.RWMutex
	channels map[string]map[*Subscriber]struct{}
	patterns map[string]map[*Subscriber]struct{}

	queueSize int
	onDrop    func()
	logger    *zap.Logger
}

// Option configures a Broker
type Option func(*Broker)

// WithDropHook sets a callback invoked for every message dropped on overflow
func WithDropHook(fn func()) Option {
	return func(b *Broker) {
		b.onDrop = fn
	}
}

// WithLogger sets the broker logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Broker) {
		b.logger = l
	}
}

// NewBroker creates a broker whose subscribers keep at most queueSize pending messages
func NewBroker(queueSize int, opts ...Option) *Broker {
	if queueSize <= 0 {
		queueSize = 1
	}

	b := &Broker{
		channels:  make(map[string]map[*Subscriber]struct{}),
		patterns:  make(map[string]map[*Subscriber]struct{}),
		queueSize: queueSize,
		onDrop:    func() {},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSubscriber creates a subscriber with no subscriptions
func (b *Broker) NewSubscriber(id string) *Subscriber {
	return &Subscriber{
		id:       id,
		broker:   b,
		ready:    make(chan struct{}, 1),
		channels: make(map[string]struct{}),
		patterns: make(map[string]struct{}),
	}
}

// Publish delivers payload to every subscriber of channel and of matching patterns.
// Returns the number of deliveries
func (b *Broker) Publish(channel, payload string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.channels[channel] {
		sub.enqueue(Message{Channel: channel, Payload: payload})
		delivered++
	}

	for pattern, subs := range b.patterns {
		if !glob.Match(pattern, channel) {
			continue
		}
		for sub := range subs {
			sub.enqueue(Message{Pattern: pattern, Channel: channel, Payload: payload})
			delivered++
		}
	}

	return delivered
}

// Stats returns the number of active channels and patterns
func (b *Broker) Stats() (channels, patterns int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels), len(b.patterns)
}

func (b *Broker) add(index map[string]map[*Subscriber]struct{}, name string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := index[name]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		index[name] = subs
	}
	subs[sub] = struct{}{}
}

func (b *Broker) remove(index map[string]map[*Subscriber]struct{}, name string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := index[name]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(index, name)
	}
}

func (b *Broker) dropped(sub *Subscriber) {
	b.onDrop()
	if b.logger.Core().Enabled(zap.DebugLevel) {
		b.logger.Debug("pubsub queue overflow, oldest message dropped", zap.String("subscriber", sub.id))
	}
}
