package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/agentgraph/pkg/logging"
)

// subscriberQueue is the per-subscriber channel capacity. A subscriber that
// falls this far behind loses events rather than blocking publishers.
const subscriberQueue = 100

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to keep for late subscribers (0 = live only)
	ReplayAll  bool // Replay every kept event instead of only the latest
}

// topic is the state of one topic; guarded by SSEPublisher.mu.
type topic struct {
	config  TopicConfig
	version int
	history []Event
	subs    map[*sseSubscription]struct{}
}

func newTopic(config TopicConfig) *topic {
	return &topic{config: config, subs: make(map[*sseSubscription]struct{})}
}

// remember appends event to the history, trimmed to the buffer size.
func (t *topic) remember(event Event) {
	if t.config.BufferSize <= 0 {
		return
	}
	t.history = append(t.history, event)
	if extra := len(t.history) - t.config.BufferSize; extra > 0 {
		t.history = t.history[extra:]
	}
}

// replay returns the events a new subscriber starts with.
func (t *topic) replay() []Event {
	if len(t.history) == 0 || t.config.ReplayAll {
		return t.history
	}
	return t.history[len(t.history)-1:]
}

// SSEPublisher implements Publisher for Server-Sent Events streams.
// Subscriber channels are closed by the publisher only, under mu, when the
// subscription or the publisher is closed.
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topic
	strict bool // reject topics that were never configured
	closed bool
}

// NewSSEPublisher creates a publisher that accepts any topic.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topic)}
}

// NewGraphPublisher creates a publisher for the agent graph topics. The
// topology and validation topics keep their latest event so new subscribers
// start from current state; changes are live only. Subscribing to any other
// topic fails with ErrUnknownTopic.
func NewGraphPublisher() *SSEPublisher {
	p := NewSSEPublisher()
	p.strict = true
	p.ConfigureTopic(TopicTopology, TopicConfig{BufferSize: 1})
	p.ConfigureTopic(TopicValidation, TopicConfig{BufferSize: 1})
	p.ConfigureTopic(TopicChanges, TopicConfig{})
	return p
}

// ConfigureTopic sets the buffering of a topic, keeping its history.
func (p *SSEPublisher) ConfigureTopic(name string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[name]; ok {
		t.config = config
		return
	}
	p.topics[name] = newTopic(config)
}

// lookup returns the topic, creating it unless the publisher is strict.
// p.mu must be held.
func (p *SSEPublisher) lookup(name string) (*topic, error) {
	if t, ok := p.topics[name]; ok {
		return t, nil
	}
	if p.strict {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, name)
	}
	t := newTopic(TopicConfig{})
	p.topics[name] = t
	return t, nil
}

// Subscribe registers a subscriber and queues the topic's replay events
// for it. The subscription closes when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	t, err := p.lookup(name)
	if err != nil {
		return nil, err
	}

	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	t.subs[sub] = struct{}{}

	if events := t.replay(); len(events) > 0 {
		for _, event := range events {
			deliver(sub, event)
		}
		logging.Debug("replayed events to new subscriber", "topic", name, "count", len(events))
	}

	context.AfterFunc(ctx, func() { _ = sub.Close() })
	return sub, nil
}

// Publish marshals data and sends it to every subscriber of the topic
// without blocking.
func (p *SSEPublisher) Publish(name string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	t, err := p.lookup(name)
	if err != nil {
		return err
	}

	t.version++
	event := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.remember(event)
	for sub := range t.subs {
		deliver(sub, event)
	}
	return nil
}

// deliver queues event for sub, dropping it when the subscriber is full.
// p.mu must be held.
func deliver(sub *sseSubscription, event Event) {
	select {
	case sub.events <- event:
	default:
		logging.Warn("subscription channel full, dropping event", "topic", event.Topic, "version", event.Version)
	}
}

// Close ends every subscription; later calls to Publish and Subscribe fail
// with ErrClosed.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		clear(t.subs)
	}
	return nil
}

// remove unregisters sub and closes its channel if it is still registered.
func (p *SSEPublisher) remove(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.topics[sub.topic]
	if !ok {
		return
	}
	if _, registered := t.subs[sub]; registered {
		delete(t.subs, sub)
		close(sub.events)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	once      sync.Once
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes and closes the events channel. Safe to call more
// than once.
func (s *sseSubscription) Close() error {
	s.once.Do(func() { s.publisher.remove(s) })
	return nil
}

// WriteSSE writes one event in text/event-stream framing:
// "id: {version}\nevent: {type}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	envelope, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Type, envelope)
	return err
}
