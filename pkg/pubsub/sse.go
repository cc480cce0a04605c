package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/pyimport-graph/pkg/logging"
)

// subscriberBuffer is the per-subscriber queue. A full queue drops events
// rather than stalling a scan.
const subscriberBuffer = 100

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to keep for late subscribers (0 = none)
	ReplayAll  bool // Replay every kept event instead of only the latest
}

// topic is the publisher's state for one topic. Guarded by SSEPublisher.mu.
type topic struct {
	config  TopicConfig
	version int
	backlog []Event
	subs    map[*sseSubscription]struct{}
}

func newTopic() *topic {
	return &topic{subs: make(map[*sseSubscription]struct{})}
}

// keep appends e to the backlog, trimming to the configured size.
func (t *topic) keep(e Event) {
	if t.config.BufferSize <= 0 {
		return
	}
	t.backlog = append(t.backlog, e)
	if over := len(t.backlog) - t.config.BufferSize; over > 0 {
		t.backlog = t.backlog[over:]
	}
}

// replay returns a copy of the events a new subscriber should see first.
func (t *topic) replay() []Event {
	events := t.backlog
	if !t.config.ReplayAll && len(events) > 1 {
		events = events[len(events)-1:]
	}
	return append([]Event(nil), events...)
}

// SSEPublisher implements Publisher for Server-Sent Event streams. Scan
// progress and snapshot announcements go through it to every open viewer.
type SSEPublisher struct {
	mu     sync.RWMutex
	topics map[string]*topic
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topic)}
}

// topic returns the state for name, creating it. Callers hold p.mu.
func (p *SSEPublisher) topic(name string) *topic {
	t, ok := p.topics[name]
	if !ok {
		t = newTopic()
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(name string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(name).config = config
}

// Subscribe registers a subscription to name. The latest kept event (or all
// of them, with ReplayAll) is delivered first, so a viewer opened after a
// scan still learns the current state. Cancelling ctx ends the subscription.
func (p *SSEPublisher) Subscribe(ctx context.Context, name string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     name,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	t := p.topic(name)
	t.subs[sub] = struct{}{}
	backlog := t.replay()
	p.mu.Unlock()

	for _, event := range backlog {
		select {
		case sub.events <- event:
		default:
			logging.Warn("could not replay event to new subscriber", "topic", name)
		}
	}
	if len(backlog) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", name, "count", len(backlog))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends data, JSON encoded, to every subscriber of name. Slow
// subscribers miss events instead of blocking the caller.
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

	t := p.topic(name)
	t.version++
	event := Event{
		Topic:   name,
		Type:    eventType,
		Data:    payload,
		Version: t.version,
	}
	t.keep(event)

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", name, "type", eventType)
		}
	}

	return nil
}

// Close ends every subscription; their event channels are closed.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
			close(sub.events)
		}
		t.subs = make(map[*sseSubscription]struct{})
	}

	return nil
}

// SubscriberCount returns the number of live subscriptions to name.
func (p *SSEPublisher) SubscriberCount(name string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if t, ok := p.topics[name]; ok {
		return len(t.subs)
	}
	return 0
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher

	mu     sync.Mutex
	closed bool
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription. Events already queued stay readable.
func (s *sseSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// lock order is publisher, then subscription
	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE frames event for an event stream:
//
//	id: <version>
//	event: <topic>
//	data: <event as JSON>
func WriteSSE(w io.Writer, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Topic, data)
	return err
}
