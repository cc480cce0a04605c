package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// Topics served by the web viewer.
const (
	TopicStatus = "status" // scan progress, Status payloads
	TopicGraph  = "graph"  // a new snapshot is ready, GraphSummary payloads
)

// ErrClosed is returned once the publisher has been shut down.
var ErrClosed = errors.New("publisher is closed")

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic, TopicStatus or TopicGraph
	Type    string          `json:"type"`    // Event type, e.g. "scanning", "ready"
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Per-topic sequence number
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation will close the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Status represents scan progress
type Status struct {
	State   string `json:"state"`   // scanning, building, ready, error
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}

// GraphSummary announces a new graph snapshot.
type GraphSummary struct {
	Version int64  `json:"version"`
	Reason  string `json:"reason"`
	Files   int    `json:"files"`
	Skipped int    `json:"skipped"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Hubs    int    `json:"hubs"`
}
