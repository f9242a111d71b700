package pubsub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ritzau/agentgraph/pkg/agentgraph"
)

// Topics published by the agent graph server.
const (
	TopicTopology   = "topology"   // full snapshot after every change
	TopicValidation = "validation" // findings after every change
	TopicChanges    = "changes"    // model.Diff after every manifest reload
)

// Event types.
const (
	EventSnapshot = "snapshot" // topology replaced wholesale (startup, manifest reload)
	EventMutation = "mutation" // topology changed through the API
	EventFindings = "findings"
	EventDiff     = "diff"
)

var (
	// ErrClosed is returned by a publisher after Close.
	ErrClosed = errors.New("publisher is closed")

	// ErrUnknownTopic is returned when subscribing to a topic that was never configured.
	ErrUnknownTopic = errors.New("unknown topic")
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "topology", "validation")
	Type    string          `json:"type"`    // Event type (e.g., "snapshot", "mutation")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// ValidationData is the payload of the validation topic.
type ValidationData struct {
	Findings  []agentgraph.Finding `json:"findings"`
	HasErrors bool                 `json:"hasErrors"`
}
