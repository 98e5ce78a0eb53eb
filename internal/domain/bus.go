package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `json:"type" yaml:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `json:"channelBufferSize" yaml:"channelBufferSize"`

	// NATS settings (Pro tier)
	NATSUrl           string `json:"natsUrl" yaml:"natsUrl"`
	NATSToken         string `json:"-" yaml:"natsToken"`
	NATSMaxReconnects int    `json:"natsMaxReconnects" yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `json:"natsReconnectWait" yaml:"natsReconnectWait"` // seconds

	// NATSQueueGroup load-balances subscriptions across worker replicas
	NATSQueueGroup string `json:"natsQueueGroup" yaml:"natsQueueGroup"`
}

// Message metadata keys.
const (
	MetaTraceID = "trace_id"
	MetaReplyTo = "reply_to" // in-process request-reply topic
)

// Standard topic names for the forecast pipeline.
const (
	TopicForecastRequested = "claimcast.forecast.requested"
	TopicForecastCompleted = "claimcast.forecast.completed"
	TopicRenewalDeclined   = "claimcast.renewal.declined"
)

// ForecastRequest is the payload of TopicForecastRequested.
type ForecastRequest struct {
	TenantID   string `json:"tenantId,omitempty"` // required on the global subscription
	CustomerID string `json:"customerId"`
	AsOf       string `json:"asOf,omitempty"` // YYYY-MM-DD, defaults to the worker clock
	Method     string `json:"method,omitempty"`
	TraceID    string `json:"traceId,omitempty"`
}

// ForecastCompleted is the payload of TopicForecastCompleted and TopicRenewalDeclined.
type ForecastCompleted struct {
	ForecastID string `json:"forecastId"`
	CustomerID string `json:"customerId"`
	Decision   string `json:"decision"`
	RiskScore  int    `json:"riskScore"`
	TraceID    string `json:"traceId,omitempty"`
}
