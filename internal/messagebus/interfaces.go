// Package messagebus decouples the chat transport from the conversation
// router: the transport publishes inbound events and consumes outbound
// messages, the router does the reverse. The in-memory backend serves a
// single process; the NATS backend lets polling and conversation handling
// run as separate processes sharing a worker group.
package messagebus

import (
	"context"

	"github.com/projectpulse/pulsebot/internal/chat"
)

// InboundPublisher publishes operator events toward the router.
type InboundPublisher interface {
	PublishInbound(ctx context.Context, ev *chat.Event) error
}

// InboundSubscriber delivers operator events to a handler. Delivery order
// matches publish order within one backend instance.
type InboundSubscriber interface {
	SubscribeInbound(handler func(*chat.Event)) error
}

// OutboundPublisher publishes presentation requests toward the transport.
type OutboundPublisher interface {
	PublishOutbound(ctx context.Context, msg *chat.Outbound) error
}

// OutboundSubscriber delivers presentation requests to a handler.
type OutboundSubscriber interface {
	SubscribeOutbound(handler func(*chat.Outbound)) error
}

// Bus combines both directions with a lifecycle.
type Bus interface {
	InboundPublisher
	InboundSubscriber
	OutboundPublisher
	OutboundSubscriber
	Close() error
}

var (
	_ Bus = (*MemoryBus)(nil)
	_ Bus = (*NatsBus)(nil)
)
