package messagebus

import (
	"context"

	"github.com/projectpulse/pulsebot/internal/chat"
)

// busSender adapts an OutboundPublisher to the chat.Sender the router
// expects, so the router stays unaware of the bus.
type busSender struct {
	pub OutboundPublisher
}

// NewSender wraps a publisher as a chat.Sender.
func NewSender(pub OutboundPublisher) chat.Sender {
	return &busSender{pub: pub}
}

func (s *busSender) Send(ctx context.Context, msg *chat.Outbound) error {
	return s.pub.PublishOutbound(ctx, msg)
}
