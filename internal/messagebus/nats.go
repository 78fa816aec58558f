package messagebus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/projectpulse/pulsebot/internal/chat"
)

const (
	subjectInbound  = "pulsebot.chat.inbound"
	subjectOutbound = "pulsebot.chat.outbound"

	// queueWorkers shares inbound events across router processes so each
	// event is handled exactly once within the group.
	queueWorkers = "pulsebot-workers"
	queueSenders = "pulsebot-senders"
)

// NatsBus carries chat events over NATS as JSON payloads.
type NatsBus struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NatsConfig holds NATS connection settings.
type NatsConfig struct {
	URL     string
	Timeout time.Duration
}

// NewNatsBus connects to the NATS server.
func NewNatsBus(cfg NatsConfig) (*NatsBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS at %s", cfg.URL)
	return &NatsBus{conn: nc}, nil
}

func (b *NatsBus) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", subject, err)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// PublishInbound publishes an operator event for the worker group.
func (b *NatsBus) PublishInbound(ctx context.Context, ev *chat.Event) error {
	return b.publish(subjectInbound, ev)
}

// SubscribeInbound joins the worker queue group for operator events.
func (b *NatsBus) SubscribeInbound(handler func(*chat.Event)) error {
	sub, err := b.conn.QueueSubscribe(subjectInbound, queueWorkers, func(m *nats.Msg) {
		var ev chat.Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			log.Printf("messagebus: dropping malformed inbound event: %v", err)
			return
		}
		handler(&ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subjectInbound, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// PublishOutbound publishes a presentation request for the sender group.
func (b *NatsBus) PublishOutbound(ctx context.Context, msg *chat.Outbound) error {
	return b.publish(subjectOutbound, msg)
}

// SubscribeOutbound joins the sender queue group for presentation requests.
func (b *NatsBus) SubscribeOutbound(handler func(*chat.Outbound)) error {
	sub, err := b.conn.QueueSubscribe(subjectOutbound, queueSenders, func(m *nats.Msg) {
		var msg chat.Outbound
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			log.Printf("messagebus: dropping malformed outbound message: %v", err)
			return
		}
		handler(&msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subjectOutbound, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *NatsBus) Close() error {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("messagebus: failed to unsubscribe: %v", err)
		}
	}
	b.conn.Close()
	return nil
}
