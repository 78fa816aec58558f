package messagebus

import (
	"context"
	"fmt"
	"sync"

	"github.com/projectpulse/pulsebot/internal/chat"
)

const memoryBufferSize = 256

// MemoryBus is the single-process backend. Each direction is one buffered
// channel drained by one goroutine, so events are handed to the subscriber
// one at a time in arrival order.
type MemoryBus struct {
	inbound  chan *chat.Event
	outbound chan *chat.Outbound

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewMemoryBus creates an in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		inbound:  make(chan *chat.Event, memoryBufferSize),
		outbound: make(chan *chat.Outbound, memoryBufferSize),
		done:     make(chan struct{}),
	}
}

// PublishInbound queues an operator event.
func (b *MemoryBus) PublishInbound(ctx context.Context, ev *chat.Event) error {
	select {
	case b.inbound <- ev:
		return nil
	case <-b.done:
		return fmt.Errorf("message bus is closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscribeInbound drains operator events into handler until Close.
func (b *MemoryBus) SubscribeInbound(handler func(*chat.Event)) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case ev := <-b.inbound:
				handler(ev)
			case <-b.done:
				return
			}
		}
	}()
	return nil
}

// PublishOutbound queues a presentation request.
func (b *MemoryBus) PublishOutbound(ctx context.Context, msg *chat.Outbound) error {
	select {
	case b.outbound <- msg:
		return nil
	case <-b.done:
		return fmt.Errorf("message bus is closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscribeOutbound drains presentation requests into handler until Close.
func (b *MemoryBus) SubscribeOutbound(handler func(*chat.Outbound)) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case msg := <-b.outbound:
				handler(msg)
			case <-b.done:
				return
			}
		}
	}()
	return nil
}

// Close stops delivery and waits for subscriber goroutines to exit.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
