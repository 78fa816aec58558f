package messagebus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectpulse/pulsebot/internal/chat"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	delivered := make(chan struct{}, 3)
	require.NoError(t, bus.SubscribeInbound(func(ev *chat.Event) {
		mu.Lock()
		got = append(got, ev.Token)
		mu.Unlock()
		delivered <- struct{}{}
	}))

	ctx := context.Background()
	for _, token := range []string{"projects", "ABC", "edit_info"} {
		require.NoError(t, bus.PublishInbound(ctx, &chat.Event{Type: chat.EventSelection, Token: token}))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"projects", "ABC", "edit_info"}, got)
}

func TestMemoryBusOutbound(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	delivered := make(chan *chat.Outbound, 1)
	require.NoError(t, bus.SubscribeOutbound(func(msg *chat.Outbound) {
		delivered <- msg
	}))

	require.NoError(t, bus.PublishOutbound(context.Background(), &chat.Outbound{ChatID: 5, Text: "hi"}))

	select {
	case msg := <-delivered:
		assert.Equal(t, int64(5), msg.ChatID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestMemoryBusPublishAfterClose(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Close())

	err := bus.PublishInbound(context.Background(), &chat.Event{})
	assert.Error(t, err)
}
