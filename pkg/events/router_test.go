package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDeliversEvents(t *testing.T) {
	r, err := NewRouter()
	require.NoError(t, err)

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})
	r.AddHandler("collect", func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		if len(got) == 2 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = r.Run(ctx)
	}()
	<-r.Running()

	require.NoError(t, r.Publish(ctx, NewEvent(EventTypeTurnStart, "42")))
	e := NewEvent(EventTypeVoice, "42")
	e.MediaPath = "/tmp/out.mp3"
	require.NoError(t, r.Publish(ctx, e))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventTypeTurnStart, got[0].Type)
	assert.Equal(t, "/tmp/out.mp3", got[1].MediaPath)
	assert.NoError(t, r.Close())
	assert.ErrorIs(t, r.Publish(ctx, e), ErrNotRunning)
}

func TestDeliver(t *testing.T) {
	e := NewEvent(EventTypeVoice, "1")
	assert.ErrorIs(t, Deliver(context.Background(), e), ErrNoSink)
	assert.ErrorIs(t, Deliver(WithSink(context.Background(), NopSink{}), e), ErrNoSink)

	sink := &CollectingSink{}
	ctx := WithSink(WithChatID(context.Background(), "7"), sink)
	id, ok := ChatIDFrom(ctx)
	require.True(t, ok)
	require.NoError(t, Deliver(ctx, NewEvent(EventTypeVoice, id)))
	require.Len(t, sink.OfType(EventTypeVoice), 1)
}

func TestRouterRejectsPublishWhenNotRunning(t *testing.T) {
	r, err := NewRouter()
	require.NoError(t, err)
	r.AddHandler("noop", func(context.Context, Event) error { return nil })

	ctx := WithSink(WithChatID(context.Background(), "7"), r)
	assert.ErrorIs(t, r.Publish(ctx, NewEvent(EventTypeVoice, "7")), ErrNotRunning)
	assert.ErrorIs(t, Deliver(ctx, NewEvent(EventTypeVoice, "7")), ErrNotRunning)
	assert.NoError(t, r.Close())
}

func TestNewEventFromJsonRejectsUntyped(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"chat_id":"1"}`))
	require.Error(t, err)
}
