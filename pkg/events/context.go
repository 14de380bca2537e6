package events

import (
	"context"

	"github.com/pkg/errors"
)

type ctxKey int

const (
	ctxKeyChatID ctxKey = iota
	ctxKeySink
)

// WithChatID records which chat the current turn belongs to, so tools with
// side effects know where to deliver their output.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, ctxKeyChatID, chatID)
}

func ChatIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyChatID).(string)
	return v, ok && v != ""
}

func WithSink(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, ctxKeySink, sink)
}

func SinkFrom(ctx context.Context) Sink {
	if s, ok := ctx.Value(ctxKeySink).(Sink); ok && s != nil {
		return s
	}
	return NopSink{}
}

var ErrNoSink = errors.New("no event sink to deliver to")

// Deliver publishes e to the sink stored in ctx and returns the error, for
// events the user has to receive. A missing sink or a NopSink is an error.
func Deliver(ctx context.Context, e Event) error {
	s := SinkFrom(ctx)
	if _, nop := s.(NopSink); nop {
		return ErrNoSink
	}
	return s.Publish(ctx, e)
}
