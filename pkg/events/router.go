package events

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultTopic = "jiminy.events"

// ErrNotRunning is returned by Publish before Run has started the handlers
// or after Close. The go channel would drop such events silently.
var ErrNotRunning = errors.New("event router is not running")

// Router is an in-process event bus built on a watermill go channel.
// It implements Sink so the agent and tools can publish into it.
type Router struct {
	logger     watermill.LoggerAdapter
	topic      string
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	closed     atomic.Bool
}

var _ Sink = (*Router)(nil)

type RouterOption func(*Router)

func WithLogger(logger watermill.LoggerAdapter) RouterOption {
	return func(r *Router) { r.logger = logger }
}

func WithTopic(topic string) RouterOption {
	return func(r *Router) { r.topic = topic }
}

// WithVerbose sends watermill's own logs to the global zerolog logger.
func WithVerbose(verbose bool) RouterOption {
	return func(r *Router) {
		if verbose {
			r.logger = NewWatermillLogger(log.Logger)
		}
	}
}

func NewRouter(options ...RouterOption) (*Router, error) {
	ret := &Router{
		logger: watermill.NopLogger{},
		topic:  DefaultTopic,
	}
	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, errors.Wrap(err, "create watermill router")
	}
	ret.router = router
	return ret, nil
}

func (r *Router) Topic() string {
	return r.topic
}

func (r *Router) Publish(ctx context.Context, e Event) error {
	if !r.IsRunning() {
		return ErrNotRunning
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("chat_id", e.ChatID)
	msg.Metadata.Set("event_type", string(e.Type))
	msg.SetContext(ctx)
	if err := r.Publisher.Publish(r.topic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", e.Type)
	}
	log.Trace().Str("topic", r.topic).Str("event_type", string(e.Type)).Msg("events: published")
	return nil
}

// AddHandler registers f for every event on the router's topic. Malformed
// messages are logged and acked.
func (r *Router) AddHandler(name string, f func(ctx context.Context, e Event) error) {
	r.router.AddNoPublisherHandler(name, r.topic, r.Subscriber, func(msg *message.Message) error {
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.UUID).Msg("events: dropping malformed event")
			return nil
		}
		return f(msg.Context(), e)
	})
}

func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) IsRunning() bool {
	return !r.closed.Load() && r.router.IsRunning()
}

func (r *Router) Close() error {
	r.closed.Store(true)
	if err := r.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("events: failed to close pubsub")
	}
	if err := r.router.Close(); err != nil {
		log.Error().Err(err).Msg("events: failed to close router")
	}
	return nil
}
