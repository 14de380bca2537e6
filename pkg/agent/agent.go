// Package agent runs one conversational turn: it asks the model, dispatches
// the tools the model requests, feeds their results back, and repeats until
// the model produces a final answer or the round cap is reached.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ToolSet is the read-only set of tools offered to the model.
type ToolSet interface {
	Descriptors() []tools.Descriptor
	Invoke(ctx context.Context, call conversation.ToolCall) string
}

type Outcome string

const (
	OutcomeFinal        Outcome = "final"
	OutcomeExhausted    Outcome = "exhausted"
	OutcomeModelFailure Outcome = "model_failure"
)

// Turn describes how a call to Run ended.
type Turn struct {
	ID      string
	ChatID  string
	Rounds  int
	Outcome Outcome
	State   string
	Text    string
	Err     error
}

type Agent struct {
	store  *conversation.Store
	model  model.Client
	tools  ToolSet
	sink   events.Sink
	cfg    Config
	now    func() time.Time
	chatMu sync.Mutex
	chats  map[string]*sync.Mutex
}

type Option func(*Agent)

func WithStore(s *conversation.Store) Option {
	return func(a *Agent) { a.store = s }
}

func WithModel(m model.Client) Option {
	return func(a *Agent) { a.model = m }
}

func WithTools(t ToolSet) Option {
	return func(a *Agent) { a.tools = t }
}

func WithEventSink(s events.Sink) Option {
	return func(a *Agent) { a.sink = s }
}

func WithConfig(cfg Config) Option {
	return func(a *Agent) { a.cfg = cfg }
}

func WithMaxRounds(n int) Option {
	return func(a *Agent) { a.cfg.MaxRounds = n }
}

func WithFallbackText(s string) Option {
	return func(a *Agent) { a.cfg.FallbackText = s }
}

// WithClock replaces time.Now when rendering the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func New(opts ...Option) *Agent {
	a := &Agent{
		cfg:   DefaultConfig(),
		sink:  events.NopSink{},
		now:   time.Now,
		chats: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.store == nil {
		a.store = conversation.NewStore()
	}
	if a.cfg.MaxRounds <= 0 {
		a.cfg.MaxRounds = DefaultMaxRounds
	}
	if a.cfg.FallbackText == "" {
		a.cfg.FallbackText = DefaultFallbackText
	}
	if a.cfg.ReplyAck == "" {
		a.cfg.ReplyAck = DefaultReplyAck
	}
	return a
}

func (a *Agent) Store() *conversation.Store {
	return a.store
}

// Respond runs a turn and returns the text to send back to the user.
// It always returns some text.
func (a *Agent) Respond(ctx context.Context, chatID string, userText string, replyContext *string) string {
	return a.Run(ctx, chatID, userText, replyContext).Text
}

// Clear forgets the conversation of chatID.
func (a *Agent) Clear(chatID string) {
	unlock := a.lockChat(chatID)
	defer unlock()
	a.store.Clear(chatID)
}

// lockChat serializes turns of the same chat.
func (a *Agent) lockChat(chatID string) func() {
	a.chatMu.Lock()
	mu, ok := a.chats[chatID]
	if !ok {
		mu = &sync.Mutex{}
		a.chats[chatID] = mu
	}
	a.chatMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (a *Agent) Run(ctx context.Context, chatID string, userText string, replyContext *string) *Turn {
	if ctx == nil {
		ctx = context.Background()
	}
	unlock := a.lockChat(chatID)
	defer unlock()

	turn := &Turn{ID: uuid.NewString(), ChatID: chatID}
	state := newTurnState(chatID)
	ctx = events.WithSink(events.WithChatID(ctx, chatID), a.sink)

	a.publish(ctx, turn, events.EventTypeTurnStart, func(e *events.Event) { e.Text = userText })
	defer func() {
		turn.State = state.Current()
		a.publish(ctx, turn, events.EventTypeTurnEnd, func(e *events.Event) { e.Text = turn.Text })
		log.Debug().
			Str("chat_id", chatID).
			Str("turn_id", turn.ID).
			Int("rounds", turn.Rounds).
			Str("outcome", string(turn.Outcome)).
			Msg("agent: turn finished")
	}()

	fail := func(outcome Outcome, err error) *Turn {
		state.fire(ctx, eventFailed)
		turn.Outcome = outcome
		turn.Err = err
		turn.Text = a.cfg.FallbackText
		return turn
	}

	var incoming []conversation.Message
	if replyContext != nil && strings.TrimSpace(*replyContext) != "" {
		incoming = append(incoming,
			conversation.NewUserMessage(*replyContext),
			conversation.NewAssistantMessage(a.cfg.ReplyAck),
		)
	}
	incoming = append(incoming, conversation.NewUserMessage(userText))
	if err := a.store.Append(chatID, incoming...); err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("agent: could not record user message")
		return fail(OutcomeModelFailure, err)
	}

	var descriptors []tools.Descriptor
	if a.tools != nil {
		descriptors = a.tools.Descriptors()
	}
	prompt := a.systemPrompt(descriptors)

	for round := 1; round <= a.cfg.MaxRounds; round++ {
		turn.Rounds = round
		log.Debug().Str("chat_id", chatID).Int("round", round).Msg("agent: model step")

		history := a.store.History(chatID)
		resp, err := a.complete(ctx, model.PrependSystem(prompt, history), descriptors)
		if err != nil {
			log.Warn().Err(err).Str("chat_id", chatID).Int("round", round).Msg("agent: model failure")
			return fail(OutcomeModelFailure, err)
		}

		if resp.Kind == model.KindFinalText {
			a.publish(ctx, turn, events.EventTypeModelResponse, func(e *events.Event) { e.Text = resp.Text })
			if err := a.store.Append(chatID, conversation.NewAssistantMessage(resp.Text)); err != nil {
				log.Error().Err(err).Str("chat_id", chatID).Msg("agent: could not record answer")
			}
			state.fire(ctx, eventFinal)
			turn.Outcome = OutcomeFinal
			turn.Text = resp.Text
			return turn
		}

		state.fire(ctx, eventToolCalls)
		calls := assignCallIDs(history, resp.ToolCalls)
		if err := a.store.Append(chatID, conversation.NewToolCallMessage(resp.Text, calls...)); err != nil {
			log.Error().Err(err).Str("chat_id", chatID).Msg("agent: could not record tool calls")
			return fail(OutcomeModelFailure, err)
		}

		// one batch: results must not be trimmed apart from their calls
		results := make([]conversation.Message, 0, len(calls))
		for _, call := range calls {
			result := a.invoke(ctx, turn, round, call)
			results = append(results, conversation.NewToolResultMessage(call.ID, call.Name, result))
		}
		if err := a.store.Append(chatID, results...); err != nil {
			log.Error().Err(err).Str("chat_id", chatID).Msg("agent: could not record tool results")
			return fail(OutcomeModelFailure, err)
		}
		state.fire(ctx, eventToolsResolved)
	}

	log.Warn().Str("chat_id", chatID).Int("max_rounds", a.cfg.MaxRounds).Msg("agent: maximum rounds reached")
	state.fire(ctx, eventExhausted)
	turn.Outcome = OutcomeExhausted
	turn.Text = a.cfg.FallbackText
	return turn
}

func (a *Agent) complete(
	ctx context.Context,
	msgs []conversation.Message,
	descriptors []tools.Descriptor,
) (*model.Response, error) {
	if a.model == nil {
		return nil, model.NewError("none", nil)
	}
	resp, err := a.model.Complete(ctx, msgs, descriptors)
	if err != nil {
		return nil, err
	}
	return model.Validate("agent", resp)
}

func (a *Agent) invoke(ctx context.Context, turn *Turn, round int, call conversation.ToolCall) string {
	a.publish(ctx, turn, events.EventTypeToolCall, func(e *events.Event) {
		e.Round = round
		e.ToolName = call.Name
		e.CallID = call.ID
		e.Text = string(call.Arguments)
	})

	var result string
	if a.tools == nil {
		result = tools.ErrorResult("unknown tool %q", call.Name)
	} else {
		result = a.tools.Invoke(ctx, call)
	}

	a.publish(ctx, turn, events.EventTypeToolResult, func(e *events.Event) {
		e.Round = round
		e.ToolName = call.Name
		e.CallID = call.ID
		e.Text = result
	})
	return result
}

func (a *Agent) systemPrompt(descriptors []tools.Descriptor) string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	loc := a.cfg.location()
	prompt, err := model.RenderSystemPrompt(a.cfg.SystemPrompt, model.PromptData{
		Name:  a.cfg.AssistantName,
		Now:   a.now().In(loc),
		Zone:  loc.String(),
		Tools: names,
	})
	if err != nil {
		log.Warn().Err(err).Msg("agent: could not render system prompt")
		return ""
	}
	return prompt
}

func (a *Agent) publish(ctx context.Context, turn *Turn, typ events.EventType, fill func(e *events.Event)) {
	e := events.NewEvent(typ, turn.ChatID)
	e.TurnID = turn.ID
	if fill != nil {
		fill(&e)
	}
	if err := a.sink.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event_type", string(typ)).Msg("agent: could not publish event")
	}
}

// assignCallIDs gives every call an id that is unique within the session.
func assignCallIDs(history []conversation.Message, calls []conversation.ToolCall) []conversation.ToolCall {
	seen := map[string]bool{}
	for _, m := range history {
		for _, c := range m.ToolCalls {
			seen[c.ID] = true
		}
	}
	ret := make([]conversation.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" || seen[c.ID] {
			c.ID = "call_" + uuid.NewString()
		}
		seen[c.ID] = true
		ret[i] = c
	}
	return ret
}
