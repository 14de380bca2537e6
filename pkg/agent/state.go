package agent

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"
)

const (
	StateAwaitingModel    = "awaiting_model"
	StateDispatchingTools = "dispatching_tools"
	StateTerminated       = "terminated"

	eventToolCalls     = "tool_calls"
	eventToolsResolved = "tools_resolved"
	eventFinal         = "final"
	eventExhausted     = "exhausted"
	eventFailed        = "failed"
)

// turnState tracks where a turn is: waiting on the model, running tools, or done.
type turnState struct {
	fsm    *fsm.FSM
	chatID string
}

func newTurnState(chatID string) *turnState {
	ts := &turnState{chatID: chatID}
	ts.fsm = fsm.NewFSM(
		StateAwaitingModel,
		fsm.Events{
			{Name: eventToolCalls, Src: []string{StateAwaitingModel}, Dst: StateDispatchingTools},
			{Name: eventToolsResolved, Src: []string{StateDispatchingTools}, Dst: StateAwaitingModel},
			{Name: eventFinal, Src: []string{StateAwaitingModel}, Dst: StateTerminated},
			{Name: eventExhausted, Src: []string{StateAwaitingModel, StateDispatchingTools}, Dst: StateTerminated},
			{Name: eventFailed, Src: []string{StateAwaitingModel, StateDispatchingTools}, Dst: StateTerminated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Trace().
					Str("chat_id", ts.chatID).
					Str("event", e.Event).
					Str("from", e.Src).
					Str("to", e.Dst).
					Msg("agent: turn state")
			},
		},
	)
	return ts
}

func (ts *turnState) fire(ctx context.Context, event string) {
	if err := ts.fsm.Event(ctx, event); err != nil {
		log.Error().Err(err).Str("chat_id", ts.chatID).Str("event", event).Msg("agent: invalid turn transition")
	}
}

func (ts *turnState) Current() string {
	return ts.fsm.Current()
}
