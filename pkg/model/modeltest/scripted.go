// Package modeltest provides a deterministic model client for tests.
package modeltest

import (
	"context"
	"sync"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// Step is one scripted reply: a response, or an error.
type Step struct {
	Response *model.Response
	Err      error
}

// Request records what the client was called with.
type Request struct {
	Messages    []conversation.Message
	Descriptors []tools.Descriptor
}

// Scripted replays Steps in order. When the script runs out it repeats the
// Fallback step, or fails if there is none.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	Fallback *Step
	requests []Request
}

var _ model.Client = (*Scripted)(nil)

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

func Reply(r *model.Response) Step {
	return Step{Response: r}
}

func Fail(err error) Step {
	return Step{Err: model.NewError("scripted", err)}
}

// Always returns a client that gives the same reply forever.
func Always(s Step) *Scripted {
	return &Scripted{Fallback: &s}
}

func (s *Scripted) Complete(
	_ context.Context,
	messages []conversation.Message,
	descriptors []tools.Descriptor,
) (*model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Messages:    clone.Clone(messages).([]conversation.Message),
		Descriptors: descriptors,
	})

	var step Step
	switch {
	case len(s.steps) > 0:
		step = s.steps[0]
		s.steps = s.steps[1:]
	case s.Fallback != nil:
		step = *s.Fallback
	default:
		return nil, model.NewError("scripted", errors.New("script exhausted"))
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return clone.Clone(step.Response).(*model.Response), nil
}

func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request{}, s.requests...)
}

func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
