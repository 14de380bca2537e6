// Package model defines the contract between the agent loop and a language model.
package model

import (
	"context"
	"fmt"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
)

type ResponseKind string

const (
	KindFinalText ResponseKind = "final_text"
	KindToolCalls ResponseKind = "tool_calls"
)

// Response is either a final answer or a list of tool calls, never both.
type Response struct {
	Kind      ResponseKind
	Text      string
	ToolCalls []conversation.ToolCall
}

func FinalText(text string) *Response {
	return &Response{Kind: KindFinalText, Text: text}
}

func ToolCalls(calls ...conversation.ToolCall) *Response {
	return &Response{Kind: KindToolCalls, ToolCalls: calls}
}

// Client sends the ordered history and the tool descriptors to a model.
type Client interface {
	Complete(ctx context.Context, messages []conversation.Message, descriptors []tools.Descriptor) (*Response, error)
}

// Error is returned by clients when the model could not be reached or its
// output could not be understood.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model failure (%s): %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(provider string, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &Error{Provider: provider, Err: err}
}

var ErrEmptyResponse = errors.New("model returned neither text nor tool calls")

func IsModelFailure(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Validate turns a malformed response into a model failure.
func Validate(provider string, r *Response) (*Response, error) {
	if r == nil {
		return nil, NewError(provider, ErrEmptyResponse)
	}
	switch r.Kind {
	case KindToolCalls:
		if len(r.ToolCalls) == 0 {
			return nil, NewError(provider, errors.New("tool call response without calls"))
		}
		for _, c := range r.ToolCalls {
			if c.Name == "" {
				return nil, NewError(provider, errors.New("tool call without a name"))
			}
		}
	case KindFinalText:
	default:
		return nil, NewError(provider, errors.Errorf("unknown response kind %q", r.Kind))
	}
	return r, nil
}
