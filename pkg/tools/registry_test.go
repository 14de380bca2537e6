package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addInput struct {
	A int `json:"a" jsonschema:"required,description=first operand"`
	B int `json:"b" jsonschema:"required,description=second operand"`
}

type greetInput struct {
	Name string `json:"name,omitempty" jsonschema:"description=who to greet"`
	Mood string `json:"mood,omitempty" jsonschema:"enum=happy,enum=grumpy"`
}

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	add := NewFuncAdapter("Add", "adds two numbers", func(_ context.Context, in addInput) (string, error) {
		return strconv.Itoa(in.A + in.B), nil
	})
	greet := NewFuncAdapter("greet", "greets", func(_ context.Context, in greetInput) (string, error) {
		if in.Name == "" {
			return "", errors.New("nobody to greet")
		}
		return "hello " + in.Name, nil
	})
	boom := NewFuncAdapter("boom", "panics", func(_ context.Context, _ struct{}) (string, error) {
		panic("kaboom")
	})
	slow := NewFuncAdapter("slow", "waits for the context", func(ctx context.Context, _ struct{}) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	r, err := NewRegistry(cfg, add, greet, boom, slow)
	require.NoError(t, err)
	return r
}

func call(name, args string) conversation.ToolCall {
	return conversation.ToolCall{ID: "call-1", Name: name, Arguments: json.RawMessage(args)}
}

func TestRegistryDescriptorsSorted(t *testing.T) {
	r := newTestRegistry(t, DefaultConfig())
	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"add", "boom", "greet", "slow"}, names)

	d := r.Descriptors()[0]
	require.NotNil(t, d.Parameters)
	assert.Equal(t, "object", d.Parameters.Type)
	assert.ElementsMatch(t, []string{"a", "b"}, d.Parameters.Required)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	a := NewFuncAdapter("dup", "", func(context.Context, struct{}) (string, error) { return "", nil })
	b := NewFuncAdapter("dup", "", func(context.Context, struct{}) (string, error) { return "", nil })
	_, err := NewRegistry(DefaultConfig(), a, b)
	require.Error(t, err)
}

func TestRegistryInvoke(t *testing.T) {
	r := newTestRegistry(t, DefaultConfig().WithTimeout(50*time.Millisecond))

	tests := []struct {
		name     string
		call     conversation.ToolCall
		expected string
		isError  bool
	}{
		{name: "ok", call: call("add", `{"a":2,"b":2}`), expected: "4"},
		{name: "unknown tool", call: call("teleport", `{}`), expected: `Error: unknown tool "teleport"`, isError: true},
		{name: "missing required", call: call("add", `{"a":2}`), isError: true},
		{name: "bad enum", call: call("greet", `{"name":"x","mood":"sad"}`), isError: true},
		{name: "adapter error", call: call("greet", `{}`), expected: "Error: nobody to greet", isError: true},
		{name: "null arguments", call: call("greet", `null`), expected: "Error: nobody to greet", isError: true},
		{name: "panic", call: call("boom", `{}`), isError: true},
		{name: "timeout", call: call("slow", `{}`), isError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Invoke(context.Background(), tt.call)
			assert.Equal(t, tt.isError, IsError(got), got)
			if tt.expected != "" {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestRegistryAllowList(t *testing.T) {
	r := newTestRegistry(t, DefaultConfig().WithAllowed("gr*", "add"))
	assert.Len(t, r.Descriptors(), 2)
	assert.Equal(t, "hello bob", r.Invoke(context.Background(), call("greet", `{"name":"bob"}`)))
	assert.Equal(t, `Error: tool "boom" is not allowed`, r.Invoke(context.Background(), call("boom", `{}`)))
}

func TestRegistryWithoutValidation(t *testing.T) {
	args := `{"name":"bob","mood":"sad"}`

	strict := newTestRegistry(t, DefaultConfig())
	assert.True(t, IsError(strict.Invoke(context.Background(), call("greet", args))))

	lax := newTestRegistry(t, DefaultConfig().WithValidate(false))
	assert.Equal(t, "hello bob", lax.Invoke(context.Background(), call("greet", args)))
}
