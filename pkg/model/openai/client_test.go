package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, seen *map[string]interface{}) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if seen != nil {
			require.NoError(t, json.Unmarshal(b, seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	c, err := NewClient(Settings{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	return c
}

type lookupInput struct {
	Name string `json:"name" jsonschema:"required"`
}

func TestCompleteToolCalls(t *testing.T) {
	var seen map[string]interface{}
	srv := newTestServer(t, 200, `{
		"id": "x", "object": "chat.completion", "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
			"role": "assistant", "content": "",
			"tool_calls": [{"id": "call_1", "type": "function",
				"function": {"name": "contact_lookup", "arguments": "{\"operation\":\"get\",\"name\":\"laura\"}"}}]
		}}]
	}`, &seen)
	c := newTestClient(t, srv)

	adapter := tools.NewFuncAdapter("contact_lookup", "finds contacts", func(context.Context, lookupInput) (string, error) {
		return "", nil
	})
	msgs := []conversation.Message{
		conversation.NewSystemMessage("be nice"),
		conversation.NewUserMessage("what is laura's email?"),
	}
	resp, err := c.Complete(context.Background(), msgs, []tools.Descriptor{adapter.Descriptor()})
	require.NoError(t, err)
	require.Equal(t, model.KindToolCalls, resp.Kind)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "contact_lookup", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"operation":"get","name":"laura"}`, string(resp.ToolCalls[0].Arguments))

	assert.Equal(t, "auto", seen["tool_choice"])
	require.Len(t, seen["tools"], 1)
	require.Len(t, seen["messages"], 2)
}

func TestCompleteFinalText(t *testing.T) {
	srv := newTestServer(t, 200, `{"choices": [{"message": {"role": "assistant", "content": "4"}}]}`, nil)
	c := newTestClient(t, srv)

	resp, err := c.Complete(context.Background(), []conversation.Message{conversation.NewUserMessage("what's 2+2?")}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.KindFinalText, resp.Kind)
	assert.Equal(t, "4", resp.Text)
}

func TestCompleteFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: 500, body: `{"error": {"message": "boom"}}`},
		{name: "no choices", status: 200, body: `{"choices": []}`},
		{name: "empty message", status: 200, body: `{"choices": [{"message": {"role": "assistant", "content": ""}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, newTestServer(t, tt.status, tt.body, nil))
			_, err := c.Complete(context.Background(), []conversation.Message{conversation.NewUserMessage("hi")}, nil)
			require.Error(t, err)
			assert.True(t, model.IsModelFailure(err))
		})
	}
}

func TestToChatMessagesKeepsCorrelation(t *testing.T) {
	call := conversation.ToolCall{ID: "call_9", Name: "bus_arrival_query", Arguments: json.RawMessage(`{"bus_stop_code":"83139"}`)}
	out := toChatMessages([]conversation.Message{
		conversation.NewToolCallMessage("", call),
		conversation.NewToolResultMessage("call_9", "bus_arrival_query", "Bus 15: Arriving"),
	})
	require.Len(t, out, 2)
	assert.Equal(t, "call_9", out[0].ToolCalls[0].ID)
	assert.Equal(t, "call_9", out[1].ToolCallID)
	assert.Equal(t, "tool", out[1].Role)
}

func TestNormalizeArguments(t *testing.T) {
	assert.Equal(t, `{}`, string(normalizeArguments("")))
	assert.Equal(t, `{"a":1}`, string(normalizeArguments(`{"a":1}`)))
	assert.Equal(t, `"{broken"`, string(normalizeArguments(`{broken`)))
}
