package model

import (
	"testing"
	"time"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSystemPrompt(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	now := time.Date(2024, 3, 4, 9, 30, 0, 0, loc)

	s, err := RenderSystemPrompt("", PromptData{Now: now, Tools: []string{"contact_lookup", "web_search"}})
	require.NoError(t, err)
	assert.Contains(t, s, "You are Jiminy")
	assert.Contains(t, s, "Monday, 4 March 2024")
	assert.Contains(t, s, "09:30 (Asia/Singapore)")
	assert.Contains(t, s, "contact_lookup, web_search")
}

func TestRenderSystemPromptBadTemplate(t *testing.T) {
	_, err := RenderSystemPrompt("{{ .Nope", PromptData{})
	require.Error(t, err)
}

func TestPrependSystem(t *testing.T) {
	msgs := []conversation.Message{conversation.NewUserMessage("hi")}
	out := PrependSystem("sys", msgs)
	require.Len(t, out, 2)
	assert.Equal(t, conversation.RoleSystem, out[0].Role)
	assert.Len(t, msgs, 1)
	assert.Equal(t, msgs, PrependSystem("", msgs))
}

func TestValidate(t *testing.T) {
	_, err := Validate("x", nil)
	assert.True(t, IsModelFailure(err))
	assert.True(t, errors.Is(err, ErrEmptyResponse))

	_, err = Validate("x", ToolCalls())
	assert.True(t, IsModelFailure(err))

	_, err = Validate("x", ToolCalls(conversation.ToolCall{ID: "1"}))
	assert.True(t, IsModelFailure(err))

	r, err := Validate("x", FinalText("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Text)

	assert.False(t, IsModelFailure(errors.New("plain")))
}
