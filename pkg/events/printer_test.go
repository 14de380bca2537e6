package events

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterFunc(t *testing.T) {
	var buf bytes.Buffer
	f := PrinterFunc(&buf, false)

	call := NewEvent(EventTypeToolCall, "42")
	call.ToolName = "web_search"
	call.Text = `{"query":"weather"}`
	require.NoError(t, f(context.Background(), call))
	assert.Empty(t, buf.String())

	voice := NewEvent(EventTypeVoice, "42")
	voice.MediaPath = "data/voice/a.mp3"
	require.NoError(t, f(context.Background(), voice))
	assert.Equal(t, "🔊 voice message for chat 42: data/voice/a.mp3\n", buf.String())

	buf.Reset()
	f = PrinterFunc(&buf, true)
	call.Round = 2
	require.NoError(t, f(context.Background(), call))
	assert.Equal(t, "tool: web_search\nround: 2\narguments: '{\"query\":\"weather\"}'\n\n", buf.String())
}
