package sticker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	answer string
	err    error
	last   go_openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return go_openai.ChatCompletionResponse{}, f.err
	}
	return go_openai.ChatCompletionResponse{
		Choices: []go_openai.ChatCompletionChoice{{Message: go_openai.ChatCompletionMessage{Content: f.answer}}},
	}, nil
}

// smallest valid PNG header is enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestReaction(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/sticker.png", pngBytes, 0o644))
	f := &fakeCompleter{answer: " <IMAGE DESCRIPTION>: a cat. <WITTY RESPONSE>: purrfect 😺 "}

	a := New(f, "", fs).Adapter()
	out := a.Invoke(context.Background(), json.RawMessage(`{"image_path":"/data/sticker.png"}`))
	assert.Equal(t, "<IMAGE DESCRIPTION>: a cat. <WITTY RESPONSE>: purrfect 😺", out)

	assert.Equal(t, "gpt-4o-mini", f.last.Model)
	require.Len(t, f.last.Messages, 1)
	parts := f.last.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, reactionPrompt, parts[0].Text)
	require.NotNil(t, parts[1].ImageURL)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestReactionFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/empty.webp", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/ok.png", pngBytes, 0o644))

	tests := []struct {
		name string
		path string
		f    *fakeCompleter
	}{
		{name: "missing file", path: "/data/nope.png", f: &fakeCompleter{answer: "x"}},
		{name: "empty file", path: "/data/empty.webp", f: &fakeCompleter{answer: "x"}},
		{name: "api error", path: "/data/ok.png", f: &fakeCompleter{err: errors.New("rate limited")}},
		{name: "no answer", path: "/data/ok.png", f: &fakeCompleter{answer: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := New(tt.f, "gpt-4o", fs).Adapter().Invoke(context.Background(), json.RawMessage(`{"image_path":"`+tt.path+`"}`))
			assert.True(t, tools.IsError(out), out)
		})
	}
}

func TestDataURIRejectsNonImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/s.bin", []byte("not really an image"), 0o644))
	_, err := DataURI(fs, "/s.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")

	f := &fakeCompleter{answer: "x"}
	out := New(f, "", fs).Adapter().Invoke(context.Background(), json.RawMessage(`{"image_path":"/s.bin"}`))
	assert.True(t, strings.HasPrefix(out, "Error:"), out)
	assert.Nil(t, f.last.Messages)
}

func TestDataURIWebP(t *testing.T) {
	fs := afero.NewMemMapFs()
	webp := append([]byte("RIFF\x10\x00\x00\x00WEBPVP8 "), make([]byte, 16)...)
	require.NoError(t, afero.WriteFile(fs, "/sticker.webp", webp, 0o644))
	uri, err := DataURI(fs, "/sticker.webp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/webp;base64,"), uri)
}
