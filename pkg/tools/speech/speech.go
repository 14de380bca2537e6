// Package speech turns text into a voice message with ElevenLabs. The audio
// is written to the data directory and handed to the chat's delivery channel
// as a media event. The tool only reports success once that channel took it.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/helpers"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	Name           = "text_to_speech"
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultVoiceID = "qJT4OuZyfpn7QbUnrLln"
	DefaultModelID = "eleven_monolingual_v1"
	SuccessText    = "Successfully generated speech and queued it for delivery"
)

type Input struct {
	Text    string `json:"text" jsonschema:"required,description=The text to convert to speech"`
	VoiceID string `json:"voice_id,omitempty" jsonschema:"description=The ElevenLabs voice ID to use"`
}

type Tool struct {
	apiKey  string
	baseURL string
	modelID string
	fs      afero.Fs
	dir     string
	http    *http.Client
}

type Option func(*Tool)

func WithBaseURL(u string) Option {
	return func(t *Tool) { t.baseURL = strings.TrimRight(u, "/") }
}

func WithModelID(id string) Option {
	return func(t *Tool) { t.modelID = id }
}

func WithTimeout(d time.Duration) Option {
	return func(t *Tool) { t.http = helpers.NewHTTPClient(d) }
}

// New creates the tool. Audio files are written to dir on fs.
func New(apiKey string, fs afero.Fs, dir string, opts ...Option) *Tool {
	t := &Tool{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		modelID: DefaultModelID,
		fs:      fs,
		dir:     dir,
		http:    helpers.NewHTTPClient(60 * time.Second),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tool) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(Name,
		"Convert text to speech and send it to the user as a voice message. "+
			"Use this tool when you want to speak to the user verbally.",
		t.Run)
}

// Synthesize returns mp3 audio for text.
func (t *Tool) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	body, err := json.Marshal(map[string]string{"text": text, "model_id": t.modelID})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequest(http.MethodPost, t.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", t.apiKey)

	audio, err := helpers.Do(ctx, t.http, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate speech")
	}
	return audio, nil
}

func (t *Tool) Run(ctx context.Context, in Input) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", errors.New("text must not be empty")
	}
	chatID, ok := events.ChatIDFrom(ctx)
	if !ok {
		return "", errors.New("no chat to deliver the voice message to")
	}

	audio, err := t.Synthesize(ctx, in.Text, in.VoiceID)
	if err != nil {
		return "", err
	}

	if err := t.fs.MkdirAll(t.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", t.dir)
	}
	path := filepath.Join(t.dir, fmt.Sprintf("speech-%s.mp3", uuid.NewString()))
	if err := afero.WriteFile(t.fs, path, audio, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	log.Debug().Str("chat_id", chatID).Str("path", path).Int("bytes", len(audio)).Msg("speech: audio written")

	e := events.NewEvent(events.EventTypeVoice, chatID)
	e.ToolName = Name
	e.MediaPath = path
	e.Text = in.Text
	if err := events.Deliver(ctx, e); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("speech: voice message not delivered")
		_ = t.fs.Remove(path)
		return "", errors.Wrap(err, "voice message could not be delivered")
	}

	return SuccessText, nil
}
