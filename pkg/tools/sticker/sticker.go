// Package sticker reacts to stickers and photos with an OpenAI vision model.
package sticker

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/model/openai"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"
)

const Name = "sticker_reaction"

const reactionPrompt = "Reply in this format: <IMAGE DESCRIPTION>: Some description of the image. " +
	"<WITTY RESPONSE>: A one sentence witty and humorous in reponse to the image. " +
	"Include emojis to keep this lighthearted and fun."

const maxImageBytes = 10 << 20

// Completer is the part of *go_openai.Client used here.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
}

type Input struct {
	ImagePath string `json:"image_path" jsonschema:"required,description=The path to the image to describe"`
}

type Tool struct {
	client Completer
	model  string
	fs     afero.Fs
}

func New(client Completer, modelName string, fs afero.Fs) *Tool {
	if modelName == "" {
		modelName = openai.DefaultSettings().Model
	}
	return &Tool{client: client, model: modelName, fs: fs}
}

// NewFromSettings uses the same OpenAI account as the chat model.
func NewFromSettings(s openai.Settings, fs afero.Fs) *Tool {
	return New(openai.MakeClient(s), s.Model, fs)
}

func (t *Tool) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(Name,
		"After receiving a sticker, use this tool to formulate a reaction to it.",
		t.Run)
}

// DataURI reads an image and encodes it as a data URI.
func DataURI(fs afero.Fs, path string) (string, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	if len(b) == 0 {
		return "", errors.Errorf("%s is empty", path)
	}
	if len(b) > maxImageBytes {
		return "", errors.Errorf("%s is larger than %d bytes", path, maxImageBytes)
	}
	mime := http.DetectContentType(b)
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.Errorf("%s is not an image (%s)", path, mime)
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(b)), nil
}

func (t *Tool) Run(ctx context.Context, in Input) (string, error) {
	uri, err := DataURI(t.fs, in.ImagePath)
	if err != nil {
		return "", err
	}

	req := go_openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []go_openai.ChatCompletionMessage{{
			Role: go_openai.ChatMessageRoleUser,
			MultiContent: []go_openai.ChatMessagePart{
				{Type: go_openai.ChatMessagePartTypeText, Text: reactionPrompt},
				{
					Type: go_openai.ChatMessagePartTypeImageURL,
					ImageURL: &go_openai.ChatMessageImageURL{
						URL:    uri,
						Detail: go_openai.ImageURLDetailAuto,
					},
				},
			},
		}},
	}
	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "vision request failed")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("vision model returned no description")
	}
	log.Debug().Str("image", in.ImagePath).Str("model", t.model).Msg("sticker: reaction generated")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
