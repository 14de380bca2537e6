package openai

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const provider = "openai"

type Settings struct {
	APIKey      string  `mapstructure:"api-key" yaml:"api-key"`
	BaseURL     string  `mapstructure:"base-url" yaml:"base-url"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max-tokens" yaml:"max-tokens"`
}

func DefaultSettings() Settings {
	return Settings{
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
	}
}

// Client talks to the OpenAI chat completions API, or any server speaking it.
type Client struct {
	client   *go_openai.Client
	settings Settings
}

var _ model.Client = (*Client)(nil)

func MakeClient(s Settings) *go_openai.Client {
	config := go_openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		config.BaseURL = s.BaseURL
	}
	return go_openai.NewClientWithConfig(config)
}

func NewClient(s Settings) (*Client, error) {
	if s.APIKey == "" && s.BaseURL == "" {
		return nil, errors.New("openai: no api key configured")
	}
	if s.Model == "" {
		s.Model = DefaultSettings().Model
	}
	return &Client{client: MakeClient(s), settings: s}, nil
}

func (c *Client) Complete(
	ctx context.Context,
	messages []conversation.Message,
	descriptors []tools.Descriptor,
) (*model.Response, error) {
	req := go_openai.ChatCompletionRequest{
		Model:       c.settings.Model,
		Messages:    toChatMessages(messages),
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	}
	if len(descriptors) > 0 {
		ts, err := toTools(descriptors)
		if err != nil {
			return nil, model.NewError(provider, err)
		}
		req.Tools = ts
		req.ToolChoice = "auto"
	}

	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("openai: chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, model.NewError(provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, model.NewError(provider, model.ErrEmptyResponse)
	}
	return model.Validate(provider, fromChatMessage(resp.Choices[0].Message))
}

func toChatMessages(messages []conversation.Message) []go_openai.ChatCompletionMessage {
	ret := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case conversation.RoleSystem:
			ret = append(ret, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: m.Text})
		case conversation.RoleUser:
			ret = append(ret, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: m.Text})
		case conversation.RoleAssistant:
			msg := go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleAssistant, Content: m.Text}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, go_openai.ToolCall{
					ID:   tc.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			ret = append(ret, msg)
		case conversation.RoleTool:
			ret = append(ret, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    m.Text,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return ret
}

func toTools(descriptors []tools.Descriptor) ([]go_openai.Tool, error) {
	ret := make([]go_openai.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		params := json.RawMessage(`{"type":"object","properties":{}}`)
		if d.Parameters != nil {
			b, err := json.Marshal(d.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "marshal parameters of %s", d.Name)
			}
			params = b
		}
		ret = append(ret, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: go_openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return ret, nil
}

func fromChatMessage(msg go_openai.ChatCompletionMessage) *model.Response {
	if len(msg.ToolCalls) > 0 {
		calls := make([]conversation.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, conversation.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: normalizeArguments(tc.Function.Arguments),
			})
		}
		return model.ToolCalls(calls...)
	}
	if msg.Content == "" {
		return nil
	}
	return model.FinalText(msg.Content)
}

// normalizeArguments keeps valid JSON as is. Anything else is kept as a JSON
// string so the registry can report it back to the model.
func normalizeArguments(args string) json.RawMessage {
	if args == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	b, _ := json.Marshal(args)
	return b
}
