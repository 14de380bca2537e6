// Package ollama drives a local ollama model. The pinned ollama API has no
// native tool calling, so tools are offered through a JSON action protocol:
// the model is asked to answer with a single JSON object naming either a final
// answer or the tools it wants to run.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/jmorganca/ollama/api"
	"github.com/lithammer/shortuuid/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const provider = "ollama"

type Settings struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

func DefaultSettings() Settings {
	return Settings{Model: "gemma3:4b", Temperature: 0.2}
}

// Chatter is the part of *api.Client the model client needs.
type Chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

type Client struct {
	chatter  Chatter
	settings Settings
}

var _ model.Client = (*Client)(nil)

// NewClient connects to the server named by OLLAMA_HOST (default localhost).
func NewClient(s Settings) (*Client, error) {
	c, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "create ollama client")
	}
	return NewClientWithChatter(c, s), nil
}

func NewClientWithChatter(chatter Chatter, s Settings) *Client {
	if s.Model == "" {
		s.Model = DefaultSettings().Model
	}
	return &Client{chatter: chatter, settings: s}
}

// action is the JSON object the model answers with.
type action struct {
	Action    string          `json:"action"`
	Answer    string          `json:"answer,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Calls     []actionCall    `json:"calls,omitempty"`
}

type actionCall struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (c *Client) Complete(
	ctx context.Context,
	messages []conversation.Message,
	descriptors []tools.Descriptor,
) (*model.Response, error) {
	protocol, err := protocolPrompt(descriptors)
	if err != nil {
		return nil, model.NewError(provider, err)
	}
	stream := false
	req := &api.ChatRequest{
		Model:    c.settings.Model,
		Messages: toMessages(protocol, messages),
		Stream:   &stream,
		Format:   "json",
		Options: map[string]interface{}{
			"temperature": c.settings.Temperature,
		},
	}

	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("tools", len(descriptors)).
		Msg("ollama: chat request")

	content := ""
	err = c.chatter.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, model.NewError(provider, err)
	}
	return model.Validate(provider, parseAction(content))
}

func parseAction(content string) *model.Response {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	var a action
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		log.Debug().Err(err).Str("content", content).Msg("ollama: answer is not an action object")
		return nil
	}

	calls := a.Calls
	if a.Tool != "" {
		calls = append([]actionCall{{Tool: a.Tool, Arguments: a.Arguments}}, calls...)
	}
	if a.Action == "tool" || (a.Action == "" && len(calls) > 0) {
		if len(calls) == 0 {
			return nil
		}
		ret := make([]conversation.ToolCall, 0, len(calls))
		for _, ac := range calls {
			args := ac.Arguments
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			ret = append(ret, conversation.ToolCall{
				ID:        "call_" + shortuuid.New(),
				Name:      ac.Tool,
				Arguments: args,
			})
		}
		return model.ToolCalls(ret...)
	}
	if a.Answer == "" {
		return nil
	}
	return model.FinalText(a.Answer)
}

const protocolTemplate = `Always reply with exactly one JSON object and nothing else.
To answer the user: {"action": "final", "answer": "<your answer>"}
To use tools: {"action": "tool", "calls": [{"tool": "<tool name>", "arguments": {...}}]}
After a tool runs you will receive its result as an observation. Tool results starting
with "Error:" describe a failure; tell the user about it or try something else.
Available tools:
%s`

func protocolPrompt(descriptors []tools.Descriptor) (string, error) {
	if len(descriptors) == 0 {
		return `Always reply with exactly one JSON object: {"action": "final", "answer": "<your answer>"}`, nil
	}
	var sb strings.Builder
	for _, d := range descriptors {
		params, err := json.Marshal(d.Parameters)
		if err != nil {
			return "", errors.Wrapf(err, "marshal parameters of %s", d.Name)
		}
		fmt.Fprintf(&sb, "- %s: %s\n  parameters: %s\n", d.Name, d.Description, params)
	}
	return fmt.Sprintf(protocolTemplate, sb.String()), nil
}

// toMessages flattens the history into plain role/content messages. Tool
// calls and results are rendered as text the model can read back.
func toMessages(protocol string, messages []conversation.Message) []api.Message {
	ret := []api.Message{}
	systemDone := false
	for _, m := range messages {
		switch m.Role {
		case conversation.RoleSystem:
			text := m.Text
			if !systemDone {
				text = text + "\n\n" + protocol
				systemDone = true
			}
			ret = append(ret, api.Message{Role: "system", Content: text})
		case conversation.RoleUser:
			ret = append(ret, api.Message{Role: "user", Content: m.Text})
		case conversation.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				b, _ := json.Marshal(action{Action: "final", Answer: m.Text})
				ret = append(ret, api.Message{Role: "assistant", Content: string(b)})
				continue
			}
			a := action{Action: "tool"}
			for _, tc := range m.ToolCalls {
				a.Calls = append(a.Calls, actionCall{Tool: tc.Name, Arguments: tc.Arguments})
			}
			b, _ := json.Marshal(a)
			ret = append(ret, api.Message{Role: "assistant", Content: string(b)})
		case conversation.RoleTool:
			ret = append(ret, api.Message{
				Role:    "user",
				Content: fmt.Sprintf("Observation from %s: %s", m.ToolName, m.Text),
			})
		}
	}
	if !systemDone {
		ret = append([]api.Message{{Role: "system", Content: protocol}}, ret...)
	}
	return ret
}
