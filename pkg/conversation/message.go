package conversation

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request from the model to run a single tool.
// ID correlates the call with the tool result message that answers it.
type ToolCall struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty" yaml:"-"`
}

type yamlToolCall struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Arguments string `yaml:"arguments,omitempty"`
}

// MarshalYAML stores the arguments as a JSON string.
func (c ToolCall) MarshalYAML() (interface{}, error) {
	return yamlToolCall{ID: c.ID, Name: c.Name, Arguments: string(c.Arguments)}, nil
}

func (c *ToolCall) UnmarshalYAML(value *yaml.Node) error {
	var y yamlToolCall
	if err := value.Decode(&y); err != nil {
		return err
	}
	c.ID = y.ID
	c.Name = y.Name
	if y.Arguments != "" {
		c.Arguments = json.RawMessage(y.Arguments)
	}
	return nil
}

// Message is one entry of a chat session.
//
// Which fields are set depends on Role: assistant messages may carry ToolCalls
// (with or without Text), tool messages carry ToolCallID and ToolName.
type Message struct {
	Role       Role       `json:"role" yaml:"role"`
	Text       string     `json:"text,omitempty" yaml:"text,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
	Time       time.Time  `json:"time" yaml:"time"`
}

func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text, Time: time.Now()}
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text, Time: time.Now()}
}

func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text, Time: time.Now()}
}

// NewToolCallMessage creates an assistant message requesting the given calls.
// text may be empty.
func NewToolCallMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls, Time: time.Now()}
}

func NewToolResultMessage(callID, toolName, content string) Message {
	return Message{
		Role:       RoleTool,
		Text:       content,
		ToolCallID: callID,
		ToolName:   toolName,
		Time:       time.Now(),
	}
}

func (m Message) IsToolResult() bool {
	return m.Role == RoleTool
}

func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
