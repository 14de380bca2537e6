package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypeTurnStart     EventType = "turn.start"
	EventTypeModelResponse EventType = "model.response"
	EventTypeToolCall      EventType = "tool.call"
	EventTypeToolResult    EventType = "tool.result"
	EventTypeTurnEnd       EventType = "turn.end"
	// EventTypeVoice carries a generated audio file to deliver to the chat.
	EventTypeVoice EventType = "media.voice"
)

// Event is a notification about a turn, or outbound media for a chat.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id"`
	TurnID    string    `json:"turn_id,omitempty"`
	Round     int       `json:"round,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
	CallID    string    `json:"call_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	MediaPath string    `json:"media_path,omitempty"`
	Time      time.Time `json:"time"`
}

func NewEvent(typ EventType, chatID string) Event {
	return Event{Type: typ, ChatID: chatID, Time: time.Now()}
}

func NewEventFromJson(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "could not parse event")
	}
	if e.Type == "" {
		return Event{}, errors.New("event has no type")
	}
	return e, nil
}
