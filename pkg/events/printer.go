package events

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type printedCall struct {
	Tool      string `yaml:"tool"`
	CallID    string `yaml:"call_id,omitempty"`
	Round     int    `yaml:"round,omitempty"`
	Arguments string `yaml:"arguments,omitempty"`
	Result    string `yaml:"result,omitempty"`
}

// PrinterFunc returns a handler that writes tool activity and outbound media
// to w. With showTools false only media is printed.
func PrinterFunc(w io.Writer, showTools bool) func(ctx context.Context, e Event) error {
	return func(_ context.Context, e Event) error {
		switch e.Type {
		case EventTypeVoice:
			_, err := fmt.Fprintf(w, "🔊 voice message for chat %s: %s\n", e.ChatID, e.MediaPath)
			return err

		case EventTypeToolCall, EventTypeToolResult:
			if !showTools {
				return nil
			}
			p := printedCall{Tool: e.ToolName, CallID: e.CallID, Round: e.Round}
			if e.Type == EventTypeToolCall {
				p.Arguments = e.Text
			} else {
				p.Result = e.Text
			}
			v_, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s\n", v_)
			return err
		}
		return nil
	}
}
