package conversation

import (
	"github.com/pkg/errors"
)

var (
	ErrOrphanToolResult    = errors.New("tool result without matching tool call")
	ErrDuplicateToolResult = errors.New("tool call already has a result")
	ErrMissingToolCallID   = errors.New("tool call or result is missing its id")
)

// pairing tracks which tool call ids are still waiting for a result.
type pairing struct {
	pending  map[string]bool
	resolved map[string]bool
}

func newPairing() *pairing {
	return &pairing{
		pending:  map[string]bool{},
		resolved: map[string]bool{},
	}
}

func (p *pairing) add(m Message) error {
	switch {
	case m.HasToolCalls():
		for _, c := range m.ToolCalls {
			if c.ID == "" {
				return errors.Wrapf(ErrMissingToolCallID, "tool call %q", c.Name)
			}
			p.pending[c.ID] = true
		}
	case m.IsToolResult():
		if m.ToolCallID == "" {
			return errors.Wrapf(ErrMissingToolCallID, "result of %q", m.ToolName)
		}
		if p.resolved[m.ToolCallID] {
			return errors.Wrapf(ErrDuplicateToolResult, "id %q", m.ToolCallID)
		}
		if !p.pending[m.ToolCallID] {
			return errors.Wrapf(ErrOrphanToolResult, "id %q", m.ToolCallID)
		}
		delete(p.pending, m.ToolCallID)
		p.resolved[m.ToolCallID] = true
	}
	return nil
}

// ValidatePairing checks that every tool result answers exactly one earlier tool call.
// Calls that have no result yet are allowed.
func ValidatePairing(msgs []Message) error {
	p := newPairing()
	for _, m := range msgs {
		if err := p.add(m); err != nil {
			return err
		}
	}
	return nil
}

// PendingToolCalls returns the calls of msgs that have not received a result.
func PendingToolCalls(msgs []Message) []ToolCall {
	answered := map[string]bool{}
	for _, m := range msgs {
		if m.IsToolResult() {
			answered[m.ToolCallID] = true
		}
	}
	var ret []ToolCall
	for _, m := range msgs {
		if !m.HasToolCalls() {
			continue
		}
		for _, c := range m.ToolCalls {
			if !answered[c.ID] {
				ret = append(ret, c)
			}
		}
	}
	return ret
}

// trimWindow keeps at most max of the most recent messages. When the cut would
// separate tool results from the assistant message that requested them, the cut
// moves forward until no orphaned result remains at the head.
func trimWindow(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	callIndex := map[string]int{}
	for i, m := range msgs {
		for _, c := range m.ToolCalls {
			callIndex[c.ID] = i
		}
	}

	start := len(msgs) - max
	for moved := true; moved; {
		moved = false
		for i := start; i < len(msgs); i++ {
			if !msgs[i].IsToolResult() {
				continue
			}
			if j, ok := callIndex[msgs[i].ToolCallID]; ok && j < start {
				start = i + 1
				moved = true
			}
		}
	}
	ret := make([]Message, len(msgs)-start)
	copy(ret, msgs[start:])
	return ret
}
