package model

import (
	"bytes"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/pkg/errors"
)

const DefaultSystemPrompt = `You are {{ .Name }}, a helpful personal assistant.
Today is {{ dateInZone "Monday, 2 January 2006" .Now .Zone }} and the time is {{ dateInZone "15:04" .Now .Zone }} ({{ .Zone }}).
Answer concisely. Use the available tools when they help: calendar events, contacts,
bus arrivals and nearby bus stops, web search, and speech.
{{- if .Tools }}
Available tools: {{ .Tools | join ", " }}.
{{- end }}
If a tool reports an error, explain the problem to the user in plain words.`

// PromptData is what the system prompt template is rendered with.
type PromptData struct {
	Name  string
	Now   time.Time
	Zone  string
	Tools []string
}

// RenderSystemPrompt renders tmpl (DefaultSystemPrompt when empty) with the sprig functions.
func RenderSystemPrompt(tmpl string, data PromptData) (string, error) {
	if tmpl == "" {
		tmpl = DefaultSystemPrompt
	}
	if data.Name == "" {
		data.Name = "Jiminy"
	}
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	if data.Zone == "" {
		data.Zone = data.Now.Location().String()
	}
	t, err := template.New("system").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "parse system prompt")
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render system prompt")
	}
	return buf.String(), nil
}

// PrependSystem returns a new slice with a system message holding prompt in front of msgs.
func PrependSystem(prompt string, msgs []conversation.Message) []conversation.Message {
	if prompt == "" {
		return msgs
	}
	ret := make([]conversation.Message, 0, len(msgs)+1)
	ret = append(ret, conversation.NewSystemMessage(prompt))
	return append(ret, msgs...)
}
