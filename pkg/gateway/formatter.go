package gateway

import (
	"bytes"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
)

// Formatter renders the model's markdown answer for a particular output.
type Formatter interface {
	Format(text string) (string, error)
}

type PlainFormatter struct{}

func (PlainFormatter) Format(text string) (string, error) {
	return text, nil
}

// HTMLFormatter renders markdown into HTML, for chat clients with an HTML
// parse mode.
type HTMLFormatter struct {
	md goldmark.Markdown
}

func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{md: goldmark.New()}
}

func (h *HTMLFormatter) Format(text string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(text), &buf); err != nil {
		return "", errors.Wrap(err, "render html")
	}
	return strings.TrimSpace(buf.String()), nil
}

type TerminalFormatter struct {
	style string
}

func (t TerminalFormatter) Format(text string) (string, error) {
	out, err := glamour.Render(text, t.style)
	if err != nil {
		return "", errors.Wrap(err, "render terminal")
	}
	return out, nil
}

// NewFormatter returns the formatter called name: "plain", "html" or
// "terminal". "terminal" falls back to plain when stdout is not a tty.
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "", "plain":
		return PlainFormatter{}, nil
	case "html":
		return NewHTMLFormatter(), nil
	case "terminal":
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return PlainFormatter{}, nil
		}
		return TerminalFormatter{style: "dark"}, nil
	default:
		return nil, errors.Errorf("unknown formatter %q", name)
	}
}
