package agent

import "time"

const (
	DefaultMaxRounds    = 8
	DefaultFallbackText = "could not produce a response"
	// DefaultReplyAck is the assistant's side of the synthetic reply-context exchange.
	DefaultReplyAck = "Noted."
)

type Config struct {
	MaxRounds     int    `mapstructure:"max-rounds" yaml:"max-rounds"`
	FallbackText  string `mapstructure:"fallback-text" yaml:"fallback-text"`
	ReplyAck      string `mapstructure:"reply-ack" yaml:"reply-ack"`
	SystemPrompt  string `mapstructure:"system-prompt" yaml:"system-prompt"`
	AssistantName string `mapstructure:"name" yaml:"name"`
	TimeZone      string `mapstructure:"timezone" yaml:"timezone"`
}

func DefaultConfig() Config {
	return Config{
		MaxRounds:     DefaultMaxRounds,
		FallbackText:  DefaultFallbackText,
		ReplyAck:      DefaultReplyAck,
		AssistantName: "Jiminy",
		TimeZone:      "Asia/Singapore",
	}
}

func (c Config) WithMaxRounds(n int) Config {
	c.MaxRounds = n
	return c
}

func (c Config) WithFallbackText(s string) Config {
	c.FallbackText = s
	return c
}

func (c Config) WithSystemPrompt(s string) Config {
	c.SystemPrompt = s
	return c
}

func (c Config) location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}
