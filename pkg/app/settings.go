// Package app assembles the assistant from its settings.
package app

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/jiminy/pkg/agent"
	"github.com/go-go-golems/jiminy/pkg/model/ollama"
	"github.com/go-go-golems/jiminy/pkg/model/openai"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type HistorySettings struct {
	// MaxMessages bounds each conversation. 0 keeps everything.
	MaxMessages   int    `mapstructure:"max-messages" yaml:"max-messages"`
	CheckpointDir string `mapstructure:"checkpoint-dir" yaml:"checkpoint-dir"`
}

type CalendarSettings struct {
	CredentialsFile string `mapstructure:"credentials-file" yaml:"credentials-file"`
	TokenFile       string `mapstructure:"token-file" yaml:"token-file"`
}

type KeySettings struct {
	Tavily     string `mapstructure:"tavily" yaml:"tavily"`
	LTA        string `mapstructure:"lta" yaml:"lta"`
	ElevenLabs string `mapstructure:"eleven-labs" yaml:"eleven-labs"`
}

type GatewaySettings struct {
	AuthorizedUserID int64   `mapstructure:"authorized-user-id" yaml:"authorized-user-id"`
	AuthorizedGroups []int64 `mapstructure:"authorized-groups" yaml:"authorized-groups"`
	RateLimit        float64 `mapstructure:"rate-limit" yaml:"rate-limit"`
	RateBurst        int     `mapstructure:"rate-burst" yaml:"rate-burst"`
	Formatter        string  `mapstructure:"formatter" yaml:"formatter"`
}

type Settings struct {
	DataDir      string           `mapstructure:"data-dir" yaml:"data-dir"`
	Provider     string           `mapstructure:"provider" yaml:"provider"`
	OpenAI       openai.Settings  `mapstructure:"openai" yaml:"openai"`
	Ollama       ollama.Settings  `mapstructure:"ollama" yaml:"ollama"`
	Agent        agent.Config     `mapstructure:"agent" yaml:"agent"`
	Tools        tools.Config     `mapstructure:"tools" yaml:"tools"`
	History      HistorySettings  `mapstructure:"history" yaml:"history"`
	Calendar     CalendarSettings `mapstructure:"calendar" yaml:"calendar"`
	Keys         KeySettings      `mapstructure:"keys" yaml:"keys"`
	BusStopsFile string           `mapstructure:"bus-stops-file" yaml:"bus-stops-file"`
	Gateway      GatewaySettings  `mapstructure:"gateway" yaml:"gateway"`
	Verbose      bool             `mapstructure:"verbose" yaml:"verbose"`
}

// legacyEnv maps settings keys to the environment variables used by earlier
// deployments of the bot.
var legacyEnv = map[string]string{
	"gateway.authorized-user-id": "AUTHORIZED_USER_ID",
	"history.max-messages":       "MAX_HISTORY_LENGTH",
	"keys.tavily":                "TAVILY_API_KEY",
	"keys.lta":                   "LTA_API_KEY",
	"keys.eleven-labs":           "ELEVEN_LABS_API_KEY",
	"openai.api-key":             "OPENAI_API_KEY",
	"calendar.credentials-file":  "GOOGLE_CALENDAR_CREDENTIALS_FILE",
	"calendar.token-file":        "GOOGLE_CALENDAR_TOKEN_FILE",
}

// SetDefaults registers every default and environment binding on v.
func SetDefaults(v *viper.Viper) error {
	d := agent.DefaultConfig()
	v.SetDefault("data-dir", "data")
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("openai.model", openai.DefaultSettings().Model)
	v.SetDefault("openai.temperature", openai.DefaultSettings().Temperature)
	v.SetDefault("ollama.model", ollama.DefaultSettings().Model)
	v.SetDefault("ollama.temperature", ollama.DefaultSettings().Temperature)
	v.SetDefault("agent.max-rounds", d.MaxRounds)
	v.SetDefault("agent.fallback-text", d.FallbackText)
	v.SetDefault("agent.reply-ack", d.ReplyAck)
	v.SetDefault("agent.name", d.AssistantName)
	v.SetDefault("agent.timezone", d.TimeZone)
	v.SetDefault("tools.timeout", tools.DefaultConfig().Timeout)
	v.SetDefault("tools.validate", true)
	v.SetDefault("history.max-messages", 10)
	v.SetDefault("calendar.credentials-file", "credentials.json")
	v.SetDefault("calendar.token-file", "token.json")
	v.SetDefault("bus-stops-file", "")
	v.SetDefault("gateway.rate-limit", 1.0)
	v.SetDefault("gateway.rate-burst", 5)
	v.SetDefault("gateway.formatter", "terminal")

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, envName(key), env); err != nil {
			return errors.Wrapf(err, "bind %s", env)
		}
	}
	return nil
}

var envReplacer = strings.NewReplacer("-", "_", ".", "_")

func envName(key string) string {
	return "JIMINY_" + strings.ToUpper(envReplacer.Replace(key))
}

// LoadSettings decodes v into Settings and resolves relative paths against
// the data directory.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	if s.History.CheckpointDir != "" && !filepath.IsAbs(s.History.CheckpointDir) {
		s.History.CheckpointDir = filepath.Join(s.DataDir, s.History.CheckpointDir)
	}
	if s.BusStopsFile == "" {
		s.BusStopsFile = filepath.Join(s.DataDir, "bus_stops.csv")
	}
	if s.Tools.Timeout < 0 {
		s.Tools.Timeout = 30 * time.Second
	}
	return s, nil
}
