package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/jiminy/pkg/agent"
	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/gateway"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/model/ollama"
	"github.com/go-go-golems/jiminy/pkg/model/openai"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/go-go-golems/jiminy/pkg/tools/bus"
	"github.com/go-go-golems/jiminy/pkg/tools/calendar"
	"github.com/go-go-golems/jiminy/pkg/tools/contacts"
	"github.com/go-go-golems/jiminy/pkg/tools/search"
	"github.com/go-go-golems/jiminy/pkg/tools/speech"
	"github.com/go-go-golems/jiminy/pkg/tools/sticker"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// App holds the wired components.
type App struct {
	Settings *Settings
	Store    *conversation.Store
	Model    model.Client
	Registry *tools.Registry
	Router   *events.Router
	Agent    *agent.Agent
	Gateway  *gateway.Gateway
}

type BuildOption func(*buildOptions)

type buildOptions struct {
	fs    afero.Fs
	model model.Client
}

// WithFs replaces the OS filesystem used for data files and checkpoints.
func WithFs(fs afero.Fs) BuildOption {
	return func(o *buildOptions) { o.fs = fs }
}

// WithModelClient skips provider selection and uses m.
func WithModelClient(m model.Client) BuildOption {
	return func(o *buildOptions) { o.model = m }
}

func Build(ctx context.Context, s *Settings, opts ...BuildOption) (*App, error) {
	o := &buildOptions{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(o)
	}

	store, err := NewStore(s, o.fs)
	if err != nil {
		return nil, err
	}

	m := o.model
	if m == nil {
		m, err = NewModelClient(s)
		if err != nil {
			return nil, err
		}
	}

	registry, err := BuildRegistry(ctx, s, o.fs)
	if err != nil {
		return nil, err
	}

	router, err := events.NewRouter(events.WithVerbose(s.Verbose))
	if err != nil {
		return nil, err
	}

	a := agent.New(
		agent.WithStore(store),
		agent.WithModel(m),
		agent.WithTools(registry),
		agent.WithEventSink(router),
		agent.WithConfig(s.Agent),
	)

	gw := gateway.New(a,
		gateway.NewAuthorizer(s.Gateway.AuthorizedUserID, s.Gateway.AuthorizedGroups...),
		gateway.WithContextWindow(s.History.MaxMessages),
		gateway.WithRateLimit(s.Gateway.RateLimit, s.Gateway.RateBurst),
	)

	log.Info().
		Str("provider", s.Provider).
		Strs("tools", registry.Names()).
		Int("max_messages", s.History.MaxMessages).
		Msg("app: assistant ready")

	return &App{
		Settings: s,
		Store:    store,
		Model:    m,
		Registry: registry,
		Router:   router,
		Agent:    a,
		Gateway:  gw,
	}, nil
}

func NewStore(s *Settings, fs afero.Fs) (*conversation.Store, error) {
	opts := []conversation.StoreOption{conversation.WithMaxMessages(s.History.MaxMessages)}
	if s.History.CheckpointDir != "" {
		cp, err := conversation.NewFileCheckpointer(fs, s.History.CheckpointDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, conversation.WithCheckpointer(cp))
	}
	return conversation.NewStore(opts...), nil
}

func NewModelClient(s *Settings) (model.Client, error) {
	switch s.Provider {
	case ProviderOpenAI, "":
		return openai.NewClient(s.OpenAI)
	case ProviderOllama:
		return ollama.NewClient(s.Ollama)
	default:
		return nil, errors.Errorf("unknown model provider %q", s.Provider)
	}
}

// BuildRegistry creates the tool set. Tools whose credentials or data are
// missing are left out with a warning.
func BuildRegistry(ctx context.Context, s *Settings, fs afero.Fs) (*tools.Registry, error) {
	var adapters []tools.Adapter
	skip := func(tool string, reason string) {
		log.Warn().Str("tool", tool).Str("reason", reason).Msg("app: tool disabled")
	}

	book, err := contacts.Open(fs, s.DataDir)
	if err != nil {
		return nil, err
	}
	adapters = append(adapters, book.Adapter())

	loc, err := time.LoadLocation(s.Agent.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", s.Agent.TimeZone).Msg("app: unknown timezone, using local time")
		loc = time.Local
	}
	if fileExists(s.Calendar.CredentialsFile) && fileExists(s.Calendar.TokenFile) {
		svc, err := calendar.NewGoogleService(ctx, s.Calendar.CredentialsFile, s.Calendar.TokenFile, loc)
		if err != nil {
			skip(calendar.Name, err.Error())
		} else {
			adapters = append(adapters, calendar.New(svc, calendar.WithLocation(loc)).Adapter())
		}
	} else {
		skip(calendar.Name, "no calendar credentials or token file")
	}

	if s.Keys.LTA != "" {
		adapters = append(adapters, bus.NewArrivalTool(bus.NewClient(s.Keys.LTA, "", s.Tools.Timeout)).Adapter())
	} else {
		skip(bus.ArrivalName, "no LTA DataMall key")
	}
	if stops, err := bus.LoadStopsFile(fs, s.BusStopsFile); err == nil {
		adapters = append(adapters, bus.NewNearestTool(stops).Adapter())
	} else {
		skip(bus.NearestName, err.Error())
	}

	if s.Keys.Tavily != "" {
		adapters = append(adapters, search.New(s.Keys.Tavily, search.WithTimeout(s.Tools.Timeout)).Adapter())
	} else {
		skip(search.Name, "no Tavily key")
	}

	if s.Keys.ElevenLabs != "" {
		adapters = append(adapters, speech.New(s.Keys.ElevenLabs, fs, filepath.Join(s.DataDir, "voice")).Adapter())
	} else {
		skip(speech.Name, "no ElevenLabs key")
	}

	if s.OpenAI.APIKey != "" {
		adapters = append(adapters, sticker.NewFromSettings(s.OpenAI, fs).Adapter())
	} else {
		skip(sticker.Name, "no OpenAI key")
	}

	return tools.NewRegistry(s.Tools, adapters...)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
