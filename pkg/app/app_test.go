package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/gateway"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/model/modeltest"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestSettings(t *testing.T, env map[string]string) *Settings {
	for k, v := range env {
		t.Setenv(k, v)
	}
	v := viper.New()
	require.NoError(t, SetDefaults(v))
	s, err := LoadSettings(v)
	require.NoError(t, err)
	return s
}

func TestSettingsDefaultsAndLegacyEnv(t *testing.T) {
	s := loadTestSettings(t, map[string]string{
		"MAX_HISTORY_LENGTH": "6",
		"AUTHORIZED_USER_ID": "1001",
		"TAVILY_API_KEY":     "tvly",
	})
	assert.Equal(t, 6, s.History.MaxMessages)
	assert.Equal(t, int64(1001), s.Gateway.AuthorizedUserID)
	assert.Equal(t, "tvly", s.Keys.Tavily)
	assert.Equal(t, 8, s.Agent.MaxRounds)
	assert.Equal(t, "Asia/Singapore", s.Agent.TimeZone)
	assert.Equal(t, "data/bus_stops.csv", s.BusStopsFile)
	assert.True(t, s.Tools.Validate)
}

func TestPrefixedEnvWins(t *testing.T) {
	s := loadTestSettings(t, map[string]string{
		"JIMINY_HISTORY_MAX_MESSAGES": "4",
		"MAX_HISTORY_LENGTH":          "6",
	})
	assert.Equal(t, 4, s.History.MaxMessages)
}

func TestBuildRegistryOmitsUnconfiguredTools(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := loadTestSettings(t, nil)
	s.DataDir = "/data"
	s.BusStopsFile = "/data/bus_stops.csv"
	s.Calendar.CredentialsFile = ""
	require.NoError(t, afero.WriteFile(fs, s.BusStopsFile,
		[]byte("BusStopCode,Description,Latitude,Longitude\n01012,Hotel Grand Pacific,1.2968,103.8525\n"), 0o644))

	r, err := BuildRegistry(context.Background(), s, fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"contact_lookup", "nearest_bus_stop_query"}, r.Names())

	s.Keys.LTA = "lta"
	s.Keys.Tavily = "tvly"
	s.Keys.ElevenLabs = "xi"
	s.OpenAI.APIKey = "sk"
	r, err = BuildRegistry(context.Background(), s, fs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bus_arrival_query", "contact_lookup", "nearest_bus_stop_query",
		"sticker_reaction", "text_to_speech", "web_search",
	}, r.Names())
}

func TestBuildAnswersThroughGateway(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := loadTestSettings(t, map[string]string{"AUTHORIZED_USER_ID": "1001"})
	s.DataDir = "/data"
	s.History.CheckpointDir = "/data/sessions"

	scripted := modeltest.NewScripted(
		modeltest.Reply(model.ToolCalls(conversation.ToolCall{
			ID: "call_1", Name: "contact_lookup", Arguments: json.RawMessage(`{"operation":"get","name":"laura"}`),
		})),
		modeltest.Reply(model.FinalText("Laura's email is laura@example.com")),
	)
	a, err := Build(context.Background(), s, WithFs(fs), WithModelClient(scripted))
	require.NoError(t, err)
	defer func() {
		_ = a.Router.Close()
	}()

	reply, ok := a.Gateway.Handle(context.Background(), gateway.Update{ChatID: 1001, UserID: 1001, Text: "what is laura's email?"})
	require.True(t, ok)
	assert.Equal(t, "Laura's email is laura@example.com", reply.Text)

	history := a.Store.History("1001")
	require.Len(t, history, 4)
	assert.Contains(t, history[2].Text, "laura@example.com")

	exists, err := afero.Exists(fs, "/data/sessions/1001.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUnknownProvider(t *testing.T) {
	s := loadTestSettings(t, nil)
	s.Provider = "parrot"
	_, err := NewModelClient(s)
	assert.Error(t, err)
}
