package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/app"
	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/go-go-golems/jiminy/pkg/gateway"
	"github.com/go-go-golems/jiminy/pkg/model"
	"github.com/go-go-golems/jiminy/pkg/model/modeltest"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskRunsRouterForTheTurn(t *testing.T) {
	v := viper.New()
	require.NoError(t, app.SetDefaults(v))
	s, err := app.LoadSettings(v)
	require.NoError(t, err)
	s.DataDir = "/data"

	scripted := modeltest.NewScripted(
		modeltest.Reply(model.ToolCalls(conversation.ToolCall{
			ID: "call_1", Name: "contact_lookup", Arguments: json.RawMessage(`{"operation":"get","name":"laura"}`),
		})),
		modeltest.Reply(model.FinalText("Laura's email is laura@example.com")),
	)
	a, err := app.Build(context.Background(), s, app.WithFs(afero.NewMemMapFs()), app.WithModelClient(scripted))
	require.NoError(t, err)

	var out bytes.Buffer
	err = ask(context.Background(), a, &out, gateway.PlainFormatter{}, true, "cli", "what is laura's email?", nil)
	require.NoError(t, err)

	// tool events went through the running router before the answer
	printed := out.String()
	assert.Contains(t, printed, "tool: contact_lookup")
	assert.True(t, strings.HasSuffix(printed, "Laura's email is laura@example.com\n"), printed)
	assert.Less(t, strings.Index(printed, "tool: contact_lookup"), strings.Index(printed, "Laura's email"))

	assert.False(t, a.Router.IsRunning())
	assert.Len(t, a.Store.History("cli"), 4)
}
