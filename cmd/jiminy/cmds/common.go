package cmds

import (
	"context"
	"path/filepath"

	"github.com/go-go-golems/jiminy/pkg/app"
	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

func loadSettings() (*app.Settings, error) {
	return app.LoadSettings(viper.GetViper())
}

func buildApp(ctx context.Context, s *app.Settings) (*app.App, error) {
	return app.Build(ctx, s)
}

// openCheckpoints opens the checkpoint directory without building the rest of
// the assistant.
func openCheckpoints(s *app.Settings) (*conversation.FileCheckpointer, error) {
	dir := s.History.CheckpointDir
	if dir == "" {
		dir = filepath.Join(s.DataDir, "sessions")
	}
	return conversation.NewFileCheckpointer(afero.NewOsFs(), dir)
}
