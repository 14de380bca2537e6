package cmds

import (
	"context"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/jiminy/pkg/app"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/spf13/afero"
)

type ToolsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = &ToolsCommand{}

func NewToolsCommand() (*ToolsCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}

	return &ToolsCommand{
		CommandDescription: cmds.NewCommandDescription(
			"tools",
			cmds.WithShort("List the tools offered to the model"),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *ToolsCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	r, err := app.BuildRegistry(ctx, s, afero.NewOsFs())
	if err != nil {
		return err
	}

	for _, row := range toolRows(r) {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// toolRows returns one row per tool, in the order the model sees them.
func toolRows(r *tools.Registry) []types.Row {
	ret := make([]types.Row, 0, r.Len())
	for _, d := range r.Descriptors() {
		var params, required []string
		if d.Parameters != nil {
			if d.Parameters.Properties != nil {
				for pair := d.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
					params = append(params, pair.Key)
				}
			}
			required = d.Parameters.Required
		}
		ret = append(ret, types.NewRow(
			types.MRP("name", d.Name),
			types.MRP("description", d.Description),
			types.MRP("parameters", strings.Join(params, ",")),
			types.MRP("required", strings.Join(required, ",")),
		))
	}
	return ret
}
