package cmds

import (
	"context"
	"fmt"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/jiminy/pkg/conversation"
	"github.com/mb0/glob"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
	"gopkg.in/yaml.v3"
)

func NewSessionsCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect saved conversations",
	}

	listCmdInstance, err := NewSessionsListCommand()
	if err != nil {
		return nil, err
	}
	listCommand, err := cli.BuildCobraCommandFromGlazeCommand(listCmdInstance)
	if err != nil {
		return nil, err
	}

	cmd.AddCommand(listCommand, newSessionsShowCommand(), newSessionsClearCommand())
	return cmd, nil
}

type SessionsListCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = &SessionsListCommand{}

type SessionsListSettings struct {
	ChatID string `glazed.parameter:"chat-id"`
}

func NewSessionsListCommand() (*SessionsListCommand, error) {
	glazedParameterLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}

	return &SessionsListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("List saved conversations"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"chat-id",
					parameters.ParameterTypeString,
					parameters.WithHelp("glob to match chat id"),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *SessionsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	ls := &SessionsListSettings{}
	err := parsedLayers.InitializeStruct(layers.DefaultSlug, ls)
	if err != nil {
		return err
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	cp, err := openCheckpoints(s)
	if err != nil {
		return err
	}

	rows, err := sessionRows(ctx, cp, ls.ChatID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// sessionRows returns one row per saved conversation whose id matches the
// glob. An empty glob matches everything.
func sessionRows(ctx context.Context, cp conversation.Checkpointer, chatGlob string) ([]types.Row, error) {
	ids, err := cp.List(ctx)
	if err != nil {
		return nil, err
	}

	ret := []types.Row{}
	for _, id := range ids {
		if chatGlob != "" {
			matching, err := glob.Match(chatGlob, id)
			if err != nil {
				return nil, err
			}
			if !matching {
				continue
			}
		}

		sess, err := cp.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		ret = append(ret, types.NewRow(
			types.MRP("chat_id", id),
			types.MRP("messages", len(sess.Messages)),
			types.MRP("step", sess.Step),
			types.MRP("created_at", sess.CreatedAt),
			types.MRP("updated_at", sess.UpdatedAt),
		))
	}
	return ret, nil
}

func newSessionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a saved conversation as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			cp, err := openCheckpoints(s)
			if err != nil {
				return err
			}
			sess, err := cp.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer func() {
				_ = enc.Close()
			}()
			return enc.Encode(sess)
		},
	}
}

func newSessionsClearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear <chat-id>",
		Short: "Delete a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			cp, err := openCheckpoints(s)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete conversation %s? [y/n]", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			if err := cp.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, query string) (bool, error) {
	ui := &input.UI{
		Writer: cmd.OutOrStdout(),
		Reader: cmd.InOrStdin(),
	}
	answer, err := ui.Ask(query, &input.Options{
		Default:  "n",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return fmt.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}
