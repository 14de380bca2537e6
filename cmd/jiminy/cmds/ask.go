package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/app"
	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/gateway"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewAskCommand() *cobra.Command {
	var chatID string
	var replyContext string
	var format string
	var showTools bool

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask the assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), s)
			if err != nil {
				return err
			}
			formatter, err := gateway.NewFormatter(format)
			if err != nil {
				return err
			}

			var rc *string
			if replyContext != "" {
				rc = &replyContext
			}
			return ask(cmd.Context(), a, cmd.OutOrStdout(), formatter, showTools, chatID, strings.Join(args, " "), rc)
		},
	}

	cmd.Flags().StringVar(&chatID, "chat-id", "cli", "Conversation to continue")
	cmd.Flags().StringVar(&replyContext, "reply-context", "", "Text of the message being replied to")
	cmd.Flags().StringVar(&format, "format", "terminal", "Output format (plain, html, terminal)")
	cmd.Flags().BoolVar(&showTools, "show-tools", false, "Print tool calls and results")
	return cmd
}

// ask runs a single turn with the event router up, so voice messages and
// tool activity reach out before the answer is printed.
func ask(
	ctx context.Context,
	a *app.App,
	out io.Writer,
	formatter gateway.Formatter,
	showTools bool,
	chatID string,
	question string,
	replyContext *string,
) error {
	a.Router.AddHandler("console", events.PrinterFunc(out, showTools))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return a.Router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		defer func() {
			_ = a.Router.Close()
		}()
		select {
		case <-a.Router.Running():
		case <-ctx.Done():
			return nil
		}

		turn := a.Agent.Run(ctx, chatID, question, replyContext)
		text, err := formatter.Format(turn.Text)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, strings.TrimRight(text, "\n"))
		return nil
	})

	return eg.Wait()
}
