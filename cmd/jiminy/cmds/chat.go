package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/gateway"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const consoleBotName = "jiminy"

func NewChatCommand() *cobra.Command {
	var format string
	var chatID int64
	var showTools bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			// the console user is the authorized user
			if s.Gateway.AuthorizedUserID == 0 {
				s.Gateway.AuthorizedUserID = chatID
			}
			a, err := buildApp(cmd.Context(), s)
			if err != nil {
				return err
			}
			formatter, err := gateway.NewFormatter(format)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			a.Router.AddHandler("console", events.PrinterFunc(out, showTools))

			ctx, cancel := context.WithCancel(cmd.Context())
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
				return repl(ctx, cmd.InOrStdin(), out, a.Gateway, formatter, gateway.Update{
					ChatID:      chatID,
					UserID:      s.Gateway.AuthorizedUserID,
					BotUsername: consoleBotName,
				})
			})

			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&format, "format", "terminal", "Output format (plain, html, terminal)")
	cmd.Flags().Int64Var(&chatID, "chat-id", 1, "Chat id of the console conversation")
	cmd.Flags().BoolVar(&showTools, "show-tools", false, "Print tool calls and results")
	return cmd
}

// repl reads one message per line until EOF or /exit.
func repl(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	gw *gateway.Gateway,
	formatter gateway.Formatter,
	base gateway.Update,
) error {
	scanner := bufio.NewScanner(in)
	_, _ = fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/exit" || line == "/quit" {
			return nil
		}
		if line != "" {
			u := base
			u.Text = line
			if reply, ok := gw.Handle(ctx, u); ok {
				text, err := formatter.Format(reply.Text)
				if err != nil {
					log.Warn().Err(err).Msg("chat: could not format answer")
					text = reply.Text
				}
				_, _ = fmt.Fprintln(out, strings.TrimRight(text, "\n"))
			}
		}
		_, _ = fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
