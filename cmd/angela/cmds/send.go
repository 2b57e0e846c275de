package cmds

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message to the active session and print the reply (\"-\" reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := messageFromArgs(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				sessionID, ok := app.Orchestrator.Send(ctx, text)
				if !ok {
					return errors.New("nothing to send")
				}
				return printLastReply(cmd.OutOrStdout(), app.Store, sessionID)
			})
		},
	}
}

func NewEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <message...>",
		Short: "Rewrite a user message of the active session and ask again",
		Long: "Rewrite the user message at index (starting at 0) of the active session. " +
			"The new reply is appended at the end of the session, later messages are kept.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid message index %q", args[0])
			}
			text, err := messageFromArgs(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				sessionID, err := app.Orchestrator.EditAndResend(ctx, index, text)
				if err != nil {
					return err
				}
				return printLastReply(cmd.OutOrStdout(), app.Store, sessionID)
			})
		},
	}
}

func messageFromArgs(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "could not read stdin")
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}

func printLastReply(w io.Writer, store *chat.Store, sessionID string) error {
	session, ok := store.Session(sessionID)
	if !ok || len(session.Messages) == 0 {
		return errors.Errorf("session %q has no reply", sessionID)
	}
	_, err := fmt.Fprintln(w, session.Messages[len(session.Messages)-1].Content)
	return err
}
