package cmds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/go-go-golems/angela/pkg/export"
	"github.com/go-go-golems/angela/pkg/orchestrator"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "Manage chat sessions",
	}

	cmd.AddCommand(
		newListSessionsCommand(),
		newSearchSessionsCommand(),
		newNewSessionCommand(),
		newUseSessionCommand(),
		newRemoveSessionCommand(),
		newResetSessionCommand(),
		newClearSessionsCommand(),
		newShowSessionCommand(),
		newExportSessionCommand(),
	)

	return cmd
}

func newListSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printSessions(cmd.OutOrStdout(), app.Store.Sessions(), app.Store.ActiveSessionID())
				return nil
			})
		},
	}
}

func newSearchSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "List sessions whose title contains query, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printSessions(cmd.OutOrStdout(), app.Store.SearchSessions(args[0]), app.Store.ActiveSessionID())
				return nil
			})
		},
	}
}

func newNewSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new session and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Orchestrator.NewSession(ctx))
				return err
			})
		},
	}
}

func newUseSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				session, err := resolveSession(app.Store, args[0])
				if err != nil {
					return err
				}
				return app.Orchestrator.SelectSession(ctx, session.ID)
			})
		},
	}
}

func newRemoveSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				session, err := resolveSession(app.Store, args[0])
				if err != nil {
					return err
				}
				return app.Orchestrator.DeleteSession(ctx, session.ID)
			})
		},
	}
}

func newResetSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove all messages from the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				return app.Orchestrator.ResetActiveSession(ctx)
			})
		},
	}
}

func newClearSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Replace every session with one new empty session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Orchestrator.ClearAllSessions(ctx))
				return err
			})
		},
	}
}

func newShowSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a session as Markdown (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				session, err := sessionFromArgs(app.Store, args)
				if err != nil {
					return err
				}

				buf := &bytes.Buffer{}
				if err := (&export.MarkdownExporter{}).Export(session, buf); err != nil {
					return err
				}

				out := buf.String()
				if !raw && isTerminal(cmd.OutOrStdout()) {
					styled, err := glamour.Render(out, "dark")
					if err == nil {
						out = styled
					}
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().Bool("raw", false, "Print Markdown source even on a terminal")
	return cmd
}

func newExportSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a session (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			exporter, err := export.NewExporter(format)
			if err != nil {
				return err
			}

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				session, err := sessionFromArgs(app.Store, args)
				if err != nil {
					return err
				}

				if output == "" {
					return exporter.Export(session, cmd.OutOrStdout())
				}
				if output == "." {
					output = session.ID + "." + exporter.Extension()
				}

				f, err := os.Create(output)
				if err != nil {
					return errors.Wrapf(err, "could not create %s", output)
				}
				if err := exporter.Export(session, f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return errors.Wrapf(err, "could not write %s", output)
				}
				_, err = fmt.Fprintln(cmd.ErrOrStderr(), "exported to", output)
				return err
			})
		},
	}
	cmd.Flags().StringP("format", "f", "md", "Export format ("+strings.Join(export.Formats, ", ")+")")
	cmd.Flags().StringP("output", "o", "", "Output file, \".\" names it after the session (default stdout)")
	return cmd
}

// resolveSession accepts a full session id or a unique prefix of one.
func resolveSession(store *chat.Store, id string) (*chat.Session, error) {
	if session, ok := store.Session(id); ok {
		return session, nil
	}

	var matches []*chat.Session
	for _, session := range store.Sessions() {
		if id != "" && strings.HasPrefix(session.ID, id) {
			matches = append(matches, session)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errors.Wrapf(orchestrator.ErrSessionNotFound, "session %q", id)
	case 1:
		return matches[0], nil
	default:
		return nil, errors.Errorf("session prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func sessionFromArgs(store *chat.Store, args []string) (*chat.Session, error) {
	if len(args) > 0 {
		return resolveSession(store, args[0])
	}
	session, ok := store.ActiveSession()
	if !ok {
		return nil, orchestrator.ErrNoActiveSession
	}
	return session, nil
}

func printSessions(w io.Writer, sessions []*chat.Session, activeID string) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, "no sessions")
		return
	}
	for _, session := range sessions {
		marker := " "
		if session.ID == activeID {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %s  %-33s %3d messages\n", marker, session.ID, session.Title, len(session.Messages))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
