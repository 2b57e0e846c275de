package cmds

import (
	"context"
	"os"

	"github.com/go-go-golems/angela/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("chat needs a terminal, use \"angela send\" for scripts")
			}
			style, _ := cmd.Flags().GetString("markdown-style")

			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				return ui.Run(ctx, app.Orchestrator, ui.WithMarkdownStyle(style))
			})
		},
	}
	cmd.Flags().String("markdown-style", "auto", "Markdown style for replies (auto, dark, light, notty)")
	return cmd
}
