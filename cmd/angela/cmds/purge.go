package cmds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewPurgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all stored chat state and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return errors.New("purge deletes every session, pass --yes to confirm")
			}
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				app.Orchestrator.Purge(ctx)
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm deletion")
	return cmd
}
