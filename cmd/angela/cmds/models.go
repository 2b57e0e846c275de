package cmds

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and select models",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the selectable models, the active one is marked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				active := app.Store.ActiveModel()
				for _, m := range app.Registry.List() {
					marker := " "
					if m.ID == active {
						marker = "*"
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %-14s %s\n", marker, m.Label, m.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "use <model-id>",
		Short: "Switch the active model, this starts a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				sessionID, err := app.Orchestrator.SelectModel(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), sessionID)
				return err
			})
		},
	})

	return cmd
}
