package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.application()
			if err != nil {
				return err
			}
			return application.Migrate(cmd.Context())
		},
	}
}
