package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.application()
			if err != nil {
				return err
			}
			op, closeStore, err := application.Operator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			counts, err := op.Counts(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(counts)+1)
			total := 0
			for _, c := range counts {
				rows = append(rows, []string{string(c.Status), strconv.Itoa(c.Count)})
				total += c.Count
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Items"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
