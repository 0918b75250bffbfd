package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"NewsRelay/internal/usecase"
)

func newRequeueCommand(ctx *commandContext) *cobra.Command {
	var allErrors bool

	cmd := &cobra.Command{
		Use:   "requeue [id...]",
		Short: "Send failed items back to their stage",
		Long: "Send failed items back to their stage: rewriter_error to translated, " +
			"illustrator_error to rewriter, publish_error to illustrator.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if allErrors == (len(args) > 0) {
				return errors.New("pass item ids or --all-errors, not both")
			}
			application, err := ctx.application()
			if err != nil {
				return err
			}
			op, closeStore, err := application.Operator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			var results []usecase.RequeueResult
			if allErrors {
				results, err = op.RequeueAllErrors(cmd.Context())
			} else {
				results, err = op.Requeue(cmd.Context(), args)
			}
			if err != nil {
				return err
			}

			failed := 0
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				outcome := string(r.To)
				if r.Err != nil {
					outcome = r.Err.Error()
					failed++
				}
				rows = append(rows, []string{r.ID, string(r.From), outcome})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to requeue")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "From", "To"}, rows, nil))
			if failed > 0 {
				return errors.Newf("%d of %d items were not requeued", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allErrors, "all-errors", false, "Requeue every item in an error status")
	return cmd
}
