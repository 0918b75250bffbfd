package main

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceURL   string
		title       string
		publishedAt string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Add a news item to the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			var published time.Time
			if publishedAt != "" {
				parsed, err := time.Parse(time.RFC3339, publishedAt)
				if err != nil {
					return errors.WithHint(errors.Wrap(err, "parse --published-at"), "use RFC 3339, e.g. 2025-05-01T08:30:00Z")
				}
				published = parsed
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

			item, inserted, err := op.Enqueue(cmd.Context(), sourceURL, title, published)
			if err != nil {
				return err
			}
			if inserted {
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s\n", item.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "already known %s\n", item.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Source article URL")
	cmd.Flags().StringVar(&title, "title", "", "Article title")
	cmd.Flags().StringVar(&publishedAt, "published-at", "", "Original publication time (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
