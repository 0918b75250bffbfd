package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"NewsRelay/internal/domain"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	names := make([]string, 0, len(domain.Stages()))
	for _, s := range domain.Stages() {
		names = append(names, string(s.Name))
	}

	return &cobra.Command{
		Use:       "run <stage>",
		Short:     "Run one pipeline stage until interrupted",
		Long:      "Run one pipeline stage until interrupted. Stages: " + strings.Join(names, ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := ctx.application()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.RunStage(runCtx, args[0])
		},
	}
}
