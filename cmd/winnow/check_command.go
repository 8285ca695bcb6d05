package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winnow/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, cache, and tagging service connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tag := newTagger(cfg, ctx.quietLogger())

			results := preflight.RunAll(cmd.Context(), cfg, tag)

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, result := range results {
				status := "ok"
				if !result.Passed {
					status = "FAIL"
					failed++
				}
				rows = append(rows, []string{result.Name, status, result.Detail})
			}
			renderTable(cmd.OutOrStdout(), []string{"Check", "Status", "Detail"}, rows)

			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "All %d checks passed.\n", len(results))
			return nil
		},
	}
}
