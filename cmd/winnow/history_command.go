package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"winnow/internal/history"
)

type runRow struct {
	ID           string    `json:"id"`
	Mode         string    `json:"mode"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	Scanned      int64     `json:"scanned"`
	Selected     int64     `json:"selected"`
	CacheHits    int64     `json:"cache_hits"`
	Processed    int64     `json:"processed"`
	Relocated    int64     `json:"relocated"`
	Skipped      int64     `json:"skipped"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type relocationRow struct {
	Fingerprint string    `json:"fingerprint"`
	SourcePath  string    `json:"source_path"`
	Destination string    `json:"destination,omitempty"`
	MatchedTag  string    `json:"matched_tag,omitempty"`
	Outcome     string    `json:"outcome"`
	CreatedAt   time.Time `json:"created_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, ctx, 0, false)
		},
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, ctx, limit, jsonOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func runHistoryList(cmd *cobra.Command, ctx *commandContext, limit int, jsonOutput bool) error {
	store, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		rows := make([]runRow, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, newRunRow(run))
		}
		return writeJSON(cmd, rows)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Mode,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			runStatus(run),
			fmt.Sprintf("%d", run.Counters.Scanned),
			fmt.Sprintf("%d", run.Counters.Processed),
			fmt.Sprintf("%d", run.Counters.Relocated),
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"Run", "Mode", "Started", "Status", "Scanned", "Tagged", "Relocated"},
		rows, 4, 5, 6)
	return nil
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show one run and its relocation decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			relocations, err := store.Relocations(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				rows := make([]relocationRow, 0, len(relocations))
				for _, rel := range relocations {
					rows = append(rows, relocationRow{
						Fingerprint: rel.Fingerprint,
						SourcePath:  rel.SourcePath,
						Destination: rel.Destination,
						MatchedTag:  rel.MatchedTag,
						Outcome:     rel.Outcome,
						CreatedAt:   rel.CreatedAt,
					})
				}
				return writeJSON(cmd, struct {
					Run         runRow          `json:"run"`
					Relocations []relocationRow `json:"relocations"`
				}{newRunRow(*run), rows})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Mode)
			fmt.Fprintf(out, "  started  %s\n", run.StartedAt.Local().Format(time.RFC3339))
			if run.Finished() {
				fmt.Fprintf(out, "  finished %s (%s)\n",
					run.FinishedAt.Local().Format(time.RFC3339),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
			} else {
				fmt.Fprintln(out, "  finished never (interrupted)")
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "  error    %s\n", run.ErrorMessage)
			}
			c := run.Counters
			fmt.Fprintf(out, "  scanned %d, selected %d, cache hits %d, tagged %d, relocated %d, skipped %d\n",
				c.Scanned, c.Selected, c.CacheHits, c.Processed, c.Relocated, c.Skipped)

			if len(relocations) == 0 {
				fmt.Fprintln(out, "No relocation decisions recorded.")
				return nil
			}
			rows := make([][]string, 0, len(relocations))
			for _, rel := range relocations {
				rows = append(rows, []string{
					shortFingerprint(rel.Fingerprint),
					rel.SourcePath,
					rel.Outcome,
					rel.MatchedTag,
					rel.Destination,
				})
			}
			renderTable(out, []string{"Fingerprint", "Source", "Outcome", "Tag", "Destination"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := history.Open(cfg.Paths.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history journal: %w", err)
	}
	return store, nil
}

func newRunRow(run history.Run) runRow {
	return runRow{
		ID:           run.ID,
		Mode:         run.Mode,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Scanned:      run.Counters.Scanned,
		Selected:     run.Counters.Selected,
		CacheHits:    run.Counters.CacheHits,
		Processed:    run.Counters.Processed,
		Relocated:    run.Counters.Relocated,
		Skipped:      run.Counters.Skipped,
		ErrorMessage: run.ErrorMessage,
	}
}

func runStatus(run history.Run) string {
	switch {
	case !run.Finished():
		return "interrupted"
	case run.ErrorMessage != "":
		return "failed"
	default:
		return "ok"
	}
}
