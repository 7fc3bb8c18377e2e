package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photoport/internal/state"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled migration runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "Status", "Mode", "Items", "OK", "Failed", "Root"},
				runRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored summary of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := findRun(cmd.Context(), store, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if run.SummaryJSON == "" {
				return writeJSON(cmd, run)
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, []byte(run.SummaryJSON), "", "  "); err != nil {
				return fmt.Errorf("decode stored summary: %w", err)
			}
			buf.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}
}

// findRun resolves a full run id or the short prefix shown by "runs".
func findRun(ctx context.Context, store *state.Store, id string) (*state.Run, error) {
	run, err := store.GetRun(ctx, id)
	if err != nil || run != nil {
		return run, err
	}
	if id != "" {
		runs, err := store.ListRuns(ctx, 0)
		if err != nil {
			return nil, err
		}
		var match *state.Run
		for i := range runs {
			if !strings.HasPrefix(runs[i].ID, id) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("run prefix %s is ambiguous", id)
			}
			match = &runs[i]
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}

func openJournal(ctx *commandContext) (*state.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := state.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open run journal: %w", err)
	}
	return store, nil
}
