package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"photoport/internal/migration"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan <archive-root>",
		Short: "Report classification, sidecar matching and albums without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			orch, err := migration.New(cfg, migration.Dependencies{Logger: logger})
			if err != nil {
				return err
			}
			report, err := orch.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			printScanReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func printScanReport(out io.Writer, r migration.ScanReport) {
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSectionHeader("Archive", colorize))
	fmt.Fprintln(out, renderFields([][2]string{
		{"Root", r.Root},
		{"Directories", fmt.Sprint(r.Directories)},
		{"Media files", fmt.Sprint(r.Media)},
		{"Sidecars", fmt.Sprint(r.Sidecars)},
		{"Matched", fmt.Sprint(r.Matched)},
		{"Unmatched sidecars", fmt.Sprint(r.UnmatchedSidecars)},
		{"Pairs (by name)", fmt.Sprint(r.Pairs)},
		{"Top-level items", fmt.Sprint(r.TopLevel)},
		{"Albums", fmt.Sprint(len(r.Albums))},
	}))

	kinds := make([][]string, 0, len(r.Kinds))
	for kind, n := range r.Kinds {
		kinds = append(kinds, []string{string(kind), fmt.Sprint(n)})
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i][0] < kinds[j][0] })
	if len(kinds) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Kind", "Files"}, kinds, []columnAlignment{alignLeft, alignRight}))
	}

	rules := make([][]string, 0, len(r.Rules))
	for rule, n := range r.Rules {
		rules = append(rules, []string{string(rule), fmt.Sprint(n)})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i][0] < rules[j][0] })
	if len(rules) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Match rule", "Sidecars"}, rules, []columnAlignment{alignLeft, alignRight}))
	}

	if len(r.Albums) > 0 {
		fmt.Fprintln(out, renderSectionHeader("Albums", colorize))
		fmt.Fprintln(out, "  "+strings.Join(r.Albums, "\n  "))
	}
	if r.Issues.Total() > 0 {
		fmt.Fprintln(out, renderSectionHeader("Issues", colorize))
		fmt.Fprintln(out, renderTable([]string{"Category", "Count"}, issueRows(r.Issues), []columnAlignment{alignLeft, alignRight}))
	}
}
