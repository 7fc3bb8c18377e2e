package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photoport/internal/notifications"
	"photoport/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, external tools and memory budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Configuration", colorize))
			path := ctx.configPath
			if !ctx.configSeen {
				path += " (not found, defaults used)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, path, colorize))
			fmt.Fprintln(out, renderStatusLine("Import mode", statusInfo, cfg.Import.Mode, colorize))
			fmt.Fprintln(out, renderStatusLine("Embedded metadata", statusInfo, yesNo(cfg.Metadata.ReadEmbedded), colorize))
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, yesNo(notifications.Enabled(notifications.NewService(cfg))), colorize))

			fmt.Fprintln(out, renderSectionHeader("Checks", colorize))
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					if r.Name == "FFprobe" || r.Name == "Memory budget" {
						kind = statusWarn
					}
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			fmt.Fprintln(out, renderSectionHeader("External tools", colorize))
			for _, st := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind := statusOK
				detail := st.Version
				if !st.Available {
					kind = statusError
					if st.Optional {
						kind = statusWarn
					}
					detail = st.Detail
				}
				fmt.Fprintln(out, renderStatusLine(st.Name, kind, detail, colorize))
			}

			if failed := blockingFailures(results); len(failed) > 0 {
				return fmt.Errorf("%d blocking check(s) failed", len(failed))
			}
			return nil
		},
	}
}
