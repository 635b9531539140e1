package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"episplit/internal/runner"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Detect boundaries and extract one file per episode",
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

			run, err := runner.New(cfg, logger)
			if err != nil {
				return err
			}
			defer run.Close()

			report, err := run.Split(cmd.Context(), args[0], !dryRun)
			if report != nil {
				if ctx.jsonOutput() {
					if jsonErr := writeJSON(cmd.OutOrStdout(), newReportView(report)); jsonErr != nil && err == nil {
						err = jsonErr
					}
				} else {
					renderReport(cmd.OutOrStdout(), report, true)
					if err == nil && !dryRun {
						fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d episodes\n", len(report.SplitPlan.Jobs))
					}
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and print the extraction plan without running ffmpeg")
	return cmd
}
