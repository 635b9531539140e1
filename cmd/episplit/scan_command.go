package main

import (
	"github.com/spf13/cobra"

	"episplit/internal/runner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan FILE",
		Short: "Detect episode boundaries without writing anything",
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

			report, err := run.Scan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), newReportView(report))
			}
			renderReport(cmd.OutOrStdout(), report, false)
			return nil
		},
	}
}
