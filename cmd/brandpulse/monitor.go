package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandpulse-ai/brandpulse/internal/workflow"
)

var monitorFlags struct {
	subject  string
	sources  []string
	interval string
	total    string
	deep     bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Repeatedly run brand analysis over a time window",
	Long: `Monitor re-runs the analysis on a fixed interval until the total
window elapses, printing each report as it completes. Durations use the
compact form: 30s, 15m, 2h, 1d.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer app.close()

		input := workflow.Input{
			Subject:        monitorFlags.subject,
			PrimarySources: monitorFlags.sources,
			DeepAnalysis:   monitorFlags.deep,
		}
		if len(input.PrimarySources) == 0 {
			input.PrimarySources = app.connectors.List()
		}

		mc := workflow.MonitorConfig{
			Interval: monitorFlags.interval,
			Total:    monitorFlags.total,
		}
		if mc.Interval == "" {
			mc.Interval = cfg.Monitor.Interval
		}
		if mc.Total == "" {
			mc.Total = cfg.Monitor.Total
		}

		results, err := app.orchestrator.Monitor(cmd.Context(), input, mc)
		for _, result := range results {
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
		}
		return err
	},
}

func init() {
	monitorCmd.Flags().StringVarP(&monitorFlags.subject, "subject", "s", "", "brand or entity to monitor (required)")
	monitorCmd.Flags().StringSliceVar(&monitorFlags.sources, "source", nil, "primary source names (default: all configured connectors)")
	monitorCmd.Flags().StringVar(&monitorFlags.interval, "interval", "", "time between runs, e.g. 15m (default from config)")
	monitorCmd.Flags().StringVar(&monitorFlags.total, "total", "", "total monitoring window, e.g. 2h (default from config)")
	monitorCmd.Flags().BoolVar(&monitorFlags.deep, "deep", false, "re-analyze high-impact items with the deep model")
	_ = monitorCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(monitorCmd)
}
