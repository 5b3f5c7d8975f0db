package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandpulse-ai/brandpulse/internal/workflow"
)

var runFlags struct {
	subject     string
	founders    []string
	competitors []string
	sources     []string
	secondary   []string
	limit       int
	deep        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one brand intelligence run",
	Long: `Run gathers data about the subject from the configured sources,
scores sentiment, archives the outcome, and prints the report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer app.close()

		input := workflow.Input{
			Subject:          runFlags.subject,
			Founders:         runFlags.founders,
			Competitors:      runFlags.competitors,
			PrimarySources:   runFlags.sources,
			SecondarySources: runFlags.secondary,
			Limit:            runFlags.limit,
			DeepAnalysis:     runFlags.deep,
		}
		if len(input.PrimarySources) == 0 {
			input.PrimarySources = app.connectors.List()
		}

		result, err := app.orchestrator.Run(cmd.Context(), input)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.subject, "subject", "s", "", "brand or entity to investigate (required)")
	runCmd.Flags().StringSliceVar(&runFlags.founders, "founder", nil, "founder names to gather separately (repeatable)")
	runCmd.Flags().StringSliceVar(&runFlags.competitors, "competitor", nil, "competitor names to gather separately (repeatable)")
	runCmd.Flags().StringSliceVar(&runFlags.sources, "source", nil, "primary source names (default: all configured connectors)")
	runCmd.Flags().StringSliceVar(&runFlags.secondary, "secondary", nil, "secondary source names")
	runCmd.Flags().IntVar(&runFlags.limit, "limit", 0, "max items per source fetch (0 = source default)")
	runCmd.Flags().BoolVar(&runFlags.deep, "deep", false, "re-analyze high-impact items with the deep model")
	_ = runCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(runCmd)
}
