package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gifteval/gifteval/report"
)

// reportCmd groups result file commands.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Merge and plot result files",
}

// Report flags.
var (
	mergeOutPath   string
	plotMetricName string
	plotOutPath    string
)

// reportMergeCmd combines result files into one.
var reportMergeCmd = &cobra.Command{
	Use:   "merge SRC...",
	Short: "Merge result files, keeping the first row per configuration and model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReportMerge,
}

// reportPlotCmd renders one metric as a grouped bar chart.
var reportPlotCmd = &cobra.Command{
	Use:   "plot SRC...",
	Short: "Plot a metric across datasets and models",
	Long: `Reads result files and renders the chosen metric as grouped bars,
one group per dataset configuration and one bar per model.

Example:
  gifteval report plot --metric "MASE[0.5]" results/all_results.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReportPlot,
}

func init() {
	reportMergeCmd.Flags().StringVar(&mergeOutPath, "out", "", "Merged output file (required)")
	_ = reportMergeCmd.MarkFlagRequired("out")

	reportPlotCmd.Flags().StringVar(&plotMetricName, "metric", "", "Metric to plot (required)")
	reportPlotCmd.Flags().StringVar(&plotOutPath, "out", "plot.png", "Output image; the extension picks the format")
	_ = reportPlotCmd.MarkFlagRequired("metric")

	reportCmd.AddCommand(reportMergeCmd)
	reportCmd.AddCommand(reportPlotCmd)
}

func runReportMerge(cmd *cobra.Command, args []string) error {
	n, err := report.Merge(mergeOutPath, args...)
	if err != nil {
		return err
	}
	fmt.Printf("merged %d rows into %s\n", n, mergeOutPath)
	return nil
}

func runReportPlot(cmd *cobra.Command, args []string) error {
	var rows []report.Row
	for _, src := range args {
		r, err := report.Read(src)
		if err != nil {
			return err
		}
		rows = append(rows, r...)
	}

	if err := report.Plot(rows, plotMetricName, plotOutPath); err != nil {
		return err
	}
	fmt.Printf("plotted %d rows to %s\n", len(rows), plotOutPath)
	return nil
}
