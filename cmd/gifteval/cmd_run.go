package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gifteval/gifteval/runner"
)

// Run flags.
var (
	runSuitePath string
	runWorkers   int
	runBatchSize int
	runFailFast  bool
	runOutputDir string
	runFraction  float64
	runSeed      int64
)

// runCmd executes a benchmark suite.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark suite",
	Long: `Runs every model of a suite file on every configured dataset and
term, appending one row per finished task to <output_dir>/all_results.csv.

Tasks whose row already exists in the result file are skipped, so an
interrupted run can be resumed by running the same suite again.`,
	RunE: runSuite,
}

func init() {
	runCmd.Flags().StringVar(&runSuitePath, "suite", "", "Suite YAML file (required)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Override the suite worker count")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "Override the suite batch size")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Abort the run on the first task failure")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "Override the suite output directory")
	runCmd.Flags().Float64Var(&runFraction, "fraction", 0, "Evaluate a sampled fraction of each dataset's series")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Seed for fraction sampling")
	_ = runCmd.MarkFlagRequired("suite")
}

func runSuite(cmd *cobra.Command, args []string) error {
	suite, err := runner.LoadSuite(runSuitePath)
	if err != nil {
		return err
	}

	if runWorkers > 0 {
		suite.Workers = runWorkers
	}
	if runBatchSize > 0 {
		suite.BatchSize = runBatchSize
	}
	if cmd.Flags().Changed("fail-fast") {
		suite.FailFast = runFailFast
	}
	if runOutputDir != "" {
		suite.OutputDir = runOutputDir
	}
	if runFraction > 0 {
		suite.Fraction = runFraction
		suite.Seed = runSeed
	}
	if storageDir != "" {
		suite.StorageDir = storageDir
	}

	r, err := runner.New(suite)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished in %s\n", sum.RunID, runner.FormatElapsed(sum.Elapsed))
	fmt.Printf("  tasks: %d total, %d completed, %d skipped, %d failed\n",
		sum.Total, sum.Completed, sum.Skipped, sum.Failed)
	fmt.Printf("  results: %s\n", sum.ResultsPath)

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", sum.Failed, sum.Total)
	}
	return nil
}
