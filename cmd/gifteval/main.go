// Package main implements the gifteval command line interface: suite runs,
// single evaluations, dataset inspection, and result file handling.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gifteval/gifteval/dataset"
	"github.com/gifteval/gifteval/pkg/log"
)

// Global flags.
var (
	logLevel   string
	envFile    string
	storageDir string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "gifteval",
	Short: "Time series forecasting benchmark harness",
	Long: `gifteval evaluates forecasting models on benchmark datasets with
rolling-window held-out evaluation and collects one result row per dataset
configuration and model.

Dataset storage is resolved from --storage-dir, or from the GIFT_EVAL
environment variable; a .env file in the working directory is honored.`,
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("loading env file %s: %w", envFile, err)
			}
		}
		log.SetupLogger(logLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load before resolving storage")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage-dir", "", "Dataset storage root (default: $GIFT_EVAL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// storageRoot resolves the dataset storage root from the flag or the
// environment.
func storageRoot() (string, error) {
	if storageDir != "" {
		return storageDir, nil
	}
	_ = godotenv.Load()
	if root := os.Getenv(dataset.DefaultStorageEnvVar); root != "" {
		return root, nil
	}
	return "", fmt.Errorf("storage root not set; pass --storage-dir or export %s", dataset.DefaultStorageEnvVar)
}
