package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gifteval/gifteval/dataset"
	"github.com/gifteval/gifteval/eval"
	"github.com/gifteval/gifteval/models"
	"github.com/gifteval/gifteval/pkg/log"
	"github.com/gifteval/gifteval/report"
	"github.com/gifteval/gifteval/runner"
)

// Eval flags.
var (
	evalDataset    string
	evalTermStr    string
	evalModel      string
	evalParams     []string
	evalOutputDir  string
	evalBatchSize  int
	evalProperties string
	evalFraction   float64
	evalSeed       int64
)

// evalCmd evaluates a single model on a single dataset term.
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate one model on one dataset",
	Long: `Evaluates a model on one dataset at one forecast term, prints the
metric values, and appends the result row to <output>/all_results.csv.

Example:
  gifteval eval --dataset m4_weekly --model seasonal_naive
  gifteval eval --dataset "electricity/15T" --term long --model window_average --param window=8`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalDataset, "dataset", "", "Dataset name, optionally with a frequency token (required)")
	evalCmd.Flags().StringVar(&evalTermStr, "term", "short", "Forecast term (short, medium, long)")
	evalCmd.Flags().StringVar(&evalModel, "model", "", "Model name (required)")
	evalCmd.Flags().StringArrayVar(&evalParams, "param", nil, "Model parameter as key=value, repeatable")
	evalCmd.Flags().StringVar(&evalOutputDir, "output", "results", "Directory receiving all_results.csv")
	evalCmd.Flags().IntVar(&evalBatchSize, "batch-size", 0, "Prediction batch size")
	evalCmd.Flags().StringVar(&evalProperties, "properties", "", "Dataset properties file (default: <storage root>/dataset_properties.json)")
	evalCmd.Flags().Float64Var(&evalFraction, "fraction", 0, "Evaluate a sampled fraction of the dataset's series")
	evalCmd.Flags().Int64Var(&evalSeed, "seed", 0, "Seed for fraction sampling")
	_ = evalCmd.MarkFlagRequired("dataset")
	_ = evalCmd.MarkFlagRequired("model")
}

func runEval(cmd *cobra.Command, args []string) error {
	term, err := dataset.ParseTerm(evalTermStr)
	if err != nil {
		return err
	}
	root, err := storageRoot()
	if err != nil {
		return err
	}

	opts := []dataset.Option{dataset.WithTerm(term), dataset.WithStorageDir(root)}
	if evalProperties != "" {
		opts = append(opts, dataset.WithProperties(evalProperties))
	}
	if evalFraction > 0 && evalFraction < 1 {
		opts = append(opts, dataset.WithFraction(evalFraction, evalSeed))
	}
	ds, err := dataset.Open(evalDataset, opts...)
	if err != nil {
		return err
	}

	params, err := parseParams(evalParams)
	if err != nil {
		return err
	}
	cfg := models.Config{
		Horizon:        ds.PredictionLength(),
		Season:         ds.Seasonality(),
		QuantileLevels: eval.RequiredQuantiles(models.DefaultQuantileLevels),
	}
	predictor, err := models.New(evalModel, cfg, params)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evalOpts := []eval.Option{eval.WithLogger(log.GetLoggerWithName("eval"))}
	if evalBatchSize > 0 {
		evalOpts = append(evalOpts, eval.WithBatchSize(evalBatchSize))
	}
	res, err := eval.Evaluate(ctx, predictor, ds, evalOpts...)
	if err != nil {
		return err
	}

	domain, numVariates := rowMetadata(root, evalProperties, evalDataset, ds.TargetDim())
	row := report.NewRow(ds.Config(), res, domain, numVariates)

	writer, err := report.NewWriter(evalOutputDir)
	if err != nil {
		return err
	}
	if err := writer.Append(row); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Printf("%s  %s  (%d series, %d windows, %s)\n",
		row.Dataset, row.Model, res.NumSeries, res.NumWindows, runner.FormatElapsed(res.Duration))
	for _, name := range report.MetricNames() {
		v, _ := row.Metric(name)
		fmt.Printf("  %-22s %.6g\n", name, v)
	}
	fmt.Printf("results: %s\n", writer.Path())
	return nil
}

// parseParams converts repeated key=value flags into registry parameters.
// Values that parse as integers or floats are passed as numbers.
func parseParams(kvs []string) (map[string]any, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad --param %q, want key=value", kv)
		}
		if n, err := strconv.Atoi(value); err == nil {
			params[key] = n
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = f
		} else {
			params[key] = value
		}
	}
	return params, nil
}

// rowMetadata looks up the domain and variate count recorded for a dataset,
// falling back to the loaded target dimension when the properties file is
// missing or does not cover the dataset.
func rowMetadata(root, propsPath, name string, targetDim int) (string, int) {
	path := propsPath
	if path == "" {
		path = filepath.Join(root, dataset.PropertiesFileName)
	}
	props, err := dataset.LoadProperties(path)
	if err != nil {
		return "", targetDim
	}
	p, ok := props.Lookup(name)
	if !ok {
		return "", targetDim
	}
	numVariates := targetDim
	if p.NumVariates > 0 {
		numVariates = p.NumVariates
	}
	return string(p.Domain), numVariates
}
