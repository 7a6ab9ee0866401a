package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/gifteval/gifteval/dataset"
	"github.com/gifteval/gifteval/eval"
	"github.com/gifteval/gifteval/models"
	gifterrors "github.com/gifteval/gifteval/pkg/errors"
	"github.com/gifteval/gifteval/pkg/log"
	"github.com/gifteval/gifteval/report"
)

// Summary reports the outcome of a suite run.
type Summary struct {
	// RunID identifies the run in logs.
	RunID string

	// Total is the number of tasks the suite expanded to.
	Total int

	// Completed counts tasks that produced a new result row.
	Completed int

	// Skipped counts tasks whose row already existed in the result file.
	Skipped int

	// Failed counts tasks that errored. Always 0 when FailFast is set,
	// since the first failure aborts the run.
	Failed int

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration

	// ResultsPath is the result file tasks were appended to.
	ResultsPath string
}

// Runner executes the tasks of one suite through a bounded worker pool.
type Runner struct {
	suite  *Suite
	logger log.Logger
}

// New builds a runner for a validated suite.
//
// Parameters:
//   - suite: the benchmark configuration
//
// Returns:
//   - *Runner: the runner
//   - error: a ValidationError when the suite is malformed
func New(suite *Suite) (*Runner, error) {
	if suite == nil {
		return nil, gifterrors.NewValueError("runner.New", "suite must not be nil")
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		suite:  suite,
		logger: log.GetLoggerWithName("runner"),
	}, nil
}

// Run executes every task of the suite and appends one result row per
// completed task.
//
// Tasks whose configuration and model already appear in the result file
// are skipped, so an interrupted run can be resumed by running the same
// suite again. Task failures are logged and counted unless FailFast is
// set, in which case the first failure cancels the remaining tasks.
//
// Parameters:
//   - ctx: cancels outstanding tasks when done
//
// Returns:
//   - *Summary: counts and timing for the run
//   - error: the first task error under FailFast, or an infrastructure
//     error (result file, context cancellation)
func (r *Runner) Run(ctx context.Context) (sum *Summary, err error) {
	defer gifterrors.Recover(&err, "runner.Run")

	runID := uuid.NewString()
	logger := r.logger.With(log.RunIDKey, runID)
	start := time.Now()

	tasks := r.suite.Tasks()
	writer, err := report.NewWriter(r.suite.OutputDir)
	if err != nil {
		return nil, err
	}

	props := r.loadProperties(logger)

	workers := r.suite.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("Suite run started",
		log.OperationKey, log.OperationEvaluate,
		"suite", r.suite.Name,
		"tasks", len(tasks),
		"workers", workers,
		log.PathKey, writer.Path(),
	)

	summary := &Summary{RunID: runID, Total: len(tasks), ResultsPath: writer.Path()}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, task := range tasks {
		// Cheap resume check before any data is read. Names whose
		// frequency cannot be resolved here are re-checked after the
		// dataset is opened.
		cfg := dataset.ConfigFor(task.Dataset, props, task.Term)
		if writer.Has(cfg, task.Model.Name) {
			logger.Debug("Result row exists, skipping task",
				log.ConfigKey, cfg,
				log.ModelNameKey, task.Model.Name,
			)
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if cerr := gctx.Err(); cerr != nil {
				return cerr
			}

			row, terr := r.runTask(gctx, task, props, logger)
			if terr != nil {
				if r.suite.FailFast {
					return gifterrors.Wrapf(terr, "gifteval: task %s/%s/%s",
						task.Dataset, task.Term, task.Model.Name)
				}
				logger.Error("Task failed",
					log.DatasetKey, task.Dataset,
					log.TermKey, string(task.Term),
					log.ModelNameKey, task.Model.Name,
					"error", terr,
				)
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if writer.Has(row.Dataset, row.Model) {
				summary.Skipped++
				return nil
			}
			if werr := writer.Append(*row); werr != nil {
				return werr
			}
			summary.Completed++
			return nil
		})
	}

	runErr := g.Wait()
	if cerr := writer.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	summary.Elapsed = time.Since(start)

	if runErr != nil {
		logger.Error("Suite run aborted",
			"completed", summary.Completed,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
			"error", runErr,
		)
		return nil, runErr
	}

	logger.Info("Suite run completed",
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		log.DurationMsKey, summary.Elapsed.Milliseconds(),
	)
	return summary, nil
}

// runTask evaluates one model on one dataset term and builds its result
// row.
func (r *Runner) runTask(ctx context.Context, task Task, props dataset.PropertiesMap, logger log.Logger) (*report.Row, error) {
	opts := []dataset.Option{dataset.WithTerm(task.Term)}
	if r.suite.StorageDir != "" {
		opts = append(opts, dataset.WithStorageDir(r.suite.StorageDir))
	}
	if r.suite.Fraction > 0 && r.suite.Fraction < 1 {
		opts = append(opts, dataset.WithFraction(r.suite.Fraction, r.suite.Seed))
	}

	ds, err := dataset.Open(task.Dataset, opts...)
	if err != nil {
		return nil, err
	}

	cfg := models.Config{
		Horizon:        ds.PredictionLength(),
		Season:         ds.Seasonality(),
		QuantileLevels: eval.RequiredQuantiles(models.DefaultQuantileLevels),
	}
	predictor, err := models.New(task.Model.Name, cfg, task.Model.Params)
	if err != nil {
		return nil, err
	}

	evalOpts := []eval.Option{eval.WithLogger(logger)}
	if r.suite.BatchSize > 0 {
		evalOpts = append(evalOpts, eval.WithBatchSize(r.suite.BatchSize))
	}

	res, err := eval.Evaluate(ctx, predictor, ds, evalOpts...)
	if err != nil {
		return nil, err
	}

	domain := ""
	numVariates := ds.TargetDim()
	if p, ok := props.Lookup(task.Dataset); ok {
		domain = string(p.Domain)
		if p.NumVariates > 0 {
			numVariates = p.NumVariates
		}
	}

	row := report.NewRow(ds.Config(), res, domain, numVariates)
	return &row, nil
}

// loadProperties resolves the storage root the same way dataset.Open does
// and loads the properties file from it. A missing file is tolerated;
// affected rows carry an empty domain and the loaded target dimension.
func (r *Runner) loadProperties(logger log.Logger) dataset.PropertiesMap {
	root := r.suite.StorageDir
	if root == "" {
		_ = godotenv.Load()
		root = os.Getenv(dataset.DefaultStorageEnvVar)
	}
	if root == "" {
		return nil
	}

	path := filepath.Join(root, dataset.PropertiesFileName)
	props, err := dataset.LoadProperties(path)
	if err != nil {
		logger.Warn("Dataset properties unavailable, rows will lack domain metadata",
			log.PathKey, path,
			"error", err,
		)
		return nil
	}
	return props
}

// FormatElapsed renders a duration in run log convention: seconds under
// a minute, then minutes, hours, and days.
//
// Example:
//
//	runner.FormatElapsed(90 * time.Second) // "1.50 minutes"
func FormatElapsed(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.2f seconds", s)
	case s < 3600:
		return fmt.Sprintf("%.2f minutes", s/60)
	case s < 86400:
		return fmt.Sprintf("%.2f hours", s/3600)
	default:
		return fmt.Sprintf("%.2f days", s/86400)
	}
}
