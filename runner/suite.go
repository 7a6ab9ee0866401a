// Package runner executes benchmark suites: every configured model
// evaluated on every configured dataset and term, through an in-process
// worker pool, with one result row appended per finished task.
package runner

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gifteval/gifteval/dataset"
	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// ModelSpec names one predictor to benchmark plus its registry
// parameters.
type ModelSpec struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Suite is a benchmark configuration, typically loaded from YAML:
//
//	name: benchmark
//	output_dir: results
//	short_datasets: [m4_weekly, "electricity/15T"]
//	med_long_datasets: ["electricity/15T"]
//	models:
//	  - name: seasonal_naive
//	  - name: window_average
//	    params: {window: 8}
//	workers: 4
//	batch_size: 1024
type Suite struct {
	// Name labels the suite in logs.
	Name string `yaml:"name"`

	// OutputDir receives the result file. Resume works by reopening
	// the same directory.
	OutputDir string `yaml:"output_dir"`

	// ShortDatasets are evaluated at the short term only.
	ShortDatasets []string `yaml:"short_datasets"`

	// MedLongDatasets are additionally evaluated at the medium and
	// long terms. Names not already in ShortDatasets get short runs
	// too.
	MedLongDatasets []string `yaml:"med_long_datasets"`

	// Models are the predictors to benchmark.
	Models []ModelSpec `yaml:"models"`

	// Workers bounds concurrent tasks; 0 means one worker per CPU.
	Workers int `yaml:"workers,omitempty"`

	// BatchSize is passed to the evaluation loop; 0 keeps its default.
	BatchSize int `yaml:"batch_size,omitempty"`

	// FailFast cancels the whole run on the first task failure instead
	// of logging and continuing.
	FailFast bool `yaml:"fail_fast,omitempty"`

	// Fraction samples each dataset down to this share of its series,
	// for smoke runs. 0 or 1 keeps every series.
	Fraction float64 `yaml:"fraction,omitempty"`

	// Seed fixes the sampling permutation when Fraction is set.
	Seed int64 `yaml:"seed,omitempty"`

	// StorageDir overrides the dataset storage root resolved from the
	// environment.
	StorageDir string `yaml:"storage_dir,omitempty"`
}

// Task is one unit of suite work: a model on a dataset at one term.
type Task struct {
	Dataset string
	Term    dataset.Term
	Model   ModelSpec
}

// LoadSuite reads and validates a YAML suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gifterrors.NewDataError("runner.LoadSuite", path, "read suite file", err)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, gifterrors.NewDataError("runner.LoadSuite", path, "parse suite file", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the suite for the mistakes a YAML file can smuggle in.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return gifterrors.NewValidationError("name", "must not be empty", s.Name)
	}
	if s.OutputDir == "" {
		return gifterrors.NewValidationError("output_dir", "must not be empty", s.OutputDir)
	}
	if len(s.Models) == 0 {
		return gifterrors.NewValidationError("models", "at least one model is required", nil)
	}
	for _, m := range s.Models {
		if m.Name == "" {
			return gifterrors.NewValidationError("models", "model name must not be empty", nil)
		}
	}
	if len(s.ShortDatasets) == 0 && len(s.MedLongDatasets) == 0 {
		return gifterrors.NewValidationError("short_datasets", "at least one dataset is required", nil)
	}
	if s.Workers < 0 {
		return gifterrors.NewValidationError("workers", "must not be negative", s.Workers)
	}
	if s.Fraction < 0 || s.Fraction > 1 {
		return gifterrors.NewValidationError("fraction", "must be in [0, 1]", s.Fraction)
	}
	return nil
}

// Tasks expands the suite into its work units, datasets in configuration
// order, terms short to long, models in configuration order.
func (s *Suite) Tasks() []Task {
	names := make([]string, 0, len(s.ShortDatasets)+len(s.MedLongDatasets))
	names = append(names, s.ShortDatasets...)
	medLong := make(map[string]bool, len(s.MedLongDatasets))
	for _, name := range s.MedLongDatasets {
		medLong[name] = true
		if !contains(s.ShortDatasets, name) {
			names = append(names, name)
		}
	}

	var tasks []Task
	for _, name := range names {
		terms := []dataset.Term{dataset.TermShort}
		if medLong[name] {
			terms = dataset.Terms
		}
		for _, term := range terms {
			for _, model := range s.Models {
				tasks = append(tasks, Task{Dataset: name, Term: term, Model: model})
			}
		}
	}
	return tasks
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
