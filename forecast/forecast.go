// Package forecast defines the prediction interfaces shared by all models:
// the context window handed to a predictor and the forecast representations
// it may return, either as sample paths or as precomputed quantile arrays.
package forecast

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gifteval/gifteval/freq"
	"github.com/gifteval/gifteval/pkg/errors"
)

// Input is the context window handed to a predictor: the observed history
// of one series together with its identity and calendar position.
type Input struct {
	// ItemID identifies the series.
	ItemID string

	// Start is the timestamp of Target[0].
	Start time.Time

	// Freq is the series frequency.
	Freq freq.Freq

	// Target holds the observed history. May be empty and may contain NaN.
	Target []float64
}

// ForecastStart returns the timestamp of the first predicted step, one tick
// after the end of the context.
func (in Input) ForecastStart() time.Time {
	return in.Freq.Step(in.Start, len(in.Target))
}

// Forecast is a prediction for one series over a fixed horizon.
type Forecast interface {
	// ItemID identifies the forecasted series.
	ItemID() string

	// StartDate returns the timestamp of the first predicted step.
	StartDate() time.Time

	// Mean returns the mean prediction per step, or nil when the forecast
	// carries no mean and no median to fall back on.
	Mean() []float64

	// Quantile returns the per-step prediction at quantile level q.
	Quantile(q float64) ([]float64, error)
}

// SampleForecast represents a forecast as sample paths drawn from the
// predictive distribution, one row per sample.
type SampleForecast struct {
	itemID  string
	start   time.Time
	samples [][]float64
	horizon int
}

// NewSampleForecast creates a SampleForecast from sample paths.
//
// Parameters:
//   - itemID: the forecasted series
//   - start: timestamp of the first predicted step
//   - samples: sample × horizon values; all rows must share one length
//
// Returns:
//   - *SampleForecast: the forecast
//   - error: ErrEmptyData for no samples, DimensionError for ragged rows
func NewSampleForecast(itemID string, start time.Time, samples [][]float64) (*SampleForecast, error) {
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "forecast for %q has no samples", itemID)
	}
	horizon := len(samples[0])
	for i, row := range samples {
		if len(row) != horizon {
			return nil, errors.NewDimensionError("NewSampleForecast", horizon, len(row), i)
		}
	}
	return &SampleForecast{
		itemID:  itemID,
		start:   start,
		samples: samples,
		horizon: horizon,
	}, nil
}

// ItemID implements Forecast.
func (f *SampleForecast) ItemID() string { return f.itemID }

// StartDate implements Forecast.
func (f *SampleForecast) StartDate() time.Time { return f.start }

// Horizon returns the number of predicted steps.
func (f *SampleForecast) Horizon() int { return f.horizon }

// NumSamples returns the number of sample paths.
func (f *SampleForecast) NumSamples() int { return len(f.samples) }

// Mean returns the per-step mean over sample paths.
func (f *SampleForecast) Mean() []float64 {
	mean := make([]float64, f.horizon)
	for _, row := range f.samples {
		for t, v := range row {
			mean[t] += v
		}
	}
	n := float64(len(f.samples))
	for t := range mean {
		mean[t] /= n
	}
	return mean
}

// Quantile returns the per-step empirical quantile at level q.
//
// Errors:
//   - ValueError: if q is outside (0, 1)
func (f *SampleForecast) Quantile(q float64) ([]float64, error) {
	if q <= 0 || q >= 1 {
		return nil, errors.NewValueError("SampleForecast.Quantile", "quantile level must be in (0, 1)")
	}

	out := make([]float64, f.horizon)
	column := make([]float64, len(f.samples))
	for t := 0; t < f.horizon; t++ {
		for i, row := range f.samples {
			column[i] = row[t]
		}
		sort.Float64s(column)
		out[t] = stat.Quantile(q, stat.Empirical, column, nil)
	}
	return out, nil
}

// QuantileForecast represents a forecast as precomputed per-level arrays,
// keyed the way remote predictors return them: "mean", "0.1", ..., "0.9".
type QuantileForecast struct {
	itemID  string
	start   time.Time
	arrays  map[string][]float64
	horizon int
}

// NewQuantileForecast creates a QuantileForecast from keyed arrays. A key
// is either "mean" or a quantile level formatted as its shortest decimal
// ("0.1"). All arrays must share one length.
//
// Returns:
//   - *QuantileForecast: the forecast
//   - error: ErrEmptyData for no arrays, DimensionError for ragged arrays
func NewQuantileForecast(itemID string, start time.Time, arrays map[string][]float64) (*QuantileForecast, error) {
	if len(arrays) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "forecast for %q has no arrays", itemID)
	}

	horizon := -1
	for key, arr := range arrays {
		if horizon < 0 {
			horizon = len(arr)
			continue
		}
		if len(arr) != horizon {
			return nil, errors.NewDimensionError("NewQuantileForecast("+key+")", horizon, len(arr), 0)
		}
	}
	if horizon == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "forecast for %q has empty arrays", itemID)
	}

	return &QuantileForecast{
		itemID:  itemID,
		start:   start,
		arrays:  arrays,
		horizon: horizon,
	}, nil
}

// ItemID implements Forecast.
func (f *QuantileForecast) ItemID() string { return f.itemID }

// StartDate implements Forecast.
func (f *QuantileForecast) StartDate() time.Time { return f.start }

// Horizon returns the number of predicted steps.
func (f *QuantileForecast) Horizon() int { return f.horizon }

// Mean returns the "mean" array, falling back to the median when the
// forecast carries no mean, and nil when it has neither.
func (f *QuantileForecast) Mean() []float64 {
	if mean, ok := f.arrays["mean"]; ok {
		return mean
	}
	if median, ok := f.arrays[QuantileKey(0.5)]; ok {
		return median
	}
	return nil
}

// Quantile returns the array stored for level q.
//
// Errors:
//   - ValueError: if no array was produced for level q
func (f *QuantileForecast) Quantile(q float64) ([]float64, error) {
	if arr, ok := f.arrays[QuantileKey(q)]; ok {
		return arr, nil
	}
	return nil, errors.NewValueError("QuantileForecast.Quantile",
		"no array for quantile level "+QuantileKey(q))
}
