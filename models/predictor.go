// Package models provides the forecasting models evaluated by the harness.
//
// Every model implements the Predictor interface: it receives a batch of
// context windows and returns one forecast per window. The bundled models
// are per-series statistical baselines that fit on each context at predict
// time; prediction intervals follow statsforecast conventions, Gaussian
// around the point forecast with a standard deviation estimated from
// in-sample one-step residuals. Remote foundation models integrate through
// the Server predictor.
//
// All models tolerate NaN values in the context (skipped during fitting)
// and empty contexts (the forecast falls back to zeros).
package models

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// Predictor produces forecasts for batches of context windows.
type Predictor interface {
	// Name returns the model identifier used in result rows.
	Name() string

	// Predict returns one forecast per input, in input order.
	Predict(ctx context.Context, inputs []forecast.Input) ([]forecast.Forecast, error)
}

// DefaultQuantileLevels are the benchmark's nine quantile levels.
var DefaultQuantileLevels = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// Config carries the per-dataset quantities a predictor is built for.
type Config struct {
	// Horizon is the number of steps to forecast.
	Horizon int

	// Season is the seasonal period of the dataset frequency; 1 means
	// non-seasonal.
	Season int

	// QuantileLevels are the levels each forecast must provide. Empty
	// defaults to DefaultQuantileLevels.
	QuantileLevels []float64
}

func (c Config) withDefaults() Config {
	if c.Season < 1 {
		c.Season = 1
	}
	if len(c.QuantileLevels) == 0 {
		c.QuantileLevels = DefaultQuantileLevels
	}
	return c
}

func (c Config) validate(op string) error {
	if c.Horizon < 1 {
		return errors.NewValueError(op, "horizon must be at least 1")
	}
	return nil
}

// validValues returns the non-NaN values of the context, preserving order.
func validValues(target []float64) []float64 {
	out := make([]float64, 0, len(target))
	for _, v := range target {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// lastValid returns the most recent non-NaN value and whether one exists.
func lastValid(target []float64) (float64, bool) {
	for i := len(target) - 1; i >= 0; i-- {
		if !math.IsNaN(target[i]) {
			return target[i], true
		}
	}
	return 0, false
}

// nanMean returns the mean of the non-NaN values, or 0 for none.
func nanMean(target []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range target {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// residualStd returns the sample standard deviation of the non-NaN
// residuals, or 0 when fewer than two remain.
func residualStd(residuals []float64) float64 {
	mean, n := 0.0, 0
	for _, r := range residuals {
		if !math.IsNaN(r) {
			mean += r
			n++
		}
	}
	if n < 2 {
		return 0
	}
	mean /= float64(n)

	ss := 0.0
	for _, r := range residuals {
		if !math.IsNaN(r) {
			d := r - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1))
}

// lagResiduals returns y[t] − y[t−lag] over the context, skipping pairs
// with a NaN on either side.
func lagResiduals(target []float64, lag int) []float64 {
	if lag < 1 || len(target) <= lag {
		return nil
	}
	out := make([]float64, 0, len(target)-lag)
	for t := lag; t < len(target); t++ {
		if math.IsNaN(target[t]) || math.IsNaN(target[t-lag]) {
			continue
		}
		out = append(out, target[t]-target[t-lag])
	}
	return out
}

// gaussianForecast assembles a QuantileForecast from per-step means and
// standard deviations: each quantile level q is mean + z_q × sigma.
func gaussianForecast(in forecast.Input, mean, sigma []float64, levels []float64) (forecast.Forecast, error) {
	if len(mean) != len(sigma) {
		return nil, errors.NewDimensionError("gaussianForecast", len(mean), len(sigma), 0)
	}

	arrays := make(map[string][]float64, len(levels)+1)
	arrays["mean"] = mean
	for _, q := range levels {
		z := distuv.UnitNormal.Quantile(q)
		arr := make([]float64, len(mean))
		for t := range mean {
			arr[t] = mean[t] + z*sigma[t]
		}
		arrays[forecast.QuantileKey(q)] = arr
	}
	return forecast.NewQuantileForecast(in.ItemID, in.ForecastStart(), arrays)
}

// constantForecast builds a Gaussian forecast with a constant point value
// and constant spread across the horizon.
func constantForecast(in forecast.Input, horizon int, value, sigma float64, levels []float64) (forecast.Forecast, error) {
	mean := make([]float64, horizon)
	spread := make([]float64, horizon)
	for t := range mean {
		mean[t] = value
		spread[t] = sigma
	}
	return gaussianForecast(in, mean, spread, levels)
}

// zeroForecast is the fallback for an empty or all-NaN context.
func zeroForecast(in forecast.Input, horizon int, levels []float64) (forecast.Forecast, error) {
	return constantForecast(in, horizon, 0, 0, levels)
}
