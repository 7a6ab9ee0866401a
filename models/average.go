package models

import (
	"context"
	"math"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// HistoricAverage forecasts the mean of the full context for every future
// step, with a constant Gaussian interval from the context's spread.
type HistoricAverage struct {
	cfg Config
}

// NewHistoricAverage creates a HistoricAverage predictor.
func NewHistoricAverage(cfg Config) (*HistoricAverage, error) {
	if err := cfg.validate("NewHistoricAverage"); err != nil {
		return nil, err
	}
	return &HistoricAverage{cfg: cfg.withDefaults()}, nil
}

// Name implements Predictor.
func (m *HistoricAverage) Name() string { return "historic_average" }

// Predict implements Predictor.
func (m *HistoricAverage) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "HistoricAverage.Predict")

	fcs = make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		valid := validValues(in.Target)
		if len(valid) == 0 {
			if fcs[i], err = zeroForecast(in, m.cfg.Horizon, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		mean := nanMean(valid)
		// Predictive spread of the mean forecast: s × √(1 + 1/n).
		sigma := residualStd(valid) * math.Sqrt(1+1/float64(len(valid)))
		if fcs[i], err = constantForecast(in, m.cfg.Horizon, mean, sigma, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

// WindowAverage forecasts the mean of the trailing window for every future
// step.
type WindowAverage struct {
	cfg    Config
	window int
}

// NewWindowAverage creates a WindowAverage predictor.
//
// Parameters:
//   - cfg: horizon and quantile levels
//   - window: number of trailing observations to average, at least 1
//
// Returns:
//   - *WindowAverage: the predictor
//   - error: ValueError if the horizon or window is not positive
func NewWindowAverage(cfg Config, window int) (*WindowAverage, error) {
	if err := cfg.validate("NewWindowAverage"); err != nil {
		return nil, err
	}
	if window < 1 {
		return nil, errors.NewValueError("NewWindowAverage", "window must be at least 1")
	}
	return &WindowAverage{cfg: cfg.withDefaults(), window: window}, nil
}

// Name implements Predictor.
func (m *WindowAverage) Name() string { return "window_average" }

// Predict implements Predictor.
func (m *WindowAverage) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "WindowAverage.Predict")

	fcs = make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := in.Target
		if len(target) > m.window {
			target = target[len(target)-m.window:]
		}
		valid := validValues(target)
		if len(valid) == 0 {
			if fcs[i], err = zeroForecast(in, m.cfg.Horizon, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		mean := nanMean(valid)
		sigma := residualStd(valid) * math.Sqrt(1+1/float64(len(valid)))
		if fcs[i], err = constantForecast(in, m.cfg.Horizon, mean, sigma, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}
