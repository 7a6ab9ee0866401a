package models

import (
	"context"
	"math"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// Naive forecasts the last observed value for every future step. The
// prediction interval widens with the square root of the step, the random
// walk convention.
type Naive struct {
	cfg Config
}

// NewNaive creates a Naive predictor.
//
// Parameters:
//   - cfg: horizon and quantile levels
//
// Returns:
//   - *Naive: the predictor
//   - error: ValueError if the horizon is not positive
func NewNaive(cfg Config) (*Naive, error) {
	if err := cfg.validate("NewNaive"); err != nil {
		return nil, err
	}
	return &Naive{cfg: cfg.withDefaults()}, nil
}

// Name implements Predictor.
func (m *Naive) Name() string { return "naive" }

// Predict implements Predictor.
func (m *Naive) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "Naive.Predict")

	fcs = make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		last, ok := lastValid(in.Target)
		if !ok {
			if fcs[i], err = zeroForecast(in, m.cfg.Horizon, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		sigma := residualStd(lagResiduals(in.Target, 1))
		mean := make([]float64, m.cfg.Horizon)
		spread := make([]float64, m.cfg.Horizon)
		for t := range mean {
			mean[t] = last
			spread[t] = sigma * math.Sqrt(float64(t+1))
		}
		if fcs[i], err = gaussianForecast(in, mean, spread, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

// SeasonalNaive forecasts the value observed one seasonal period earlier.
// NaN slots fall back to the most recent valid value at the same phase.
type SeasonalNaive struct {
	cfg    Config
	season int
}

// NewSeasonalNaive creates a SeasonalNaive predictor with the seasonal
// period from cfg.Season.
func NewSeasonalNaive(cfg Config) (*SeasonalNaive, error) {
	if err := cfg.validate("NewSeasonalNaive"); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &SeasonalNaive{cfg: cfg, season: cfg.Season}, nil
}

// Name implements Predictor.
func (m *SeasonalNaive) Name() string { return "seasonal_naive" }

// Predict implements Predictor.
func (m *SeasonalNaive) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "SeasonalNaive.Predict")

	fcs = make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		last, ok := lastValid(in.Target)
		if !ok {
			if fcs[i], err = zeroForecast(in, m.cfg.Horizon, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		season := m.season
		if season > len(in.Target) {
			season = 1
		}

		sigma := residualStd(lagResiduals(in.Target, season))
		mean := make([]float64, m.cfg.Horizon)
		spread := make([]float64, m.cfg.Horizon)
		for t := range mean {
			mean[t] = m.seasonalValue(in.Target, season, t, last)
			// The interval widens once per completed seasonal cycle.
			spread[t] = sigma * math.Sqrt(float64(t/season+1))
		}
		if fcs[i], err = gaussianForecast(in, mean, spread, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

// seasonalValue picks the forecast for 0-based step t: the observation one
// season back at the same phase, stepping further back past NaN slots.
func (m *SeasonalNaive) seasonalValue(target []float64, season, t int, fallback float64) float64 {
	l := len(target)
	pos := l - season + t%season
	for pos >= 0 {
		if !math.IsNaN(target[pos]) {
			return target[pos]
		}
		pos -= season
	}
	return fallback
}
