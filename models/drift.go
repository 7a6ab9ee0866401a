package models

import (
	"context"
	"math"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// Drift forecasts a random walk with drift: the last value plus the average
// historical slope extrapolated forward.
type Drift struct {
	cfg Config
}

// NewDrift creates a Drift predictor.
func NewDrift(cfg Config) (*Drift, error) {
	if err := cfg.validate("NewDrift"); err != nil {
		return nil, err
	}
	return &Drift{cfg: cfg.withDefaults()}, nil
}

// Name implements Predictor.
func (m *Drift) Name() string { return "drift" }

// Predict implements Predictor.
func (m *Drift) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "Drift.Predict")

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

		last := valid[len(valid)-1]
		n := float64(len(valid))
		slope := 0.0
		if len(valid) > 1 {
			slope = (last - valid[0]) / (n - 1)
		}

		sigma := residualStd(lagResiduals(in.Target, 1))
		mean := make([]float64, m.cfg.Horizon)
		spread := make([]float64, m.cfg.Horizon)
		for t := range mean {
			k := float64(t + 1)
			mean[t] = last + k*slope
			if len(valid) > 1 {
				spread[t] = sigma * math.Sqrt(k*(1+k/(n-1)))
			}
		}
		if fcs[i], err = gaussianForecast(in, mean, spread, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}
