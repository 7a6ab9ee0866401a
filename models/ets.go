package models

import (
	"context"
	"math"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// Smoothing coefficient lattice searched during fitting.
var (
	etsAlphas = []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	etsBetas  = []float64{0, 0.05, 0.1, 0.3}
	etsGammas = []float64{0, 0.05, 0.1, 0.3}
)

// ETS is additive exponential smoothing with level, trend, and seasonal
// components (additive Holt-Winters). Smoothing coefficients are chosen per
// series by a coarse grid search minimizing in-sample one-step squared
// error. The seasonal component is disabled when the context is shorter
// than two seasonal periods.
type ETS struct {
	cfg    Config
	season int
}

// NewETS creates an ETS predictor with the seasonal period from cfg.Season.
func NewETS(cfg Config) (*ETS, error) {
	if err := cfg.validate("NewETS"); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &ETS{cfg: cfg, season: cfg.Season}, nil
}

// Name implements Predictor.
func (m *ETS) Name() string { return "ets" }

// Predict implements Predictor.
func (m *ETS) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "ETS.Predict")

	fcs = make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		y := fillForward(in.Target)
		if len(y) == 0 {
			if fcs[i], err = zeroForecast(in, m.cfg.Horizon, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		seasonal := m.season >= 2 && len(y) >= 2*m.season
		best := m.search(y, seasonal)

		sigma := residualStd(best.residuals)
		mean := make([]float64, m.cfg.Horizon)
		spread := make([]float64, m.cfg.Horizon)
		for t := range mean {
			k := t + 1
			mean[t] = best.forecast(len(y), k, m.season, seasonal)
			spread[t] = sigma * math.Sqrt(float64(k))
		}
		if fcs[i], err = gaussianForecast(in, mean, spread, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

// search fits the smoothing grid and returns the state with the lowest
// in-sample squared error.
func (m *ETS) search(y []float64, seasonal bool) hwState {
	gammas := etsGammas
	if !seasonal {
		gammas = etsGammas[:1]
	}

	var best hwState
	bestSSE := math.Inf(1)
	for _, alpha := range etsAlphas {
		for _, beta := range etsBetas {
			for _, gamma := range gammas {
				state := fitHoltWinters(y, alpha, beta, gamma, m.season, seasonal)
				if state.sse < bestSSE {
					bestSSE = state.sse
					best = state
				}
			}
		}
	}
	return best
}

// hwState is the fitted end state of one Holt-Winters run.
type hwState struct {
	level     float64
	trend     float64
	seasonals []float64
	sse       float64
	residuals []float64
}

// forecast extrapolates k steps (1-based) past a context of length n.
func (s hwState) forecast(n, k, period int, seasonal bool) float64 {
	out := s.level + float64(k)*s.trend
	if seasonal && period > 0 {
		out += s.seasonals[(n+k-1)%period]
	}
	return out
}

// fitHoltWinters runs the additive smoothing recurrences over y and
// accumulates one-step-ahead residuals.
func fitHoltWinters(y []float64, alpha, beta, gamma float64, period int, seasonal bool) hwState {
	state := hwState{residuals: make([]float64, 0, len(y))}

	if seasonal {
		state.seasonals = initialSeasonals(y, period)
		state.trend = initialTrend(y, period)
	} else {
		state.seasonals = nil
		if len(y) >= 2 {
			state.trend = y[1] - y[0]
		}
	}

	seasonalAt := func(i int) float64 {
		if seasonal {
			return state.seasonals[i%period]
		}
		return 0
	}

	for i, xt := range y {
		if i == 0 {
			state.level = xt
			continue
		}

		pred := state.level + state.trend + seasonalAt(i)
		resid := xt - pred
		state.residuals = append(state.residuals, resid)
		state.sse += resid * resid

		prevLevel := state.level
		state.level = alpha*(xt-seasonalAt(i)) + (1-alpha)*(state.level+state.trend)
		state.trend = beta*(state.level-prevLevel) + (1-beta)*state.trend
		if seasonal {
			state.seasonals[i%period] = gamma*(xt-prevLevel-state.trend) + (1-gamma)*state.seasonals[i%period]
		}
	}
	return state
}

// initialTrend estimates the starting trend as the average per-period
// slope across the first two seasonal cycles.
func initialTrend(y []float64, period int) float64 {
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += (y[period+i] - y[i]) / float64(period)
	}
	return sum / float64(period)
}

// initialSeasonals estimates additive seasonal components as the average
// deviation of each phase from its season's mean.
func initialSeasonals(y []float64, period int) []float64 {
	nSeasons := len(y) / period

	seasonAvg := make([]float64, nSeasons)
	for j := 0; j < nSeasons; j++ {
		sum := 0.0
		for i := 0; i < period; i++ {
			sum += y[j*period+i]
		}
		seasonAvg[j] = sum / float64(period)
	}

	seasonals := make([]float64, period)
	for i := 0; i < period; i++ {
		sum := 0.0
		for j := 0; j < nSeasons; j++ {
			sum += y[j*period+i] - seasonAvg[j]
		}
		seasonals[i] = sum / float64(nSeasons)
	}
	return seasonals
}

// fillForward replaces NaN values with the most recent valid observation,
// dropping leading NaN values. Smoothing recurrences cannot skip gaps.
func fillForward(target []float64) []float64 {
	start := 0
	for start < len(target) && math.IsNaN(target[start]) {
		start++
	}
	if start == len(target) {
		return nil
	}

	out := make([]float64, len(target)-start)
	copy(out, target[start:])
	for i := 1; i < len(out); i++ {
		if math.IsNaN(out[i]) {
			out[i] = out[i-1]
		}
	}
	return out
}
