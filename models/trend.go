package models

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// LinearTrend fits an ordinary least squares line through the context and
// extrapolates it over the horizon. The prediction interval uses the
// regression standard error and widens with the leverage of each future
// step.
type LinearTrend struct {
	cfg Config
}

// NewLinearTrend creates a LinearTrend predictor.
//
// Parameters:
//   - cfg: horizon and quantile levels
//
// Returns:
//   - *LinearTrend: the predictor
//   - error: ValueError if the horizon is not positive
func NewLinearTrend(cfg Config) (*LinearTrend, error) {
	if err := cfg.validate("NewLinearTrend"); err != nil {
		return nil, err
	}
	return &LinearTrend{cfg: cfg.withDefaults()}, nil
}

// Name implements Predictor.
func (m *LinearTrend) Name() string { return "linear_trend" }

// Predict implements Predictor.
func (m *LinearTrend) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "LinearTrend.Predict")

	fcs = make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fit, ok := fitTrendLine(in.Target)
		if !ok {
			value, valid := lastValid(in.Target)
			if !valid {
				if fcs[i], err = zeroForecast(in, m.cfg.Horizon, m.cfg.QuantileLevels); err != nil {
					return nil, err
				}
				continue
			}
			if fcs[i], err = constantForecast(in, m.cfg.Horizon, value, 0, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		mean := make([]float64, m.cfg.Horizon)
		spread := make([]float64, m.cfg.Horizon)
		base := len(in.Target)
		for t := range mean {
			x := float64(base + t)
			mean[t] = fit.intercept + fit.slope*x
			dx := x - fit.meanX
			spread[t] = fit.sigma * math.Sqrt(1+1/float64(fit.n)+dx*dx/fit.ssx)
		}
		if fcs[i], err = gaussianForecast(in, mean, spread, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

// trendFit holds a fitted line and the quantities entering the interval
// width at each extrapolated step.
type trendFit struct {
	intercept float64
	slope     float64
	sigma     float64
	n         int
	meanX     float64
	ssx       float64
}

// fitTrendLine regresses the context on its time index with ordinary least
// squares, skipping NaN values. The second return is false when fewer than
// two valid points remain or the normal equations are singular.
func fitTrendLine(target []float64) (trendFit, bool) {
	xs := make([]float64, 0, len(target))
	ys := make([]float64, 0, len(target))
	for t, v := range target {
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, float64(t))
		ys = append(ys, v)
	}
	n := len(xs)
	if n < 2 {
		return trendFit{}, false
	}

	X := mat.NewDense(n, 2, nil)
	for i, x := range xs {
		X.Set(i, 0, 1)
		X.Set(i, 1, x)
	}
	y := mat.NewVecDense(n, ys)

	var xt mat.Dense
	xt.CloneFrom(X.T())
	var xtx mat.Dense
	xtx.Mul(&xt, X)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return trendFit{}, false
	}
	var xty mat.VecDense
	xty.MulVec(&xt, y)
	var coef mat.VecDense
	coef.MulVec(&inv, &xty)

	fit := trendFit{intercept: coef.AtVec(0), slope: coef.AtVec(1), n: n}

	for _, x := range xs {
		fit.meanX += x
	}
	fit.meanX /= float64(n)
	for _, x := range xs {
		dx := x - fit.meanX
		fit.ssx += dx * dx
	}
	if fit.ssx == 0 {
		return trendFit{}, false
	}

	if n > 2 {
		sse := 0.0
		for i, x := range xs {
			e := ys[i] - (fit.intercept + fit.slope*x)
			sse += e * e
		}
		fit.sigma = math.Sqrt(sse / float64(n-2))
	}
	return fit, true
}
