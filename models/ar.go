package models

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/pkg/errors"
)

// AR is an autoregressive model of fixed order fitted by ordinary least
// squares on lagged values. Forecasts are produced recursively, feeding
// each prediction back into the lag window. The requested order is
// reduced when a series is too short to identify it, and degenerate
// series fall back to a constant mean forecast.
type AR struct {
	cfg   Config
	order int
}

// NewAR creates an AR predictor with the given lag order.
func NewAR(cfg Config, order int) (*AR, error) {
	if err := cfg.validate("NewAR"); err != nil {
		return nil, err
	}
	if order < 1 {
		return nil, errors.NewValueError("NewAR", "order must be >= 1")
	}
	return &AR{cfg: cfg.withDefaults(), order: order}, nil
}

// Name implements Predictor.
func (m *AR) Name() string { return "ar" }

// Order returns the configured lag order.
func (m *AR) Order() int { return m.order }

// Predict implements Predictor.
func (m *AR) Predict(ctx context.Context, inputs []forecast.Input) (fcs []forecast.Forecast, err error) {
	defer errors.Recover(&err, "AR.Predict")

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

		fit := m.fit(y)
		if fit == nil {
			mu := nanMean(y)
			sigma := residualStd(y)
			if fcs[i], err = constantForecast(in, m.cfg.Horizon, mu, sigma, m.cfg.QuantileLevels); err != nil {
				return nil, err
			}
			continue
		}

		mean := fit.extrapolate(y, m.cfg.Horizon)
		sigma := residualStd(fit.residuals)
		psis := fit.psiWeights(m.cfg.Horizon)
		spread := make([]float64, m.cfg.Horizon)
		cum := 0.0
		for t := range spread {
			cum += psis[t] * psis[t]
			spread[t] = sigma * math.Sqrt(cum)
		}
		if fcs[i], err = gaussianForecast(in, mean, spread, m.cfg.QuantileLevels); err != nil {
			return nil, err
		}
	}
	return fcs, nil
}

// fit estimates coefficients at the largest identifiable order not above
// the configured one. Singular designs retry at a lower order. A nil
// return means no autoregression could be fitted.
func (m *AR) fit(y []float64) *arFit {
	maxOrder := (len(y) - 1) / 2
	if maxOrder > m.order {
		maxOrder = m.order
	}
	for p := maxOrder; p >= 1; p-- {
		fit, err := fitAR(y, p)
		if err == nil {
			return fit
		}
	}
	return nil
}

// arFit holds OLS estimates for one series.
type arFit struct {
	intercept float64
	coef      []float64
	residuals []float64
}

// fitAR solves the lag-p least squares problem via the normal equations.
func fitAR(y []float64, p int) (*arFit, error) {
	rows := len(y) - p
	if rows < p+1 {
		return nil, errors.NewValueError("fitAR", "series too short for requested order")
	}

	// Design rows are [1, y[t-1], ..., y[t-p]] predicting y[t].
	X := mat.NewDense(rows, p+1, nil)
	target := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := p + r
		X.Set(r, 0, 1.0)
		for j := 1; j <= p; j++ {
			X.Set(r, j, y[t-j])
		}
		target.SetVec(r, y[t])
	}

	var XT mat.Dense
	XT.CloneFrom(X.T())

	var XTX mat.Dense
	XTX.Mul(&XT, X)

	var XTXInv mat.Dense
	if err := XTXInv.Inverse(&XTX); err != nil {
		return nil, errors.NewModelError("fitAR", "singular matrix", errors.ErrSingularMatrix)
	}

	var XTy mat.VecDense
	XTy.MulVec(&XT, target)

	weights := mat.NewVecDense(p+1, nil)
	weights.MulVec(&XTXInv, &XTy)

	fit := &arFit{
		intercept: weights.AtVec(0),
		coef:      make([]float64, p),
		residuals: make([]float64, rows),
	}
	for j := 0; j < p; j++ {
		fit.coef[j] = weights.AtVec(j + 1)
	}
	for r := 0; r < rows; r++ {
		pred := fit.step(y[:p+r])
		fit.residuals[r] = y[p+r] - pred
	}
	return fit, nil
}

// step predicts the next value from the tail of hist.
func (f *arFit) step(hist []float64) float64 {
	out := f.intercept
	for j, c := range f.coef {
		out += c * hist[len(hist)-1-j]
	}
	return out
}

// extrapolate forecasts horizon steps, feeding predictions back in.
func (f *arFit) extrapolate(y []float64, horizon int) []float64 {
	hist := make([]float64, len(y), len(y)+horizon)
	copy(hist, y)

	mean := make([]float64, horizon)
	for t := range mean {
		mean[t] = f.step(hist)
		hist = append(hist, mean[t])
	}
	return mean
}

// psiWeights returns the first n moving-average weights of the fitted
// process, used to accumulate multi-step forecast variance.
func (f *arFit) psiWeights(n int) []float64 {
	psis := make([]float64, n)
	for j := range psis {
		if j == 0 {
			psis[0] = 1
			continue
		}
		sum := 0.0
		for i := 1; i <= j && i <= len(f.coef); i++ {
			sum += f.coef[i-1] * psis[j-i]
		}
		psis[j] = sum
	}
	return psis
}
