package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// DefaultMSISAlpha is the significance level of the benchmark's interval
// score: a 95% central prediction interval.
const DefaultMSISAlpha = 0.05

// SeasonalError calculates the mean absolute seasonal difference of a
// context window: mean |y[t] − y[t−m]| over valid pairs. It is the
// scaling denominator of MASE and MSIS.
//
// When the seasonality m is not shorter than the context, the lag falls
// back to 1 so the scale remains defined. Pairs with a NaN on either
// side are excluded.
//
// Parameters:
//   - context: historical values preceding the forecast window
//   - seasonality: seasonal lag m, at least 1
//
// Returns:
//   - float64: seasonal error (non-negative), NaN when no valid pair exists
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ValueError: if the context is shorter than 2 or seasonality < 1
func SeasonalError(context *mat.VecDense, seasonality int) (float64, error) {
	n := context.Len()
	if n < 2 {
		return 0, gifterrors.NewValueError("SeasonalError", "context must hold at least 2 values")
	}
	if seasonality < 1 {
		return 0, gifterrors.NewValueError("SeasonalError", "seasonality must be at least 1")
	}

	lag := seasonality
	if lag >= n {
		lag = 1
	}

	sum, count := 0.0, 0
	for t := lag; t < n; t++ {
		a, b := context.AtVec(t), context.AtVec(t-lag)
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		sum += math.Abs(a - b)
		count++
	}
	if count == 0 {
		return math.NaN(), nil
	}
	return sum / float64(count), nil
}

// MASE calculates the Mean Absolute Scaled Error.
//
// MASE divides the mean absolute error by the seasonal error of the
// context, so a value below 1 beats the seasonal naive forecast on the
// training scale. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//   - seasonalError: scale from SeasonalError on the context
//
// Returns:
//   - float64: MASE value, +Inf when seasonalError is 0
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ValueError: if the vectors are empty or seasonalError is negative
//   - ErrDimensionMismatch: if yTrue and yPred have different lengths
func MASE(yTrue, yPred *mat.VecDense, seasonalError float64) (float64, error) {
	if seasonalError < 0 {
		return 0, gifterrors.NewValueError("MASE", "seasonal error must not be negative")
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return mae / seasonalError, nil
}

// MSIS calculates the Mean Scaled Interval Score of a central prediction
// interval.
//
// For the (1−alpha) interval [lower, upper] the score of one position is
// (upper − lower) plus 2/alpha times the distance by which the label
// escapes the interval, averaged over valid positions and divided by the
// seasonal error. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - lower: lower interval bounds (the alpha/2 quantile)
//   - upper: upper interval bounds (the 1−alpha/2 quantile)
//   - seasonalError: scale from SeasonalError on the context
//   - alpha: significance level in (0, 1), DefaultMSISAlpha for the benchmark
//
// Returns:
//   - float64: MSIS value, +Inf when seasonalError is 0
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ValueError: if vectors are empty, alpha is outside (0, 1), or
//     seasonalError is negative
//   - ErrDimensionMismatch: if the bound lengths differ from yTrue
func MSIS(yTrue, lower, upper *mat.VecDense, seasonalError, alpha float64) (float64, error) {
	n, err := validatePair("MSIS", yTrue, lower)
	if err != nil {
		return 0, err
	}
	if upper.Len() != n {
		return 0, gifterrors.NewDimensionError("MSIS", n, upper.Len(), 0)
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, gifterrors.NewValueError("MSIS", fmt.Sprintf("alpha %v outside (0, 1)", alpha))
	}
	if seasonalError < 0 {
		return 0, gifterrors.NewValueError("MSIS", "seasonal error must not be negative")
	}

	penalty := 2 / alpha
	score := maskedMean(yTrue, n, func(i int) float64 {
		yt, lo, hi := yTrue.AtVec(i), lower.AtVec(i), upper.AtVec(i)
		s := hi - lo
		if yt < lo {
			s += penalty * (lo - yt)
		}
		if yt > hi {
			s += penalty * (yt - hi)
		}
		return s
	})
	return score / seasonalError, nil
}
