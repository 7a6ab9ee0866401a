package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// QuantileLoss calculates the pinball loss of a quantile forecast.
//
// For quantile level q the loss of one position is
// 2·|(yPred − yTrue)·(1[yTrue ≤ yPred] − q)|, which penalizes
// over-prediction with weight 1−q and under-prediction with weight q.
// The returned value is the sum over positions, not the mean; divide by
// the label mass (WeightedQuantileLoss) to compare across series.
// Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values of the q-quantile as a vector
//   - q: Quantile level in (0, 1)
//
// Returns:
//   - float64: summed quantile loss (non-negative)
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ValueError: if the vectors are empty or q is outside (0, 1)
//   - ErrDimensionMismatch: if yTrue and yPred have different lengths
func QuantileLoss(yTrue, yPred *mat.VecDense, q float64) (float64, error) {
	n, err := validatePair("QuantileLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if q <= 0 || q >= 1 {
		return 0, gifterrors.NewValueError("QuantileLoss", fmt.Sprintf("quantile level %v outside (0, 1)", q))
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		yt := yTrue.AtVec(i)
		if math.IsNaN(yt) {
			continue
		}
		yp := yPred.AtVec(i)
		indicator := 0.0
		if yt <= yp {
			indicator = 1.0
		}
		sum += 2 * math.Abs((yp-yt)*(indicator-q))
	}
	return sum, nil
}

// WeightedQuantileLoss calculates the quantile loss normalized by the
// absolute label mass.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values of the q-quantile as a vector
//   - q: Quantile level in (0, 1)
//
// Returns:
//   - float64: normalized loss, +Inf when the labels are all zero
//   - error: nil if successful, otherwise an error describing the failure
func WeightedQuantileLoss(yTrue, yPred *mat.VecDense, q float64) (float64, error) {
	loss, err := QuantileLoss(yTrue, yPred, q)
	if err != nil {
		return 0, err
	}
	if ValidCount(yTrue) == 0 {
		return math.NaN(), nil
	}
	return loss / AbsLabelSum(yTrue), nil
}

// MeanWeightedSumQuantileLoss averages the weighted quantile loss over a
// set of levels. forecasts[i] must hold the forecast of levels[i].
//
// Parameters:
//   - yTrue: True target values as a vector
//   - forecasts: one quantile forecast vector per level
//   - levels: quantile levels in (0, 1)
//
// Returns:
//   - float64: mean weighted loss across levels
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ValueError: if levels is empty or a level is outside (0, 1)
//   - ErrDimensionMismatch: if forecasts and levels differ in count or a
//     forecast length differs from yTrue
func MeanWeightedSumQuantileLoss(yTrue *mat.VecDense, forecasts []*mat.VecDense, levels []float64) (float64, error) {
	if len(levels) == 0 {
		return 0, gifterrors.NewValueError("MeanWeightedSumQuantileLoss", "no quantile levels")
	}
	if len(forecasts) != len(levels) {
		return 0, gifterrors.NewDimensionError("MeanWeightedSumQuantileLoss", len(levels), len(forecasts), 0)
	}

	sum := 0.0
	for i, q := range levels {
		loss, err := WeightedQuantileLoss(yTrue, forecasts[i], q)
		if err != nil {
			return 0, err
		}
		sum += loss
	}
	return sum / float64(len(levels)), nil
}
