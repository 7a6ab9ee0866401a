// Package metrics provides evaluation metrics for time series forecasts.
//
// This package implements the benchmark's accuracy metrics over aligned
// label and forecast vectors:
//
// Point Metrics:
//   - MSE: Mean Squared Error of a point forecast
//   - MAE: Mean Absolute Error
//   - MAPE: Mean Absolute Percentage Error
//   - SMAPE: Symmetric Mean Absolute Percentage Error
//   - RMSE: Root Mean Squared Error (square root of MSE)
//   - NRMSE: RMSE normalized by the mean absolute label
//   - ND: Normalized Deviation (sum of absolute errors over sum of
//     absolute labels)
//
// Quantile Metrics:
//   - QuantileLoss: pinball loss of a quantile forecast
//   - WeightedQuantileLoss: quantile loss normalized by the absolute
//     label mass
//   - MeanWeightedSumQuantileLoss: mean weighted loss across levels
//
// Scaled Metrics:
//   - SeasonalError: mean absolute seasonal difference of the context
//   - MASE: Mean Absolute Scaled Error
//   - MSIS: Mean Scaled Interval Score
//
// All metrics operate on *mat.VecDense inputs and mask positions whose
// label is NaN, matching held-out evaluation over series with missing
// observations. A vector whose labels are all NaN yields NaN rather than
// an error; structural problems (empty or mismatched vectors) are
// reported through pkg/errors types.
//
// Example usage:
//
//	mse, err := metrics.MSE(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("MSE: %.4f\n", mse)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// validatePair checks the structural preconditions shared by all pairwise
// metrics and returns the common length.
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, gifterrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, gifterrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// maskedMean averages term(i) over the positions with a non-NaN label.
func maskedMean(yTrue *mat.VecDense, n int, term func(i int) float64) float64 {
	sum, count := 0.0, 0
	for i := 0; i < n; i++ {
		if math.IsNaN(yTrue.AtVec(i)) {
			continue
		}
		sum += term(i)
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// ValidCount returns the number of non-NaN labels in yTrue.
func ValidCount(yTrue *mat.VecDense) int {
	count := 0
	for i := 0; i < yTrue.Len(); i++ {
		if !math.IsNaN(yTrue.AtVec(i)) {
			count++
		}
	}
	return count
}

// AbsLabelSum returns the sum of |yTrue| over the non-NaN labels. It is
// the normalization mass used by ND and the weighted quantile losses.
func AbsLabelSum(yTrue *mat.VecDense) float64 {
	sum := 0.0
	for i := 0; i < yTrue.Len(); i++ {
		v := yTrue.AtVec(i)
		if !math.IsNaN(v) {
			sum += math.Abs(v)
		}
	}
	return sum
}

// MSE calculates the Mean Squared Error between labels and predictions.
//
// MSE measures the average squared difference between predictions and
// actual values. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: MSE value (non-negative), NaN if every label is NaN
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ValueError: if input vectors are empty
//   - ErrDimensionMismatch: if yTrue and yPred have different lengths
//
// Example:
//
//	mse, err := metrics.MSE(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("MSE: %.4f\n", mse)
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	return maskedMean(yTrue, n, func(i int) float64 {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		return diff * diff
	}), nil
}

// RMSE calculates the Root Mean Squared Error between labels and
// predictions.
//
// RMSE is the square root of MSE and is expressed in the unit of the
// target variable. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: RMSE value (non-negative), NaN if every label is NaN
//   - error: nil if successful, otherwise an error describing the failure
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// NRMSE calculates the Normalized Root Mean Squared Error.
//
// NRMSE divides RMSE by the mean absolute label, making series of
// different scales comparable. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: NRMSE value, +Inf when the labels are all zero
//   - error: nil if successful, otherwise an error describing the failure
func NRMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	count := ValidCount(yTrue)
	if count == 0 {
		return math.NaN(), nil
	}
	return rmse / (AbsLabelSum(yTrue) / float64(count)), nil
}

// MAE calculates the Mean Absolute Error between labels and predictions.
//
// MAE is robust to outliers compared to MSE. Positions with a NaN label
// are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: MAE value (non-negative), NaN if every label is NaN
//   - error: nil if successful, otherwise an error describing the failure
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	return maskedMean(yTrue, n, func(i int) float64 {
		return math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}), nil
}

// MAPE calculates the Mean Absolute Percentage Error.
//
// MAPE expresses errors relative to the label magnitude. A zero label
// makes the corresponding term infinite; callers comparing models on
// series with zeros should prefer SMAPE or ND. Positions with a NaN
// label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: MAPE value, possibly +Inf
//   - error: nil if successful, otherwise an error describing the failure
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAPE = (1/n) * Σ|yTrue - yPred| / |yTrue|
	return maskedMean(yTrue, n, func(i int) float64 {
		return math.Abs(yTrue.AtVec(i)-yPred.AtVec(i)) / math.Abs(yTrue.AtVec(i))
	}), nil
}

// SMAPE calculates the Symmetric Mean Absolute Percentage Error.
//
// SMAPE bounds the percentage error by normalizing with the sum of label
// and prediction magnitudes. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: SMAPE value in [0, 2], NaN if every label is NaN
//   - error: nil if successful, otherwise an error describing the failure
func SMAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("SMAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// SMAPE = (1/n) * Σ 2|yTrue - yPred| / (|yTrue| + |yPred|)
	return maskedMean(yTrue, n, func(i int) float64 {
		yt, yp := yTrue.AtVec(i), yPred.AtVec(i)
		return 2 * math.Abs(yt-yp) / (math.Abs(yt) + math.Abs(yp))
	}), nil
}

// ND calculates the Normalized Deviation between labels and predictions.
//
// ND is the sum of absolute errors divided by the sum of absolute labels.
// Unlike MAPE it stays finite on series with zero labels as long as the
// total label mass is positive. Positions with a NaN label are excluded.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: ND value (non-negative), +Inf when the labels are all zero
//   - error: nil if successful, otherwise an error describing the failure
func ND(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("ND", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// ND = Σ|yTrue - yPred| / Σ|yTrue|
	absErr, count := 0.0, 0
	for i := 0; i < n; i++ {
		if math.IsNaN(yTrue.AtVec(i)) {
			continue
		}
		absErr += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
		count++
	}
	if count == 0 {
		return math.NaN(), nil
	}
	return absErr / AbsLabelSum(yTrue), nil
}
