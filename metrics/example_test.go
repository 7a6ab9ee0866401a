package metrics_test

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/gifteval/gifteval/metrics"
)

// ExampleMSE demonstrates Mean Squared Error calculation
func ExampleMSE() {
	// Create true and predicted values
	yTrue := mat.NewVecDense(4, []float64{3.0, -0.5, 2.0, 7.0})
	yPred := mat.NewVecDense(4, []float64{2.5, 0.0, 2.0, 8.0})

	// Calculate MSE
	mse, err := metrics.MSE(yTrue, yPred)
	if err != nil {
		slog.Error("Example failed", "error", err)
		return
	}

	fmt.Printf("MSE: %.3f\n", mse)

	// Output: MSE: 0.375
}

// ExampleRMSE demonstrates Root Mean Squared Error calculation
func ExampleRMSE() {
	// Forecast errors of one step each
	yTrue := mat.NewVecDense(3, []float64{10.0, 20.0, 30.0})
	yPred := mat.NewVecDense(3, []float64{11.0, 19.0, 31.0})

	// Calculate RMSE
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		slog.Error("Example failed", "error", err)
		return
	}

	fmt.Printf("RMSE: %.2f\n", rmse)

	// Output: RMSE: 1.00
}

// ExampleND demonstrates Normalized Deviation calculation
func ExampleND() {
	yTrue := mat.NewVecDense(4, []float64{3.0, -0.5, 2.0, 7.0})
	yPred := mat.NewVecDense(4, []float64{2.5, 0.0, 2.0, 8.0})

	nd, err := metrics.ND(yTrue, yPred)
	if err != nil {
		slog.Error("Example failed", "error", err)
		return
	}

	fmt.Printf("ND: %.3f\n", nd)

	// Output: ND: 0.160
}

// ExampleQuantileLoss demonstrates the asymmetry of the pinball loss
func ExampleQuantileLoss() {
	yTrue := mat.NewVecDense(2, []float64{10.0, 10.0})
	// One step over-forecasts, one under-forecasts by the same margin
	yPred := mat.NewVecDense(2, []float64{12.0, 8.0})

	loss, err := metrics.QuantileLoss(yTrue, yPred, 0.9)
	if err != nil {
		slog.Error("Example failed", "error", err)
		return
	}

	fmt.Printf("Quantile loss: %.2f\n", loss)

	// Output: Quantile loss: 4.00
}

// ExampleMASE demonstrates scaling MAE by the context's seasonal error
func ExampleMASE() {
	context := mat.NewVecDense(6, []float64{10.0, 12.0, 14.0, 16.0, 18.0, 20.0})
	se, err := metrics.SeasonalError(context, 1)
	if err != nil {
		slog.Error("Example failed", "error", err)
		return
	}

	yTrue := mat.NewVecDense(2, []float64{22.0, 24.0})
	yPred := mat.NewVecDense(2, []float64{21.0, 25.0})

	mase, err := metrics.MASE(yTrue, yPred, se)
	if err != nil {
		slog.Error("Example failed", "error", err)
		return
	}

	fmt.Printf("MASE: %.2f\n", mase)

	// Output: MASE: 0.50
}
