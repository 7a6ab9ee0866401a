package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

const epsilon = 1e-10

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: vec(1, 2, 3),
			yPred: vec(1, 2, 3),
			want:  0,
		},
		{
			name:  "uniform errors",
			yTrue: vec(1, 2, 3),
			yPred: vec(1, 3, 5),
			want:  5.0 / 3.0,
		},
		{
			name:  "nan labels masked",
			yTrue: vec(1, math.NaN(), 3),
			yPred: vec(2, 100, 5),
			want:  2.5,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
		{
			name:    "length mismatch",
			yTrue:   vec(1, 2, 3),
			yPred:   vec(1, 2),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMSEAllMasked(t *testing.T) {
	got, err := MSE(vec(math.NaN(), math.NaN()), vec(1, 2))
	if err != nil {
		t.Fatalf("MSE() error = %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("MSE() = %v, want NaN", got)
	}
}

func TestMAE(t *testing.T) {
	got, err := MAE(vec(1, 2, 3), vec(2, 2, 5))
	if err != nil {
		t.Fatalf("MAE() error = %v", err)
	}
	if math.Abs(got-1) > epsilon {
		t.Errorf("MAE() = %v, want 1", got)
	}
}

func TestRMSE(t *testing.T) {
	got, err := RMSE(vec(0, 0), vec(3, 4))
	if err != nil {
		t.Fatalf("RMSE() error = %v", err)
	}
	if math.Abs(got-math.Sqrt(12.5)) > epsilon {
		t.Errorf("RMSE() = %v, want %v", got, math.Sqrt(12.5))
	}
}

func TestNRMSE(t *testing.T) {
	got, err := NRMSE(vec(2, 4), vec(3, 5))
	if err != nil {
		t.Fatalf("NRMSE() error = %v", err)
	}
	if math.Abs(got-1.0/3.0) > epsilon {
		t.Errorf("NRMSE() = %v, want 1/3", got)
	}

	// All-zero labels leave the normalizer at zero.
	inf, err := NRMSE(vec(0, 0), vec(1, 1))
	if err != nil {
		t.Fatalf("NRMSE() error = %v", err)
	}
	if !math.IsInf(inf, 1) {
		t.Errorf("NRMSE() = %v, want +Inf", inf)
	}
}

func TestND(t *testing.T) {
	got, err := ND(vec(2, -4), vec(3, -3))
	if err != nil {
		t.Fatalf("ND() error = %v", err)
	}
	if math.Abs(got-1.0/3.0) > epsilon {
		t.Errorf("ND() = %v, want 1/3", got)
	}
}

func TestMAPE(t *testing.T) {
	got, err := MAPE(vec(2, 4), vec(3, 5))
	if err != nil {
		t.Fatalf("MAPE() error = %v", err)
	}
	if math.Abs(got-0.375) > epsilon {
		t.Errorf("MAPE() = %v, want 0.375", got)
	}

	// Zero labels push individual terms to infinity.
	inf, err := MAPE(vec(0, 2), vec(1, 2))
	if err != nil {
		t.Fatalf("MAPE() error = %v", err)
	}
	if !math.IsInf(inf, 1) {
		t.Errorf("MAPE() = %v, want +Inf", inf)
	}
}

func TestSMAPE(t *testing.T) {
	got, err := SMAPE(vec(2), vec(4))
	if err != nil {
		t.Fatalf("SMAPE() error = %v", err)
	}
	if math.Abs(got-2.0/3.0) > epsilon {
		t.Errorf("SMAPE() = %v, want 2/3", got)
	}
}

func TestQuantileLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		q       float64
		want    float64
		wantErr bool
	}{
		{
			name:  "over-forecast at high quantile",
			yTrue: vec(10),
			yPred: vec(12),
			q:     0.9,
			want:  0.4,
		},
		{
			name:  "under-forecast at high quantile",
			yTrue: vec(10),
			yPred: vec(8),
			q:     0.9,
			want:  3.6,
		},
		{
			name:  "median is scaled absolute error",
			yTrue: vec(10, 10),
			yPred: vec(12, 8),
			q:     0.5,
			want:  4,
		},
		{
			name:  "nan labels masked",
			yTrue: vec(math.NaN(), 10),
			yPred: vec(100, 12),
			q:     0.9,
			want:  0.4,
		},
		{
			name:    "quantile out of range",
			yTrue:   vec(1),
			yPred:   vec(1),
			q:       1.5,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuantileLoss(tt.yTrue, tt.yPred, tt.q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QuantileLoss() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("QuantileLoss() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedQuantileLoss(t *testing.T) {
	got, err := WeightedQuantileLoss(vec(10), vec(12), 0.9)
	if err != nil {
		t.Fatalf("WeightedQuantileLoss() error = %v", err)
	}
	if math.Abs(got-0.04) > epsilon {
		t.Errorf("WeightedQuantileLoss() = %v, want 0.04", got)
	}
}

func TestMeanWeightedSumQuantileLoss(t *testing.T) {
	yTrue := vec(10)
	forecasts := []*mat.VecDense{vec(8), vec(12)}
	levels := []float64{0.1, 0.9}

	got, err := MeanWeightedSumQuantileLoss(yTrue, forecasts, levels)
	if err != nil {
		t.Fatalf("MeanWeightedSumQuantileLoss() error = %v", err)
	}
	if math.Abs(got-0.04) > epsilon {
		t.Errorf("MeanWeightedSumQuantileLoss() = %v, want 0.04", got)
	}

	if _, err := MeanWeightedSumQuantileLoss(yTrue, forecasts, []float64{0.5}); err == nil {
		t.Error("MeanWeightedSumQuantileLoss() with mismatched levels returned nil error")
	}
	if _, err := MeanWeightedSumQuantileLoss(yTrue, nil, nil); err == nil {
		t.Error("MeanWeightedSumQuantileLoss() with no levels returned nil error")
	}
}

func TestSeasonalError(t *testing.T) {
	tests := []struct {
		name        string
		context     *mat.VecDense
		seasonality int
		want        float64
		wantErr     bool
	}{
		{
			name:        "seasonal lag",
			context:     vec(1, 2, 3, 4, 5, 6),
			seasonality: 2,
			want:        2,
		},
		{
			name:        "lag falls back to one",
			context:     vec(1, 2, 3, 4, 5, 6),
			seasonality: 10,
			want:        1,
		},
		{
			name:        "nan pairs skipped",
			context:     vec(1, math.NaN(), 3, 5),
			seasonality: 1,
			want:        2,
		},
		{
			name:        "single value",
			context:     vec(1),
			seasonality: 1,
			wantErr:     true,
		},
		{
			name:        "zero seasonality",
			context:     vec(1, 2),
			seasonality: 0,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SeasonalError(tt.context, tt.seasonality)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SeasonalError() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("SeasonalError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMASE(t *testing.T) {
	got, err := MASE(vec(22, 24), vec(21, 25), 2)
	if err != nil {
		t.Fatalf("MASE() error = %v", err)
	}
	if math.Abs(got-0.5) > epsilon {
		t.Errorf("MASE() = %v, want 0.5", got)
	}

	inf, err := MASE(vec(1, 2), vec(2, 3), 0)
	if err != nil {
		t.Fatalf("MASE() error = %v", err)
	}
	if !math.IsInf(inf, 1) {
		t.Errorf("MASE() with zero scale = %v, want +Inf", inf)
	}
}

func TestMSIS(t *testing.T) {
	yTrue := vec(10, 20)
	lower := vec(8, 25)
	upper := vec(12, 30)

	// One covered position scores the width 4, one escape below the
	// interval scores 5 + (2/0.05)*5 = 205.
	got, err := MSIS(yTrue, lower, upper, 1, DefaultMSISAlpha)
	if err != nil {
		t.Fatalf("MSIS() error = %v", err)
	}
	if math.Abs(got-104.5) > epsilon {
		t.Errorf("MSIS() = %v, want 104.5", got)
	}

	if _, err := MSIS(yTrue, lower, vec(1), 1, DefaultMSISAlpha); !gifterrors.Is(err, gifterrors.ErrDimensionMismatch) {
		t.Errorf("MSIS() bound mismatch error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := MSIS(yTrue, lower, upper, 1, 2); err == nil {
		t.Error("MSIS() with alpha=2 returned nil error")
	}
}

func TestValidCountAndAbsLabelSum(t *testing.T) {
	y := vec(1, math.NaN(), -3)
	if got := ValidCount(y); got != 2 {
		t.Errorf("ValidCount() = %d, want 2", got)
	}
	if got := AbsLabelSum(y); math.Abs(got-4) > epsilon {
		t.Errorf("AbsLabelSum() = %v, want 4", got)
	}
}
