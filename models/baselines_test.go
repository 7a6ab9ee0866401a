package models

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/freq"
)

func testInput(values ...float64) forecast.Input {
	return forecast.Input{
		ItemID: "series_0",
		Start:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Freq:   freq.MustParse("H"),
		Target: values,
	}
}

func predictOne(t *testing.T, p Predictor, in forecast.Input) forecast.Forecast {
	t.Helper()
	fcs, err := p.Predict(context.Background(), []forecast.Input{in})
	if err != nil {
		t.Fatalf("%s.Predict() error = %v", p.Name(), err)
	}
	if len(fcs) != 1 {
		t.Fatalf("%s.Predict() returned %d forecasts, want 1", p.Name(), len(fcs))
	}
	return fcs[0]
}

func quantileAt(t *testing.T, fc forecast.Forecast, q float64) []float64 {
	t.Helper()
	arr, err := fc.Quantile(q)
	if err != nil {
		t.Fatalf("Quantile(%v) error = %v", q, err)
	}
	return arr
}

func assertClose(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("value[%d] = %v, want %v (tol %v)", i, got[i], want[i], tol)
		}
	}
}

func TestNaivePredict(t *testing.T) {
	m, err := NewNaive(Config{Horizon: 3})
	if err != nil {
		t.Fatalf("NewNaive() error = %v", err)
	}

	fc := predictOne(t, m, testInput(1, 2, 3, 5))
	assertClose(t, fc.Mean(), []float64{5, 5, 5}, 1e-12)

	assertClose(t, quantileAt(t, fc, 0.5), []float64{5, 5, 5}, 1e-12)

	// Interval grows with sqrt of the step count.
	hi := quantileAt(t, fc, 0.9)
	w0 := hi[0] - 5
	w1 := hi[1] - 5
	if w0 <= 0 {
		t.Fatalf("upper quantile spread = %v, want > 0", w0)
	}
	if math.Abs(w1-w0*math.Sqrt2) > 1e-9 {
		t.Errorf("spread ratio = %v, want %v", w1/w0, math.Sqrt2)
	}
}

func TestNaiveTrailingNaN(t *testing.T) {
	m, err := NewNaive(Config{Horizon: 2})
	if err != nil {
		t.Fatalf("NewNaive() error = %v", err)
	}

	fc := predictOne(t, m, testInput(1, 7, math.NaN(), math.NaN()))
	assertClose(t, fc.Mean(), []float64{7, 7}, 1e-12)
}

func TestNaiveEmptyContext(t *testing.T) {
	m, err := NewNaive(Config{Horizon: 2})
	if err != nil {
		t.Fatalf("NewNaive() error = %v", err)
	}

	fc := predictOne(t, m, testInput(math.NaN(), math.NaN()))
	assertClose(t, fc.Mean(), []float64{0, 0}, 1e-12)
	assertClose(t, quantileAt(t, fc, 0.9), []float64{0, 0}, 1e-12)
}

func TestNaiveContextCanceled(t *testing.T) {
	m, err := NewNaive(Config{Horizon: 2})
	if err != nil {
		t.Fatalf("NewNaive() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Predict(ctx, []forecast.Input{testInput(1, 2, 3)}); err == nil {
		t.Error("Predict() with canceled context returned nil error")
	}
}

func TestSeasonalNaivePredict(t *testing.T) {
	m, err := NewSeasonalNaive(Config{Horizon: 6, Season: 4})
	if err != nil {
		t.Fatalf("NewSeasonalNaive() error = %v", err)
	}

	fc := predictOne(t, m, testInput(1, 2, 3, 4, 10, 20, 30, 40))
	assertClose(t, fc.Mean(), []float64{10, 20, 30, 40, 10, 20}, 1e-12)
}

func TestSeasonalNaiveShortContext(t *testing.T) {
	// A season longer than the context degrades to last-value carry.
	m, err := NewSeasonalNaive(Config{Horizon: 3, Season: 24})
	if err != nil {
		t.Fatalf("NewSeasonalNaive() error = %v", err)
	}

	fc := predictOne(t, m, testInput(1, 2, 3))
	assertClose(t, fc.Mean(), []float64{3, 3, 3}, 1e-12)
}

func TestSeasonalNaiveMissingSeasonValue(t *testing.T) {
	m, err := NewSeasonalNaive(Config{Horizon: 2, Season: 2})
	if err != nil {
		t.Fatalf("NewSeasonalNaive() error = %v", err)
	}

	// The last value of the even phase is NaN, so the model walks one
	// more season back.
	fc := predictOne(t, m, testInput(1, 2, 3, 4, math.NaN(), 6))
	assertClose(t, fc.Mean(), []float64{3, 6}, 1e-12)
}

func TestHistoricAveragePredict(t *testing.T) {
	m, err := NewHistoricAverage(Config{Horizon: 3})
	if err != nil {
		t.Fatalf("NewHistoricAverage() error = %v", err)
	}

	fc := predictOne(t, m, testInput(2, 4, math.NaN(), 6))
	assertClose(t, fc.Mean(), []float64{4, 4, 4}, 1e-12)

	// Constant spread across the horizon.
	hi := quantileAt(t, fc, 0.9)
	if math.Abs((hi[0]-4)-(hi[2]-4)) > 1e-12 {
		t.Errorf("spread varies across horizon: %v vs %v", hi[0]-4, hi[2]-4)
	}
}

func TestWindowAveragePredict(t *testing.T) {
	tests := []struct {
		name   string
		window int
		target []float64
		want   float64
	}{
		{name: "trailing pair", window: 2, target: []float64{1, 2, 3, 4}, want: 3.5},
		{name: "window larger than context", window: 10, target: []float64{1, 2, 3}, want: 2},
		{name: "window one", window: 1, target: []float64{1, 2, 9}, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewWindowAverage(Config{Horizon: 2}, tt.window)
			if err != nil {
				t.Fatalf("NewWindowAverage() error = %v", err)
			}
			fc := predictOne(t, m, testInput(tt.target...))
			assertClose(t, fc.Mean(), []float64{tt.want, tt.want}, 1e-12)
		})
	}
}

func TestWindowAverageInvalidWindow(t *testing.T) {
	if _, err := NewWindowAverage(Config{Horizon: 2}, 0); err == nil {
		t.Error("NewWindowAverage(window=0) returned nil error")
	}
}

func TestDriftPredict(t *testing.T) {
	m, err := NewDrift(Config{Horizon: 3})
	if err != nil {
		t.Fatalf("NewDrift() error = %v", err)
	}

	fc := predictOne(t, m, testInput(1, 2, 3, 4, 5))
	assertClose(t, fc.Mean(), []float64{6, 7, 8}, 1e-12)

	// A perfectly linear context has zero lag-1 residual spread.
	assertClose(t, quantileAt(t, fc, 0.9), []float64{6, 7, 8}, 1e-12)
}

func TestDriftSingleObservation(t *testing.T) {
	m, err := NewDrift(Config{Horizon: 2})
	if err != nil {
		t.Fatalf("NewDrift() error = %v", err)
	}

	fc := predictOne(t, m, testInput(3))
	assertClose(t, fc.Mean(), []float64{3, 3}, 1e-12)
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewNaive(Config{Horizon: 0}); err == nil {
		t.Error("NewNaive(horizon=0) returned nil error")
	}
	if _, err := NewETS(Config{Horizon: -1}); err == nil {
		t.Error("NewETS(horizon=-1) returned nil error")
	}
}

func TestModelNames(t *testing.T) {
	cfg := Config{Horizon: 4, Season: 2}
	naive, _ := NewNaive(cfg)
	seasonal, _ := NewSeasonalNaive(cfg)
	historic, _ := NewHistoricAverage(cfg)
	window, _ := NewWindowAverage(cfg, 3)
	drift, _ := NewDrift(cfg)

	tests := []struct {
		p    Predictor
		want string
	}{
		{naive, "naive"},
		{seasonal, "seasonal_naive"},
		{historic, "historic_average"},
		{window, "window_average"},
		{drift, "drift"},
	}
	for _, tt := range tests {
		if got := tt.p.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestResidualStd(t *testing.T) {
	tests := []struct {
		name      string
		residuals []float64
		want      float64
	}{
		{name: "constant residuals", residuals: []float64{2, 2, 2}, want: 0},
		{name: "unit spread", residuals: []float64{1, 2, 3}, want: 1},
		{name: "single value", residuals: []float64{5}, want: 0},
		{name: "nan skipped", residuals: []float64{1, math.NaN(), 3}, want: math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := residualStd(tt.residuals); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("residualStd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLagResiduals(t *testing.T) {
	got := lagResiduals([]float64{1, 2, 4, math.NaN(), 8}, 1)
	want := []float64{1, 2}
	assertClose(t, got, want, 1e-12)

	if out := lagResiduals([]float64{1, 2}, 5); out != nil {
		t.Errorf("lagResiduals(short, 5) = %v, want nil", out)
	}
}
