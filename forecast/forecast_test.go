package forecast_test

import (
	"math"
	"testing"
	"time"

	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/freq"
)

var testStart = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

const epsilon = 1e-10

func TestInputForecastStart(t *testing.T) {
	in := forecast.Input{
		ItemID: "a",
		Start:  testStart,
		Freq:   freq.MustParse("H"),
		Target: []float64{1, 2, 3},
	}
	want := testStart.Add(3 * time.Hour)
	if got := in.ForecastStart(); !got.Equal(want) {
		t.Errorf("ForecastStart() = %v, want %v", got, want)
	}
}

func TestSampleForecastMean(t *testing.T) {
	samples := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
		{4, 40},
	}
	f, err := forecast.NewSampleForecast("a", testStart, samples)
	if err != nil {
		t.Fatalf("NewSampleForecast failed: %v", err)
	}

	mean := f.Mean()
	if math.Abs(mean[0]-2.5) > epsilon || math.Abs(mean[1]-25) > epsilon {
		t.Errorf("Mean() = %v, want [2.5 25]", mean)
	}
	if f.Horizon() != 2 || f.NumSamples() != 4 {
		t.Errorf("Horizon() = %d, NumSamples() = %d", f.Horizon(), f.NumSamples())
	}
	if f.ItemID() != "a" || !f.StartDate().Equal(testStart) {
		t.Errorf("identity accessors wrong")
	}
}

func TestSampleForecastQuantile(t *testing.T) {
	samples := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	f, err := forecast.NewSampleForecast("a", testStart, samples)
	if err != nil {
		t.Fatalf("NewSampleForecast failed: %v", err)
	}

	median, err := f.Quantile(0.5)
	if err != nil {
		t.Fatalf("Quantile failed: %v", err)
	}
	if median[0] < 2 || median[0] > 3 {
		t.Errorf("median = %v, want within [2, 3]", median[0])
	}

	low, err := f.Quantile(0.1)
	if err != nil {
		t.Fatalf("Quantile failed: %v", err)
	}
	high, err := f.Quantile(0.9)
	if err != nil {
		t.Fatalf("Quantile failed: %v", err)
	}
	if !(low[0] <= median[0] && median[0] <= high[0]) {
		t.Errorf("quantiles not ordered: %v %v %v", low[0], median[0], high[0])
	}

	if _, err := f.Quantile(0); err == nil {
		t.Error("expected error for quantile level 0")
	}
	if _, err := f.Quantile(1.5); err == nil {
		t.Error("expected error for quantile level above 1")
	}
}

func TestSampleForecastValidation(t *testing.T) {
	if _, err := forecast.NewSampleForecast("a", testStart, nil); err == nil {
		t.Error("expected error for no samples")
	}
	ragged := [][]float64{{1, 2}, {3}}
	if _, err := forecast.NewSampleForecast("a", testStart, ragged); err == nil {
		t.Error("expected error for ragged samples")
	}
}

func TestQuantileForecast(t *testing.T) {
	arrays := map[string][]float64{
		"mean": {10, 20},
		"0.1":  {5, 15},
		"0.5":  {9, 19},
		"0.9":  {15, 25},
	}
	f, err := forecast.NewQuantileForecast("a", testStart, arrays)
	if err != nil {
		t.Fatalf("NewQuantileForecast failed: %v", err)
	}

	if mean := f.Mean(); mean[0] != 10 {
		t.Errorf("Mean()[0] = %v, want 10", mean[0])
	}
	q, err := f.Quantile(0.9)
	if err != nil {
		t.Fatalf("Quantile failed: %v", err)
	}
	if q[1] != 25 {
		t.Errorf("Quantile(0.9)[1] = %v, want 25", q[1])
	}
	if _, err := f.Quantile(0.25); err == nil {
		t.Error("expected error for unavailable level")
	}
}

func TestQuantileForecastMeanFallback(t *testing.T) {
	arrays := map[string][]float64{
		"0.5": {9, 19},
	}
	f, err := forecast.NewQuantileForecast("a", testStart, arrays)
	if err != nil {
		t.Fatalf("NewQuantileForecast failed: %v", err)
	}
	if mean := f.Mean(); mean == nil || mean[0] != 9 {
		t.Errorf("Mean() = %v, want median fallback [9 19]", mean)
	}

	noCentral, err := forecast.NewQuantileForecast("a", testStart,
		map[string][]float64{"0.9": {1}})
	if err != nil {
		t.Fatalf("NewQuantileForecast failed: %v", err)
	}
	if mean := noCentral.Mean(); mean != nil {
		t.Errorf("Mean() = %v, want nil without mean or median", mean)
	}
}

func TestQuantileForecastValidation(t *testing.T) {
	if _, err := forecast.NewQuantileForecast("a", testStart, nil); err == nil {
		t.Error("expected error for no arrays")
	}
	ragged := map[string][]float64{"mean": {1, 2}, "0.5": {1}}
	if _, err := forecast.NewQuantileForecast("a", testStart, ragged); err == nil {
		t.Error("expected error for ragged arrays")
	}
}

func TestConfigKeys(t *testing.T) {
	cfg := forecast.NewConfig([]float64{0.1, 0.5, 0.9})

	wantForecast := []string{"mean", "0.1", "0.5", "0.9"}
	for i, want := range wantForecast {
		if cfg.ForecastKeys[i] != want {
			t.Errorf("ForecastKeys[%d] = %s, want %s", i, cfg.ForecastKeys[i], want)
		}
	}

	wantStats := []string{"mean", "lo-80", "lo-0", "hi-80"}
	for i, want := range wantStats {
		if cfg.StatsforecastKeys[i] != want {
			t.Errorf("StatsforecastKeys[%d] = %s, want %s", i, cfg.StatsforecastKeys[i], want)
		}
	}

	wantIntervals := []int{0, 80}
	if len(cfg.Intervals) != len(wantIntervals) {
		t.Fatalf("Intervals = %v, want %v", cfg.Intervals, wantIntervals)
	}
	for i, want := range wantIntervals {
		if cfg.Intervals[i] != want {
			t.Errorf("Intervals[%d] = %d, want %d", i, cfg.Intervals[i], want)
		}
	}
}

func TestConfigEmpty(t *testing.T) {
	cfg := forecast.NewConfig(nil)
	if len(cfg.ForecastKeys) != 1 || cfg.ForecastKeys[0] != "mean" {
		t.Errorf("ForecastKeys = %v, want [mean]", cfg.ForecastKeys)
	}
	if cfg.Intervals != nil {
		t.Errorf("Intervals = %v, want nil", cfg.Intervals)
	}
}

func TestIntervalKeys(t *testing.T) {
	tests := []struct {
		q    float64
		want string
	}{
		{0.025, "lo-95"},
		{0.1, "lo-80"},
		{0.2, "lo-60"},
		{0.5, "lo-0"},
		{0.8, "hi-60"},
		{0.9, "hi-80"},
		{0.975, "hi-95"},
	}
	for _, tt := range tests {
		if got := forecast.IntervalKey(tt.q); got != tt.want {
			t.Errorf("IntervalKey(%v) = %s, want %s", tt.q, got, tt.want)
		}
	}
}

func TestQuantileKey(t *testing.T) {
	tests := []struct {
		q    float64
		want string
	}{
		{0.1, "0.1"},
		{0.5, "0.5"},
		{0.9, "0.9"},
		{0.025, "0.025"},
	}
	for _, tt := range tests {
		if got := forecast.QuantileKey(tt.q); got != tt.want {
			t.Errorf("QuantileKey(%v) = %s, want %s", tt.q, got, tt.want)
		}
	}
}
