package eval

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gifteval/gifteval/dataset"
	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/freq"
	"github.com/gifteval/gifteval/pkg/errors"
)

type fakeData struct {
	instances   []dataset.Instance
	seasonality int
	numSeries   int
	windows     int
}

func (d *fakeData) TestInstances() []dataset.Instance { return d.instances }
func (d *fakeData) Freq() freq.Freq                   { return freq.MustParse("H") }
func (d *fakeData) Seasonality() int                  { return d.seasonality }
func (d *fakeData) NumSeries() int                    { return d.numSeries }
func (d *fakeData) Windows() int                      { return d.windows }

func instance(context []float64, label []float64) dataset.Instance {
	return dataset.Instance{
		Context: dataset.Series{
			ItemID: "series_0",
			Start:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Target: context,
		},
		Label: label,
	}
}

// fakePredictor answers with fixed quantile arrays and can simulate
// resource exhaustion above a batch-size threshold.
type fakePredictor struct {
	name      string
	arrays    func(in forecast.Input) map[string][]float64
	failAbove int
	calls     int
	maxBatch  int
}

func (p *fakePredictor) Name() string { return p.name }

func (p *fakePredictor) Predict(ctx context.Context, inputs []forecast.Input) ([]forecast.Forecast, error) {
	p.calls++
	if p.failAbove > 0 && len(inputs) > p.failAbove {
		return nil, errors.NewModelError("fakePredictor.Predict", "out of memory", errors.ErrResourceExhausted)
	}
	if len(inputs) > p.maxBatch {
		p.maxBatch = len(inputs)
	}

	fcs := make([]forecast.Forecast, len(inputs))
	for i, in := range inputs {
		fc, err := forecast.NewQuantileForecast(in.ItemID, in.ForecastStart(), p.arrays(in))
		if err != nil {
			return nil, err
		}
		fcs[i] = fc
	}
	return fcs, nil
}

func constArrays(h int, value float64) func(forecast.Input) map[string][]float64 {
	return func(forecast.Input) map[string][]float64 {
		arr := make([]float64, h)
		for i := range arr {
			arr[i] = value
		}
		out := map[string][]float64{"mean": arr}
		for _, q := range []float64{0.025, 0.1, 0.5, 0.9, 0.975} {
			out[forecast.QuantileKey(q)] = arr
		}
		return out
	}
}

// fixtureArrays is the fixed forecast behind the metric fixtures: mean
// {5,6}, median {6,6}, and interval arrays for both the default and the
// 0.2 significance level.
func fixtureArrays(forecast.Input) map[string][]float64 {
	return map[string][]float64{
		"mean":  {5, 6},
		"0.5":   {6, 6},
		"0.1":   {4.5, 5.5},
		"0.9":   {7.5, 8.5},
		"0.025": {4, 5},
		"0.975": {8, 9},
	}
}

func fixtureData() *fakeData {
	return &fakeData{
		instances:   []dataset.Instance{instance([]float64{1, 2, 3, 4}, []float64{5, 7})},
		seasonality: 1,
		numSeries:   1,
		windows:     1,
	}
}

func TestEvaluateMetrics(t *testing.T) {
	data := fixtureData()
	p := &fakePredictor{name: "fixture", arrays: fixtureArrays}

	res, err := Evaluate(context.Background(), p, data, WithQuantiles([]float64{0.1, 0.5, 0.9}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"MSEMean", res.MSEMean, 0.5},
		{"MSEMedian", res.MSEMedian, 1},
		{"MAEMedian", res.MAEMedian, 1},
		{"MASEMedian", res.MASEMedian, 1},
		{"MAPEMedian", res.MAPEMedian, (0.2 + 1.0/7.0) / 2},
		{"SMAPEMedian", res.SMAPEMedian, (2.0/11.0 + 2.0/13.0) / 2},
		{"MSIS", res.MSIS, 4},
		{"RMSEMean", res.RMSEMean, math.Sqrt(0.5)},
		{"NRMSEMean", res.NRMSEMean, math.Sqrt(0.5) / 6},
		{"NDMedian", res.NDMedian, 1.0 / 6.0},
		{"MeanWeightedSumQuantileLoss", res.MeanWeightedSumQuantileLoss, (0.4/12 + 2.0/12 + 0.8/12) / 3},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if res.Model != "fixture" {
		t.Errorf("Model = %q, want %q", res.Model, "fixture")
	}
	if res.NumInstances != 1 || res.NumSeries != 1 || res.NumWindows != 1 {
		t.Errorf("counts = (%d, %d, %d), want (1, 1, 1)",
			res.NumInstances, res.NumSeries, res.NumWindows)
	}
	if res.Duration < 0 {
		t.Errorf("Duration = %v, want >= 0", res.Duration)
	}
}

func TestEvaluateSeasonalityOverride(t *testing.T) {
	data := fixtureData()
	p := &fakePredictor{name: "fixture", arrays: fixtureArrays}

	// Lag-2 differences of the context average 2, doubling the MASE and
	// MSIS denominators relative to the lag-1 default.
	res, err := Evaluate(context.Background(), p, data,
		WithQuantiles([]float64{0.1, 0.5, 0.9}), WithSeasonality(2))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if math.Abs(res.MASEMedian-0.5) > 1e-9 {
		t.Errorf("MASEMedian = %v, want 0.5", res.MASEMedian)
	}
	if math.Abs(res.MSIS-2) > 1e-9 {
		t.Errorf("MSIS = %v, want 2", res.MSIS)
	}
}

func TestEvaluateMSISAlphaOverride(t *testing.T) {
	data := fixtureData()
	p := &fakePredictor{name: "fixture", arrays: fixtureArrays}

	// At alpha 0.2 the bounds come from the 0.1 and 0.9 arrays, whose
	// mean width is 3; both labels fall inside, so no penalty accrues.
	res, err := Evaluate(context.Background(), p, data,
		WithQuantiles([]float64{0.1, 0.5, 0.9}), WithMSISAlpha(0.2))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if math.Abs(res.MSIS-3) > 1e-9 {
		t.Errorf("MSIS = %v, want 3", res.MSIS)
	}
}

func TestEvaluatePointwiseAggregation(t *testing.T) {
	// Two windows with different valid-label counts: the aggregate MAE
	// weighs every valid position equally, not every window.
	data := &fakeData{
		instances: []dataset.Instance{
			instance([]float64{1, 2, 3, 4}, []float64{5, 7}),
			instance([]float64{1, 2, 3, 4}, []float64{math.NaN(), 9}),
		},
		seasonality: 1,
		numSeries:   1,
		windows:     2,
	}
	p := &fakePredictor{name: "const", arrays: constArrays(2, 6)}

	res, err := Evaluate(context.Background(), p, data)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Absolute errors 1, 1, and 3 over three valid labels.
	if math.Abs(res.MAEMedian-5.0/3.0) > 1e-9 {
		t.Errorf("MAEMedian = %v, want 5/3", res.MAEMedian)
	}
}

func TestEvaluateBatchHalving(t *testing.T) {
	instances := make([]dataset.Instance, 8)
	for i := range instances {
		instances[i] = instance([]float64{1, 2, 3, 4}, []float64{5, 7})
	}
	data := &fakeData{instances: instances, seasonality: 1, numSeries: 8, windows: 1}
	p := &fakePredictor{name: "oom", arrays: constArrays(2, 6), failAbove: 2}

	res, err := Evaluate(context.Background(), p, data, WithBatchSize(8))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.NumInstances != 8 {
		t.Errorf("NumInstances = %d, want 8", res.NumInstances)
	}
	if p.maxBatch > 2 {
		t.Errorf("largest successful batch = %d, want <= 2", p.maxBatch)
	}
	// 8 -> fail, 4 -> fail, then four batches of 2.
	if p.calls != 6 {
		t.Errorf("predictor calls = %d, want 6", p.calls)
	}
}

func TestEvaluateExhaustedAtBatchOne(t *testing.T) {
	data := &fakeData{
		instances:   []dataset.Instance{instance([]float64{1, 2}, []float64{3})},
		seasonality: 1,
		numSeries:   1,
		windows:     1,
	}
	_, err := Evaluate(context.Background(), failingPredictor{}, data, WithBatchSize(4))
	if !errors.Is(err, errors.ErrResourceExhausted) {
		t.Errorf("error = %v, want ErrResourceExhausted", err)
	}
}

type failingPredictor struct{}

func (failingPredictor) Name() string { return "oom" }

func (failingPredictor) Predict(context.Context, []forecast.Input) ([]forecast.Forecast, error) {
	return nil, errors.NewModelError("failingPredictor.Predict", "out of memory", errors.ErrResourceExhausted)
}

func TestEvaluateNaNForecastRejected(t *testing.T) {
	data := &fakeData{
		instances:   []dataset.Instance{instance([]float64{1, 2, 3}, []float64{4})},
		seasonality: 1,
		numSeries:   1,
		windows:     1,
	}
	p := &fakePredictor{
		name: "nan",
		arrays: func(forecast.Input) map[string][]float64 {
			arrays := constArrays(1, 2)(forecast.Input{})
			arrays["mean"] = []float64{math.NaN()}
			return arrays
		},
	}

	_, err := Evaluate(context.Background(), p, data)
	if !errors.Is(err, errors.ErrNaNForecast) {
		t.Errorf("error = %v, want ErrNaNForecast", err)
	}

	// Explicitly allowed, the NaN flows into the metrics instead.
	res, err := Evaluate(context.Background(), p, data, WithNaNForecasts(true))
	if err != nil {
		t.Fatalf("Evaluate() with NaN allowed error = %v", err)
	}
	if !math.IsNaN(res.MSEMean) {
		t.Errorf("MSEMean = %v, want NaN", res.MSEMean)
	}
}

func TestEvaluateMissingQuantile(t *testing.T) {
	data := &fakeData{
		instances:   []dataset.Instance{instance([]float64{1, 2, 3}, []float64{4})},
		seasonality: 1,
		numSeries:   1,
		windows:     1,
	}
	p := &fakePredictor{
		name: "sparse",
		arrays: func(forecast.Input) map[string][]float64 {
			return map[string][]float64{"mean": {4}, "0.5": {4}}
		},
	}

	if _, err := Evaluate(context.Background(), p, data); err == nil {
		t.Error("Evaluate() with missing interval bounds returned nil error")
	}
}

func TestEvaluateLabelMaskOff(t *testing.T) {
	data := &fakeData{
		instances:   []dataset.Instance{instance([]float64{1, 2, 3}, []float64{4, math.NaN()})},
		seasonality: 1,
		numSeries:   1,
		windows:     1,
	}
	p := &fakePredictor{name: "const", arrays: constArrays(2, 4)}

	res, err := Evaluate(context.Background(), p, data, WithLabelMask(false))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !math.IsNaN(res.MAEMedian) {
		t.Errorf("MAEMedian = %v, want NaN with masking off", res.MAEMedian)
	}
}

func TestEvaluateCanceled(t *testing.T) {
	data := &fakeData{
		instances:   []dataset.Instance{instance([]float64{1, 2, 3}, []float64{4})},
		seasonality: 1,
		numSeries:   1,
		windows:     1,
	}
	p := &fakePredictor{name: "const", arrays: constArrays(1, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Evaluate(ctx, p, data); err == nil {
		t.Error("Evaluate() with canceled context returned nil error")
	}
}

func TestEvaluateNoInstances(t *testing.T) {
	data := &fakeData{seasonality: 1}
	p := &fakePredictor{name: "const", arrays: constArrays(1, 4)}

	if _, err := Evaluate(context.Background(), p, data); err == nil {
		t.Error("Evaluate() without instances returned nil error")
	}
}

func TestRequiredQuantiles(t *testing.T) {
	got := RequiredQuantiles([]float64{0.1, 0.5, 0.9})
	want := []float64{0.025, 0.1, 0.5, 0.9, 0.975}
	if len(got) != len(want) {
		t.Fatalf("RequiredQuantiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RequiredQuantiles()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
