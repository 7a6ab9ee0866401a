// Package eval runs rolling-window held-out evaluation of a predictor and
// aggregates the benchmark metric set.
//
// Evaluate batches a dataset's test instances through a predictor,
// compares each forecast window against its held-out labels, and
// aggregates the eleven benchmark metrics across all windows and series.
// Aggregation is pointwise: every valid label position carries the same
// weight regardless of which series or window it belongs to.
//
// Predictors that report resource exhaustion make the loop retry with a
// halved batch size, down to single-instance batches.
package eval

import (
	"context"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gifteval/gifteval/dataset"
	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/freq"
	"github.com/gifteval/gifteval/metrics"
	"github.com/gifteval/gifteval/models"
	"github.com/gifteval/gifteval/pkg/errors"
	"github.com/gifteval/gifteval/pkg/log"
)

// DefaultBatchSize is the number of instances sent to a predictor per call.
const DefaultBatchSize = 1024

// Data is the slice of a dataset evaluation needs. *dataset.Dataset
// implements it.
type Data interface {
	// TestInstances returns the rolling evaluation windows.
	TestInstances() []dataset.Instance

	// Freq returns the sampling frequency of the series.
	Freq() freq.Freq

	// Seasonality returns the seasonal period implied by the frequency.
	Seasonality() int

	// NumSeries returns the number of series behind the instances.
	NumSeries() int

	// Windows returns the number of evaluation windows per series.
	Windows() int
}

type options struct {
	batchSize        int
	quantiles        []float64
	seasonality      int
	maskInvalidLabel bool
	allowNaNForecast bool
	msisAlpha        float64
	logger           log.Logger
}

// Option adjusts evaluation behavior.
type Option func(*options)

// WithBatchSize sets the number of instances per predictor call.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithQuantiles sets the quantile levels entering the weighted quantile
// loss. The median level 0.5 must be among the levels each forecast
// provides; RequiredQuantiles builds the full set for a predictor.
func WithQuantiles(levels []float64) Option {
	return func(o *options) { o.quantiles = levels }
}

// WithSeasonality overrides the seasonal lag used for MASE and MSIS
// scaling. The default comes from the dataset frequency.
func WithSeasonality(m int) Option {
	return func(o *options) { o.seasonality = m }
}

// WithLabelMask controls whether NaN labels are excluded from the
// metrics. Masking is on by default; with masking off, a NaN label
// poisons the aggregate metrics to NaN.
func WithLabelMask(enabled bool) Option {
	return func(o *options) { o.maskInvalidLabel = enabled }
}

// WithNaNForecasts controls whether forecasts may contain NaN. Forbidden
// by default; a NaN forecast value fails the evaluation with an error
// wrapping ErrNaNForecast.
func WithNaNForecasts(allowed bool) Option {
	return func(o *options) { o.allowNaNForecast = allowed }
}

// WithMSISAlpha sets the significance level of the interval score.
func WithMSISAlpha(alpha float64) Option {
	return func(o *options) { o.msisAlpha = alpha }
}

// WithLogger attaches a logger for progress and batch-size events.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// RequiredQuantiles returns the sorted set of levels a predictor must
// provide for evaluation: the metric levels, the median, and the MSIS
// interval bounds.
func RequiredQuantiles(levels []float64) []float64 {
	out := make([]float64, 0, len(levels)+3)
	out = append(out, levels...)
	out = append(out, 0.5, metrics.DefaultMSISAlpha/2, 1-metrics.DefaultMSISAlpha/2)
	slices.Sort(out)
	return slices.Compact(out)
}

// Result aggregates the benchmark metrics of one (dataset, model) run.
type Result struct {
	// Model is the predictor name the forecasts came from.
	Model string

	// NumSeries, NumWindows, and NumInstances record the evaluated
	// data volume: instances = series × windows.
	NumSeries    int
	NumWindows   int
	NumInstances int

	// Duration is the wall-clock time of the evaluation loop.
	Duration time.Duration

	MSEMean                     float64
	MSEMedian                   float64
	MAEMedian                   float64
	MASEMedian                  float64
	MAPEMedian                  float64
	SMAPEMedian                 float64
	MSIS                        float64
	RMSEMean                    float64
	NRMSEMean                   float64
	NDMedian                    float64
	MeanWeightedSumQuantileLoss float64
}

// Evaluate runs predictor over every test instance of data and aggregates
// the metric set.
//
// The predictor is called with batches of up to the configured batch
// size. When a call fails with an error wrapping ErrResourceExhausted the
// batch size is halved and the batch retried; the error is returned once
// single-instance batches still exhaust resources. Any other predictor
// error aborts the evaluation.
func Evaluate(ctx context.Context, predictor models.Predictor, data Data, opts ...Option) (res *Result, err error) {
	defer errors.Recover(&err, "eval.Evaluate")

	o := options{
		batchSize:        DefaultBatchSize,
		quantiles:        models.DefaultQuantileLevels,
		seasonality:      data.Seasonality(),
		maskInvalidLabel: true,
		msisAlpha:        metrics.DefaultMSISAlpha,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchSize < 1 {
		return nil, errors.NewValueError("eval.Evaluate", "batch size must be at least 1")
	}
	if len(o.quantiles) == 0 {
		return nil, errors.NewValueError("eval.Evaluate", "at least one quantile level is required")
	}
	if o.seasonality < 1 {
		o.seasonality = 1
	}

	instances := data.TestInstances()
	if len(instances) == 0 {
		return nil, errors.NewValueError("eval.Evaluate", "dataset has no test instances")
	}

	if o.logger != nil {
		o.logger.Info("Evaluation started",
			log.OperationKey, log.OperationEvaluate,
			log.PhaseKey, log.PhaseEvaluation,
			log.ModelNameKey, predictor.Name(),
			log.SeriesKey, data.NumSeries(),
			log.WindowsKey, data.Windows(),
			log.BatchSizeKey, o.batchSize,
		)
	}

	start := time.Now()
	acc := newAccumulator(&o)
	fq := data.Freq()

	batch := o.batchSize
	for i := 0; i < len(instances); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + batch
		if end > len(instances) {
			end = len(instances)
		}

		inputs := make([]forecast.Input, end-i)
		for j, inst := range instances[i:end] {
			inputs[j] = forecast.Input{
				ItemID: inst.Context.ItemID,
				Start:  inst.Context.Start,
				Freq:   fq,
				Target: inst.Context.Target,
			}
		}

		fcs, err := predictor.Predict(ctx, inputs)
		if err != nil {
			if errors.Is(err, errors.ErrResourceExhausted) && batch > 1 {
				batch /= 2
				if o.logger != nil {
					o.logger.Warn("Prediction exhausted resources, halving batch size",
						log.ModelNameKey, predictor.Name(),
						log.BatchSizeKey, batch,
					)
				}
				continue
			}
			return nil, err
		}
		if len(fcs) != len(inputs) {
			return nil, errors.NewDimensionError("eval.Evaluate", len(inputs), len(fcs), 0)
		}

		for j, fc := range fcs {
			if err := acc.add(instances[i+j], fc); err != nil {
				return nil, err
			}
		}
		i = end
	}

	res = acc.result()
	res.Model = predictor.Name()
	res.NumSeries = data.NumSeries()
	res.NumWindows = data.Windows()
	res.NumInstances = len(instances)
	res.Duration = time.Since(start)

	if o.logger != nil {
		o.logger.Info("Evaluation completed",
			log.OperationKey, log.OperationEvaluate,
			log.PhaseKey, log.PhaseEvaluation,
			log.ModelNameKey, predictor.Name(),
			log.PredsKey, len(instances),
			log.DurationMsKey, res.Duration.Milliseconds(),
		)
	}
	return res, nil
}

// accumulator keeps pointwise sums across evaluation windows. Masked
// means are recovered at the end by dividing by the valid label count.
type accumulator struct {
	opts *options

	n        int
	windows  int
	poisoned bool

	sqErrMean  float64
	sqErrMed   float64
	absErrMed  float64
	maseTerms  float64
	mapeTerms  float64
	smapeTerms float64
	msisTerms  float64
	absLabel   float64
	qlSums     []float64
}

func newAccumulator(o *options) *accumulator {
	return &accumulator{opts: o, qlSums: make([]float64, len(o.quantiles))}
}

func (a *accumulator) add(inst dataset.Instance, fc forecast.Forecast) error {
	h := len(inst.Label)
	label := mat.NewVecDense(h, inst.Label)

	nw := metrics.ValidCount(label)
	if !a.opts.maskInvalidLabel && nw < h {
		a.poisoned = true
	}
	a.windows++
	if nw == 0 {
		return nil
	}

	med, err := fc.Quantile(0.5)
	if err != nil {
		return errors.NewModelError("eval.Evaluate", "forecast for "+fc.ItemID()+" has no median", err)
	}
	point := fc.Mean()
	if point == nil {
		point = med
	}
	if len(point) != h {
		return errors.NewDimensionError("eval.Evaluate", h, len(point), 0)
	}

	lo, err := fc.Quantile(a.opts.msisAlpha / 2)
	if err != nil {
		return errors.NewModelError("eval.Evaluate", "forecast for "+fc.ItemID()+" lacks interval bounds", err)
	}
	hi, err := fc.Quantile(1 - a.opts.msisAlpha/2)
	if err != nil {
		return errors.NewModelError("eval.Evaluate", "forecast for "+fc.ItemID()+" lacks interval bounds", err)
	}

	quantiles := make([]*mat.VecDense, len(a.opts.quantiles))
	for k, q := range a.opts.quantiles {
		arr, err := fc.Quantile(q)
		if err != nil {
			return errors.NewModelError("eval.Evaluate", "forecast for "+fc.ItemID()+" lacks a quantile level", err)
		}
		quantiles[k] = mat.NewVecDense(h, arr)
	}

	if !a.opts.allowNaNForecast {
		for _, arr := range append([][]float64{point, med, lo, hi}, quantileSlices(quantiles)...) {
			if hasNaN(arr) {
				return errors.NewModelError("eval.Evaluate",
					"forecast for "+fc.ItemID()+" contains NaN", errors.ErrNaNForecast)
			}
		}
	}

	pointVec := mat.NewVecDense(h, point)
	medVec := mat.NewVecDense(h, med)

	se := seasonalScale(inst.Context.Target, a.opts.seasonality)

	mseMean, err := metrics.MSE(label, pointVec)
	if err != nil {
		return err
	}
	mseMed, err := metrics.MSE(label, medVec)
	if err != nil {
		return err
	}
	maeMed, err := metrics.MAE(label, medVec)
	if err != nil {
		return err
	}
	mapeMed, err := metrics.MAPE(label, medVec)
	if err != nil {
		return err
	}
	smapeMed, err := metrics.SMAPE(label, medVec)
	if err != nil {
		return err
	}
	maseMed, err := metrics.MASE(label, medVec, se)
	if err != nil {
		return err
	}
	msis, err := metrics.MSIS(label, mat.NewVecDense(h, lo), mat.NewVecDense(h, hi), se, a.opts.msisAlpha)
	if err != nil {
		return err
	}

	w := float64(nw)
	a.sqErrMean += mseMean * w
	a.sqErrMed += mseMed * w
	a.absErrMed += maeMed * w
	a.mapeTerms += mapeMed * w
	a.smapeTerms += smapeMed * w
	a.maseTerms += maseMed * w
	a.msisTerms += msis * w
	a.absLabel += metrics.AbsLabelSum(label)
	a.n += nw

	for k, q := range a.opts.quantiles {
		ql, err := metrics.QuantileLoss(label, quantiles[k], q)
		if err != nil {
			return err
		}
		a.qlSums[k] += ql
	}
	return nil
}

func (a *accumulator) result() *Result {
	res := &Result{}
	if a.n == 0 || a.poisoned {
		nan := math.NaN()
		res.MSEMean, res.MSEMedian, res.MAEMedian = nan, nan, nan
		res.MASEMedian, res.MAPEMedian, res.SMAPEMedian = nan, nan, nan
		res.MSIS, res.RMSEMean, res.NRMSEMean = nan, nan, nan
		res.NDMedian, res.MeanWeightedSumQuantileLoss = nan, nan
		return res
	}

	n := float64(a.n)
	res.MSEMean = a.sqErrMean / n
	res.MSEMedian = a.sqErrMed / n
	res.MAEMedian = a.absErrMed / n
	res.MASEMedian = a.maseTerms / n
	res.MAPEMedian = a.mapeTerms / n
	res.SMAPEMedian = a.smapeTerms / n
	res.MSIS = a.msisTerms / n
	res.RMSEMean = math.Sqrt(res.MSEMean)
	res.NRMSEMean = res.RMSEMean / (a.absLabel / n)
	res.NDMedian = a.absErrMed / a.absLabel

	sum := 0.0
	for _, ql := range a.qlSums {
		sum += ql / a.absLabel
	}
	res.MeanWeightedSumQuantileLoss = sum / float64(len(a.qlSums))
	return res
}

// seasonalScale is the MASE/MSIS denominator for one context window. A
// context too short or fully masked yields NaN, which propagates into the
// scaled metrics the way an undefined scale should.
func seasonalScale(context []float64, seasonality int) float64 {
	if len(context) < 2 {
		return math.NaN()
	}
	se, err := metrics.SeasonalError(mat.NewVecDense(len(context), context), seasonality)
	if err != nil {
		return math.NaN()
	}
	return se
}

func quantileSlices(vecs []*mat.VecDense) [][]float64 {
	out := make([][]float64, len(vecs))
	for i, v := range vecs {
		out[i] = v.RawVector().Data
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
