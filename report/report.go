// Package report reads and writes benchmark result files.
//
// Results are CSV rows keyed by (dataset config, model) with one column
// per benchmark metric plus the dataset's domain and variate count. The
// column set and order are fixed so result files from separate runs can
// be concatenated and compared directly.
package report

import (
	"math"
	"strconv"

	"github.com/gifteval/gifteval/eval"
	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// ResultsFileName is the result file a Writer maintains inside its
// output directory.
const ResultsFileName = "all_results.csv"

// metricPrefix namespaces the metric columns in the CSV header.
const metricPrefix = "eval_metrics/"

// metricNames lists the benchmark metrics in column order.
var metricNames = []string{
	"MSE[mean]",
	"MSE[0.5]",
	"MAE[0.5]",
	"MASE[0.5]",
	"MAPE[0.5]",
	"sMAPE[0.5]",
	"MSIS",
	"RMSE[mean]",
	"NRMSE[mean]",
	"ND[0.5]",
	"mean_weighted_sum_quantile_loss",
}

// MetricNames returns the benchmark metric names in column order.
func MetricNames() []string {
	out := make([]string, len(metricNames))
	copy(out, metricNames)
	return out
}

// Header returns the full CSV column set in order.
func Header() []string {
	header := make([]string, 0, len(metricNames)+4)
	header = append(header, "dataset", "model")
	for _, name := range metricNames {
		header = append(header, metricPrefix+name)
	}
	return append(header, "domain", "num_variates")
}

// Row is one result line: a model evaluated on one dataset config.
type Row struct {
	// Dataset is the config string "key/freq/term".
	Dataset string

	// Model is the predictor name.
	Model string

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

	// Domain and NumVariates come from the dataset properties file.
	Domain      string
	NumVariates int
}

// NewRow assembles a result row from an evaluation result and the
// dataset's properties.
func NewRow(config string, res *eval.Result, domain string, numVariates int) Row {
	return Row{
		Dataset:                     config,
		Model:                       res.Model,
		MSEMean:                     res.MSEMean,
		MSEMedian:                   res.MSEMedian,
		MAEMedian:                   res.MAEMedian,
		MASEMedian:                  res.MASEMedian,
		MAPEMedian:                  res.MAPEMedian,
		SMAPEMedian:                 res.SMAPEMedian,
		MSIS:                        res.MSIS,
		RMSEMean:                    res.RMSEMean,
		NRMSEMean:                   res.NRMSEMean,
		NDMedian:                    res.NDMedian,
		MeanWeightedSumQuantileLoss: res.MeanWeightedSumQuantileLoss,
		Domain:                      domain,
		NumVariates:                 numVariates,
	}
}

// Metric returns the named metric value and whether the name is known.
func (r Row) Metric(name string) (float64, bool) {
	switch name {
	case "MSE[mean]":
		return r.MSEMean, true
	case "MSE[0.5]":
		return r.MSEMedian, true
	case "MAE[0.5]":
		return r.MAEMedian, true
	case "MASE[0.5]":
		return r.MASEMedian, true
	case "MAPE[0.5]":
		return r.MAPEMedian, true
	case "sMAPE[0.5]":
		return r.SMAPEMedian, true
	case "MSIS":
		return r.MSIS, true
	case "RMSE[mean]":
		return r.RMSEMean, true
	case "NRMSE[mean]":
		return r.NRMSEMean, true
	case "ND[0.5]":
		return r.NDMedian, true
	case "mean_weighted_sum_quantile_loss":
		return r.MeanWeightedSumQuantileLoss, true
	default:
		return 0, false
	}
}

// record serializes the row in column order.
func (r Row) record() []string {
	rec := make([]string, 0, len(metricNames)+4)
	rec = append(rec, r.Dataset, r.Model)
	for _, name := range metricNames {
		v, _ := r.Metric(name)
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return append(rec, r.Domain, strconv.Itoa(r.NumVariates))
}

// parseRecord rebuilds a row from one CSV record.
func parseRecord(rec []string) (Row, error) {
	want := len(metricNames) + 4
	if len(rec) != want {
		return Row{}, gifterrors.NewDimensionError("report.parseRecord", want, len(rec), 0)
	}

	row := Row{Dataset: rec[0], Model: rec[1]}
	values := make([]float64, len(metricNames))
	for i := range metricNames {
		v, err := parseMetric(rec[2+i])
		if err != nil {
			return Row{}, err
		}
		values[i] = v
	}
	row.MSEMean = values[0]
	row.MSEMedian = values[1]
	row.MAEMedian = values[2]
	row.MASEMedian = values[3]
	row.MAPEMedian = values[4]
	row.SMAPEMedian = values[5]
	row.MSIS = values[6]
	row.RMSEMean = values[7]
	row.NRMSEMean = values[8]
	row.NDMedian = values[9]
	row.MeanWeightedSumQuantileLoss = values[10]

	row.Domain = rec[len(rec)-2]
	variates, err := strconv.Atoi(rec[len(rec)-1])
	if err != nil {
		return Row{}, gifterrors.NewValidationError("num_variates", "must be an integer", rec[len(rec)-1])
	}
	row.NumVariates = variates
	return row, nil
}

// parseMetric reads one metric cell. Empty cells, as written by tools
// that serialize NaN as nothing, parse as NaN.
func parseMetric(cell string) (float64, error) {
	if cell == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, gifterrors.NewValidationError("metric", "must be a float", cell)
	}
	return v, nil
}
