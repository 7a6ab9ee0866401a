package report

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// Plot renders a grouped bar chart of one metric: one group per dataset,
// one bar per model, written to outPath (the extension selects the
// format, typically .png). Missing or NaN values draw as zero-height
// bars.
func Plot(rows []Row, metric, outPath string) error {
	if _, ok := (Row{}).Metric(metric); !ok {
		return gifterrors.NewValueError("report.Plot",
			"unknown metric "+metric+" (known: "+strings.Join(metricNames, ", ")+")")
	}
	if len(rows) == 0 {
		return gifterrors.NewValueError("report.Plot", "no rows to plot")
	}

	datasets := distinct(rows, func(r Row) string { return r.Dataset })
	models := distinct(rows, func(r Row) string { return r.Model })

	values := make(map[pairKey]float64, len(rows))
	for _, row := range rows {
		v, _ := row.Metric(metric)
		values[pairKey{row.Dataset, row.Model}] = v
	}

	p := plot.New()
	p.Title.Text = metric
	p.Y.Label.Text = metric
	p.NominalX(datasets...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Legend.Top = true

	barWidth := vg.Points(20 / float64(len(models)))
	for i, model := range models {
		vals := make(plotter.Values, len(datasets))
		for j, ds := range datasets {
			v, ok := values[pairKey{ds, model}]
			if !ok || math.IsNaN(v) {
				v = 0
			}
			vals[j] = v
		}

		bars, err := plotter.NewBarChart(vals, barWidth)
		if err != nil {
			return gifterrors.Wrap(err, "gifteval: report.Plot: bar chart")
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(len(models)-1)/2) * barWidth

		p.Add(bars)
		p.Legend.Add(model, bars)
	}

	width := vg.Length(4+float64(len(datasets))) * vg.Centimeter
	if err := p.Save(width, 12*vg.Centimeter, outPath); err != nil {
		return gifterrors.Wrap(err, "gifteval: report.Plot: save "+outPath)
	}
	return nil
}

func distinct(rows []Row, key func(Row) string) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		set[key(row)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
