// Benchmark binary measuring forecast throughput of the bundled models on
// synthetic series. Run it directly:
//
//	go run ./benchmarks/forecasting
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gifteval/gifteval/eval"
	"github.com/gifteval/gifteval/forecast"
	"github.com/gifteval/gifteval/freq"
	"github.com/gifteval/gifteval/models"
)

// BenchmarkResult summarizes one model on one workload.
type BenchmarkResult struct {
	Model       string
	Series      int
	Length      int
	Horizon     int
	Duration    time.Duration
	Throughput  float64 // series/second
	MemoryUsage float64 // MB
	MAE         float64 // median forecast vs held-out tail
}

func main() {
	fmt.Println("=== gifteval model throughput benchmarks ===")

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	workloads := []struct {
		name    string
		series  int
		length  int
		horizon int
	}{
		{"Small", 1000, 168, 24},
		{"Medium", 5000, 336, 48},
		{"Large", 20000, 720, 48},
	}

	// The server model needs a live endpoint and is excluded here.
	names := []string{
		"naive", "seasonal_naive", "historic_average", "window_average",
		"drift", "linear_trend", "ets", "ar",
	}

	var results []BenchmarkResult
	for _, w := range workloads {
		fmt.Printf("\nWorkload: %s (%s series, length %d, horizon %d)\n",
			w.name, humanize.Comma(int64(w.series)), w.length, w.horizon)
		fmt.Println(strings.Repeat("-", 50))

		inputs, labels := generateWorkload(w.series, w.length, w.horizon, 42)
		for _, name := range names {
			res, err := benchmarkModel(name, inputs, labels, w.horizon)
			if err != nil {
				fmt.Printf("  %-18s error: %v\n", name, err)
				continue
			}
			results = append(results, res)
			fmt.Printf("  %-18s %12.0f series/sec, MAE %.3f\n", name, res.Throughput, res.MAE)
		}
	}

	runtime.GC()
	runtime.ReadMemStats(&m2)

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println(strings.Repeat("=", 90))
	printResults(results)

	fmt.Printf("\nTotal Memory Used: %.2f MB\n", float64(m2.TotalAlloc-m1.TotalAlloc)/(1024*1024))
	fmt.Printf("System Memory: %.2f MB\n", float64(m2.Sys)/(1024*1024))
}

// benchmarkModel forecasts every input in evaluation-sized batches and
// scores the median path against the held-out tails.
func benchmarkModel(name string, inputs []forecast.Input, labels [][]float64, horizon int) (BenchmarkResult, error) {
	cfg := models.Config{
		Horizon:        horizon,
		Season:         24,
		QuantileLevels: eval.RequiredQuantiles(models.DefaultQuantileLevels),
	}
	predictor, err := models.New(name, cfg, nil)
	if err != nil {
		return BenchmarkResult{}, err
	}

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	ctx := context.Background()
	start := time.Now()

	var fcs []forecast.Forecast
	for i := 0; i < len(inputs); i += eval.DefaultBatchSize {
		end := i + eval.DefaultBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := predictor.Predict(ctx, inputs[i:end])
		if err != nil {
			return BenchmarkResult{}, err
		}
		fcs = append(fcs, batch...)
	}
	duration := time.Since(start)

	runtime.GC()
	runtime.ReadMemStats(&m2)

	return BenchmarkResult{
		Model:       name,
		Series:      len(inputs),
		Length:      len(inputs[0].Target),
		Horizon:     horizon,
		Duration:    duration,
		Throughput:  float64(len(inputs)) / duration.Seconds(),
		MemoryUsage: float64(m2.TotalAlloc-m1.TotalAlloc) / (1024 * 1024),
		MAE:         medianMAE(fcs, labels),
	}, nil
}

// generateWorkload builds hourly series with level, trend, daily season,
// and noise, plus the held-out continuation of each.
func generateWorkload(numSeries, length, horizon int, seed byte) ([]forecast.Input, [][]float64) {
	seedBytes := [32]byte{}
	seedBytes[0] = seed
	rng := rand.New(rand.NewChaCha8(seedBytes))

	fq := freq.MustParse("H")
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	inputs := make([]forecast.Input, numSeries)
	labels := make([][]float64, numSeries)
	for i := range inputs {
		level := 100 + 50*rng.Float64()
		trend := rng.NormFloat64() * 0.05
		amp := 5 + 10*rng.Float64()

		target := make([]float64, length)
		label := make([]float64, horizon)
		for t := 0; t < length+horizon; t++ {
			v := level + trend*float64(t) +
				amp*math.Sin(2*math.Pi*float64(t)/24) +
				rng.NormFloat64()
			if t < length {
				target[t] = v
			} else {
				label[t-length] = v
			}
		}

		inputs[i] = forecast.Input{
			ItemID: fmt.Sprintf("S%d", i),
			Start:  start,
			Freq:   fq,
			Target: target,
		}
		labels[i] = label
	}
	return inputs, labels
}

// medianMAE scores the median forecast path against the held-out values.
func medianMAE(fcs []forecast.Forecast, labels [][]float64) float64 {
	sum, n := 0.0, 0
	for i, fc := range fcs {
		med, err := fc.Quantile(0.5)
		if err != nil {
			continue
		}
		for t, y := range labels[i] {
			if t >= len(med) {
				break
			}
			sum += math.Abs(y - med[t])
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func printResults(results []BenchmarkResult) {
	fmt.Printf("%-18s %10s %8s %8s %12s %15s %10s %8s\n",
		"Model", "Series", "Length", "Horizon", "Duration", "Throughput", "Memory", "MAE")
	fmt.Println(strings.Repeat("-", 96))

	for _, r := range results {
		fmt.Printf("%-18s %10s %8d %8d %12s %15.0f %10.2f %8.3f\n",
			r.Model,
			humanize.Comma(int64(r.Series)),
			r.Length,
			r.Horizon,
			r.Duration.Truncate(time.Millisecond),
			r.Throughput,
			r.MemoryUsage,
			r.MAE)
	}
}
