package forecast

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// QuantileKey formats a quantile level as a forecast array key, its
// shortest decimal form: 0.1 → "0.1".
func QuantileKey(q float64) string {
	return strconv.FormatFloat(q, 'g', -1, 64)
}

// IntervalFor returns the prediction-interval coverage implied by a
// quantile level: round(200 × (max(q, 1−q) − 0.5)). The 0.1 and 0.9 levels
// both map to the 80% interval.
func IntervalFor(q float64) int {
	return int(math.Round(200 * (math.Max(q, 1-q) - 0.5)))
}

// IntervalKey returns the statsforecast-style key of a quantile level:
// "lo-80" for 0.1, "hi-80" for 0.9, "lo-0" for 0.5.
func IntervalKey(q float64) string {
	side := "lo"
	if q > 0.5 {
		side = "hi"
	}
	return fmt.Sprintf("%s-%d", side, IntervalFor(q))
}

// Config maps a set of quantile levels to the key conventions used by
// forecast producers: plain level keys for forecast arrays and
// interval-style keys for statsforecast-like backends.
type Config struct {
	// QuantileLevels are the requested levels, in request order.
	QuantileLevels []float64

	// ForecastKeys is "mean" followed by the level key of each quantile.
	ForecastKeys []string

	// StatsforecastKeys is "mean" followed by the interval key of each
	// quantile.
	StatsforecastKeys []string

	// Intervals is the sorted set of distinct interval coverages implied
	// by the levels. Nil when no levels were requested.
	Intervals []int
}

// NewConfig builds the key mappings for the given quantile levels.
//
// Example:
//
//	cfg := forecast.NewConfig([]float64{0.1, 0.5, 0.9})
//	// cfg.ForecastKeys:      ["mean", "0.1", "0.5", "0.9"]
//	// cfg.StatsforecastKeys: ["mean", "lo-80", "lo-0", "hi-80"]
//	// cfg.Intervals:         [0, 80]
func NewConfig(quantileLevels []float64) Config {
	cfg := Config{
		QuantileLevels:    quantileLevels,
		ForecastKeys:      []string{"mean"},
		StatsforecastKeys: []string{"mean"},
	}
	if len(quantileLevels) == 0 {
		return cfg
	}

	seen := make(map[int]bool)
	for _, q := range quantileLevels {
		interval := IntervalFor(q)
		seen[interval] = true
		cfg.ForecastKeys = append(cfg.ForecastKeys, QuantileKey(q))
		cfg.StatsforecastKeys = append(cfg.StatsforecastKeys, IntervalKey(q))
	}

	cfg.Intervals = make([]int, 0, len(seen))
	for interval := range seen {
		cfg.Intervals = append(cfg.Intervals, interval)
	}
	sort.Ints(cfg.Intervals)
	return cfg
}
