// Package freq parses pandas-style frequency strings and derives the
// quantities the harness needs from them: seasonal period, base prediction
// horizon unit, and calendar-aware timestamp stepping.
//
// A frequency string is an optional integer multiple, a unit alias, and an
// optional anchor suffix, for example "H", "15T", "W-SUN", "QE-DEC". Units
// are canonicalized so that "min" and "T", or "ME" and "M", behave
// identically.
package freq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gifteval/gifteval/pkg/errors"
)

// Canonical frequency units after alias resolution.
const (
	Second  = "S"
	Minute  = "T"
	Hour    = "H"
	Day     = "D"
	Week    = "W"
	Month   = "M"
	Quarter = "Q"
	Year    = "A"
	Bizday  = "B"
)

// seasonalities maps a canonical unit to its default seasonal period, the
// number of observations after which the series is expected to repeat.
var seasonalities = map[string]int{
	Second:  3600,
	Minute:  1440,
	Hour:    24,
	Day:     1,
	Week:    1,
	Month:   12,
	Quarter: 4,
	Year:    1,
	Bizday:  5,
}

// aliases resolves the unit spellings that appear in dataset metadata to a
// canonical unit. Lookups uppercase the unit first, so "min", "Min", and
// "MIN" all resolve to Minute.
var aliases = map[string]string{
	"S":   Second,
	"T":   Minute,
	"MIN": Minute,
	"H":   Hour,
	"D":   Day,
	"B":   Bizday,
	"W":   Week,
	"M":   Month,
	"MS":  Month,
	"ME":  Month,
	"Q":   Quarter,
	"QS":  Quarter,
	"QE":  Quarter,
	"A":   Year,
	"AS":  Year,
	"Y":   Year,
	"YS":  Year,
	"YE":  Year,
}

var freqPattern = regexp.MustCompile(`^(\d*)([A-Za-z]+)(?:-([A-Za-z0-9]+))?$`)

// Freq is a parsed frequency: a positive multiple of a canonical unit, with
// the original string retained for display.
type Freq struct {
	// N is the unit multiple, at least 1. "15T" has N = 15.
	N int

	// Unit is the canonical unit, one of the package constants.
	Unit string

	raw string
}

// Parse parses a pandas-style frequency string.
//
// Parameters:
//   - s: frequency string such as "H", "15T", "W-SUN", or "QE-DEC"
//
// Returns:
//   - Freq: the parsed frequency
//   - error: wraps ErrInvalidFrequency if s is empty, has an unknown unit,
//     or has a zero multiple
//
// Example:
//
//	f, err := freq.Parse("15T")
//	// f.N == 15, f.Unit == freq.Minute
func Parse(s string) (Freq, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Freq{}, errors.Wrap(errors.ErrInvalidFrequency, "freq.Parse: empty frequency string")
	}

	m := freqPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Freq{}, errors.Wrapf(errors.ErrInvalidFrequency, "freq.Parse: cannot parse %q", s)
	}

	n := 1
	if m[1] != "" {
		parsed, err := strconv.Atoi(m[1])
		if err != nil || parsed == 0 {
			return Freq{}, errors.Wrapf(errors.ErrInvalidFrequency, "freq.Parse: invalid multiple in %q", s)
		}
		n = parsed
	}

	unit, ok := aliases[strings.ToUpper(m[2])]
	if !ok {
		return Freq{}, errors.Wrapf(errors.ErrInvalidFrequency, "freq.Parse: unknown unit %q in %q", m[2], s)
	}

	return Freq{N: n, Unit: unit, raw: trimmed}, nil
}

// MustParse parses a frequency string and panics on failure. Intended for
// literals in tests and tables.
func MustParse(s string) Freq {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the original frequency string, or a canonical rendering if
// the Freq was constructed directly.
func (f Freq) String() string {
	if f.raw != "" {
		return f.raw
	}
	if f.N == 1 {
		return f.Unit
	}
	return fmt.Sprintf("%d%s", f.N, f.Unit)
}

// Short returns the canonical unit without multiple or anchor. "W-SUN"
// parses to a Freq whose Short is "W".
func (f Freq) Short() string {
	return f.Unit
}

// Seasonality returns the seasonal period of the frequency: the default
// period of the unit divided by the multiple. If the multiple does not
// divide the default period evenly, or exceeds it, the series is treated as
// non-seasonal and 1 is returned.
//
// Example:
//
//	freq.MustParse("H").Seasonality()   // 24
//	freq.MustParse("15T").Seasonality() // 96
//	freq.MustParse("7T").Seasonality()  // 1
func (f Freq) Seasonality() int {
	base, ok := seasonalities[f.Unit]
	if !ok {
		return 1
	}
	n := f.N
	if n < 1 {
		n = 1
	}
	if base%n != 0 {
		return 1
	}
	return base / n
}

// TickDuration returns the approximate fixed duration of one period. Months,
// quarters, and years use 30, 91, and 365 day approximations; use Step for
// calendar-correct timestamp arithmetic.
func (f Freq) TickDuration() time.Duration {
	n := time.Duration(f.N)
	if n < 1 {
		n = 1
	}
	switch f.Unit {
	case Second:
		return n * time.Second
	case Minute:
		return n * time.Minute
	case Hour:
		return n * time.Hour
	case Day, Bizday:
		return n * 24 * time.Hour
	case Week:
		return n * 7 * 24 * time.Hour
	case Month:
		return n * 30 * 24 * time.Hour
	case Quarter:
		return n * 91 * 24 * time.Hour
	case Year:
		return n * 365 * 24 * time.Hour
	default:
		return n * 24 * time.Hour
	}
}

// Step advances t by periods frequency ticks. Month, quarter, and year units
// step by calendar fields so that month boundaries and leap years are
// respected; sub-daily units step by fixed durations.
//
// Parameters:
//   - t: the starting timestamp
//   - periods: number of ticks to advance, may be negative
//
// Returns:
//   - time.Time: the stepped timestamp
func (f Freq) Step(t time.Time, periods int) time.Time {
	n := f.N
	if n < 1 {
		n = 1
	}
	total := n * periods
	switch f.Unit {
	case Month:
		return t.AddDate(0, total, 0)
	case Quarter:
		return t.AddDate(0, 3*total, 0)
	case Year:
		return t.AddDate(total, 0, 0)
	case Week:
		return t.AddDate(0, 0, 7*total)
	case Day, Bizday:
		return t.AddDate(0, 0, total)
	default:
		return t.Add(time.Duration(periods) * f.TickDuration())
	}
}
