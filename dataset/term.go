package dataset

import (
	"github.com/gifteval/gifteval/pkg/errors"
)

// Term is the forecasting horizon category. The prediction length of a
// dataset is its base horizon scaled by the term's multiplier.
type Term string

// Supported terms.
const (
	TermShort  Term = "short"
	TermMedium Term = "medium"
	TermLong   Term = "long"
)

// Terms lists all terms in evaluation order.
var Terms = []Term{TermShort, TermMedium, TermLong}

// ParseTerm validates and converts a term name.
//
// Parameters:
//   - s: one of "short", "medium", "long"
//
// Returns:
//   - Term: the parsed term
//   - error: a ValueError if s is not a known term
func ParseTerm(s string) (Term, error) {
	switch Term(s) {
	case TermShort, TermMedium, TermLong:
		return Term(s), nil
	default:
		return "", errors.NewValueError("ParseTerm",
			"unknown term "+s+" (want short, medium, or long)")
	}
}

// Multiplier returns the factor applied to the base prediction length:
// 1 for short, 10 for medium, 15 for long.
func (t Term) Multiplier() int {
	switch t {
	case TermMedium:
		return 10
	case TermLong:
		return 15
	default:
		return 1
	}
}

// String returns the term name.
func (t Term) String() string {
	return string(t)
}
