package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gifteval/gifteval/pkg/errors"
)

// Series is a single univariate time series: an identifier, the timestamp
// of the first observation, and the observed values. Missing observations
// are NaN.
type Series struct {
	// ItemID identifies the series within its dataset.
	ItemID string

	// Start is the timestamp of Target[0].
	Start time.Time

	// Target holds the observations in time order.
	Target []float64
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Target)
}

// entry is one stored record after decoding: a possibly multivariate target
// held dimension-major, plus optional past dynamic features.
type entry struct {
	itemID   string
	start    time.Time
	target   [][]float64
	pastFeat [][]float64
}

// record is the JSONL wire form of one series. Target is kept raw because
// it may be a flat array (univariate) or an array of per-dimension arrays
// (multivariate).
type record struct {
	ItemID              string          `json:"item_id"`
	Start               string          `json:"start"`
	Freq                string          `json:"freq"`
	Target              json.RawMessage `json:"target"`
	PastFeatDynamicReal json.RawMessage `json:"past_feat_dynamic_real,omitempty"`
}

// nanFloat is a float64 whose JSON form uses null for NaN, since JSON has
// no NaN literal.
type nanFloat float64

func (f *nanFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch s {
	case "null", `"NaN"`, `"nan"`:
		*f = nanFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(strings.Trim(s, `"`), 64)
	if err != nil {
		return err
	}
	*f = nanFloat(v)
	return nil
}

func (f nanFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func toFloats(in []nanFloat) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func fromFloats(in []float64) []nanFloat {
	out := make([]nanFloat, len(in))
	for i, v := range in {
		out[i] = nanFloat(v)
	}
	return out
}

// decodeValues decodes a raw JSON target into dimension-major rows. A flat
// array becomes a single row.
func decodeValues(raw json.RawMessage) ([][]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var flat []nanFloat
	if err := json.Unmarshal(raw, &flat); err == nil {
		return [][]float64{toFloats(flat)}, nil
	}

	var nested [][]nanFloat
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	rows := make([][]float64, len(nested))
	for i, dim := range nested {
		rows[i] = toFloats(dim)
	}
	return rows, nil
}

// encodeValues encodes dimension-major rows back to the wire form, writing
// a flat array when there is exactly one row.
func encodeValues(rows [][]float64) (json.RawMessage, error) {
	if len(rows) == 1 {
		return json.Marshal(fromFloats(rows[0]))
	}
	nested := make([][]nanFloat, len(rows))
	for i, row := range rows {
		nested[i] = fromFloats(row)
	}
	return json.Marshal(nested)
}

// startFormats are the accepted timestamp layouts, tried in order.
var startFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseStart(s string) (time.Time, error) {
	for _, layout := range startFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewValueError("parseStart", "unrecognized timestamp "+s)
}

func formatStart(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// decodeRecord converts a wire record into an entry.
func decodeRecord(r record) (entry, error) {
	start, err := parseStart(r.Start)
	if err != nil {
		return entry{}, err
	}

	target, err := decodeValues(r.Target)
	if err != nil {
		return entry{}, errors.Wrapf(err, "decoding target of %q", r.ItemID)
	}
	if len(target) == 0 {
		return entry{}, errors.Wrapf(errors.ErrEmptyData, "record %q has no target", r.ItemID)
	}

	pastFeat, err := decodeValues(r.PastFeatDynamicReal)
	if err != nil {
		return entry{}, errors.Wrapf(err, "decoding past features of %q", r.ItemID)
	}

	return entry{
		itemID:   r.ItemID,
		start:    start,
		target:   target,
		pastFeat: pastFeat,
	}, nil
}

// encodeRecord converts an entry back into the wire record.
func encodeRecord(e entry, freqStr string) (record, error) {
	target, err := encodeValues(e.target)
	if err != nil {
		return record{}, err
	}

	r := record{
		ItemID: e.itemID,
		Start:  formatStart(e.start),
		Freq:   freqStr,
		Target: target,
	}

	if len(e.pastFeat) > 0 {
		pastFeat, err := encodeValues(e.pastFeat)
		if err != nil {
			return record{}, err
		}
		r.PastFeatDynamicReal = pastFeat
	}
	return r, nil
}
