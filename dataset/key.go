package dataset

import (
	"fmt"
	"strings"
)

// prettyNames maps historical dataset directory names to the keys used in
// the properties file and in result rows.
var prettyNames = map[string]string{
	"saugeenday":                    "saugeen",
	"temperature_rain_with_missing": "temperature_rain",
	"kdd_cup_2018_with_missing":     "kdd_cup_2018",
	"car_parts_with_missing":        "car_parts",
}

// NormalizeKey derives the canonical dataset key from a dataset name. The
// portion before the first "/" is lowercased, then legacy names are mapped
// to their canonical spellings.
//
// Example:
//
//	dataset.NormalizeKey("LOOP_SEATTLE/5T")              // "loop_seattle"
//	dataset.NormalizeKey("saugeenday/D")                 // "saugeen"
//	dataset.NormalizeKey("kdd_cup_2018_with_missing/H")  // "kdd_cup_2018"
func NormalizeKey(name string) string {
	key := name
	if idx := strings.Index(name, "/"); idx >= 0 {
		key = name[:idx]
	}
	key = strings.ToLower(key)
	if pretty, ok := prettyNames[key]; ok {
		return pretty
	}
	return key
}

// ConfigFor builds the "key/freq/term" configuration string for a dataset
// name without loading the dataset. The frequency token comes from the name
// when it embeds one ("electricity/15T"), otherwise from the properties
// map. Used by the runner for resume checks before any data is read.
//
// Parameters:
//   - name: dataset name, optionally with an embedded frequency
//   - props: properties map for resolving frequencies of slash-less names
//   - term: forecast term
//
// Returns:
//   - string: the configuration row key, e.g. "loop_seattle/5T/short"
func ConfigFor(name string, props PropertiesMap, term Term) string {
	key := NormalizeKey(name)
	freqToken := ""
	if idx := strings.Index(name, "/"); idx >= 0 {
		freqToken = name[idx+1:]
	} else if p, ok := props[key]; ok {
		freqToken = p.Frequency
	}
	return fmt.Sprintf("%s/%s/%s", key, freqToken, term)
}
