// Package dataset loads benchmark datasets and produces the training,
// validation, and rolling test splits used for evaluation.
//
// Datasets live under a storage root, one directory per dataset, grouped by
// split:
//
//	$GIFT_EVAL/
//	  dataset_properties.json
//	  train_test/
//	    m4_weekly/
//	      metadata.json
//	      data-00000.jsonl
//	    electricity/15T/
//	      ...
//	  pretrain/
//	    ...
//
// Each JSONL line is one series record with an item_id, a start timestamp,
// a frequency string, and a target array (nested for multivariate targets;
// nulls decode to NaN). A dataset whose key appears in the properties file
// belongs to the train_test split, otherwise to pretrain.
//
// The amount of held-out data is derived from the series lengths: the
// prediction length is the term multiplier times the base horizon of the
// dataset's frequency, and the number of rolling test windows covers about
// ten percent of the shortest series, capped at twenty.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gifteval/gifteval/freq"
	"github.com/gifteval/gifteval/pkg/errors"
	"github.com/gifteval/gifteval/pkg/log"
)

const (
	// TestSplit is the fraction of the shortest series reserved for rolling
	// test windows.
	TestSplit = 0.1

	// MaxWindows caps the number of rolling test windows per dataset.
	MaxWindows = 20

	// DefaultStorageEnvVar names the environment variable holding the
	// storage root.
	DefaultStorageEnvVar = "GIFT_EVAL"

	// PropertiesFileName is the properties file looked up under the storage
	// root.
	PropertiesFileName = "dataset_properties.json"
)

// Split subdirectories under the storage root.
const (
	SplitTrainTest = "train_test"
	SplitPretrain  = "pretrain"
)

// predLengths maps a canonical frequency unit to the base prediction
// horizon for the short term.
var predLengths = map[string]int{
	freq.Year:    6,
	freq.Quarter: 8,
	freq.Month:   12,
	freq.Week:    8,
	freq.Day:     30,
	freq.Hour:    48,
	freq.Minute:  48,
	freq.Second:  60,
}

// m4PredLengths overrides base horizons for the m4 competition datasets.
var m4PredLengths = map[string]int{
	freq.Year:    6,
	freq.Quarter: 8,
	freq.Month:   18,
	freq.Week:    13,
	freq.Day:     14,
	freq.Hour:    48,
}

// Instance is one rolling test window: the context visible to the model and
// the held-out label immediately following it.
type Instance struct {
	// Context is the input portion of the series.
	Context Series

	// Label holds the ground-truth values for the forecast horizon.
	Label []float64
}

// Dataset is a loaded benchmark dataset for one forecast term. Multivariate
// targets are expanded into univariate series at load time, one per
// dimension with "_dim<i>" appended to the item id.
type Dataset struct {
	name string
	term Term
	fq   freq.Freq

	split string
	dir   string

	series []Series

	targetDim        int
	pastFeatDim      int
	numRecords       int
	minSeriesLength  int
	sumSeriesLength  int
	predictionLength int
	windows          int

	logger log.Logger
}

type options struct {
	term           Term
	fraction       float64
	seed           int64
	storageEnvVar  string
	storageDir     string
	propertiesPath string
}

// Option configures Open.
type Option func(*options)

// WithTerm sets the forecast term. Defaults to TermShort.
func WithTerm(term Term) Option {
	return func(o *options) { o.term = term }
}

// WithFraction keeps a deterministic sample of ceil(f × N) series, chosen
// by a seeded shuffle. f must be in (0, 1]; 1 keeps everything.
func WithFraction(f float64, seed int64) Option {
	return func(o *options) {
		o.fraction = f
		o.seed = seed
	}
}

// WithStorageEnvVar overrides the environment variable consulted for the
// storage root. Defaults to GIFT_EVAL.
func WithStorageEnvVar(name string) Option {
	return func(o *options) { o.storageEnvVar = name }
}

// WithStorageDir sets the storage root directly, bypassing the environment.
func WithStorageDir(dir string) Option {
	return func(o *options) { o.storageDir = dir }
}

// WithProperties overrides the path of the dataset properties file used for
// split placement. Defaults to <storage root>/dataset_properties.json.
func WithProperties(path string) Option {
	return func(o *options) { o.propertiesPath = path }
}

// Open loads the named dataset from storage.
//
// The storage root is resolved from WithStorageDir, or from the environment
// variable named by WithStorageEnvVar after loading a .env file if one is
// present. The dataset's split subdirectory is chosen by whether its key
// appears in the properties file.
//
// Parameters:
//   - name: dataset name, optionally with an embedded frequency token
//     ("m4_weekly", "electricity/15T")
//   - opts: functional options
//
// Returns:
//   - *Dataset: the loaded dataset
//   - error: DataError for storage problems, ErrEmptyData for an empty
//     dataset, ValidationError for inconsistent records
//
// Example:
//
//	ds, err := dataset.Open("m4_weekly", dataset.WithTerm(dataset.TermShort))
//	if err != nil {
//	    return err
//	}
//	instances := ds.TestInstances()
func Open(name string, opts ...Option) (ds *Dataset, err error) {
	defer errors.Recover(&err, "dataset.Open")

	o := options{
		term:          TermShort,
		fraction:      1,
		storageEnvVar: DefaultStorageEnvVar,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.fraction <= 0 || o.fraction > 1 {
		return nil, errors.NewValueError("dataset.Open", "fraction must be in (0, 1]")
	}

	logger := log.GetLoggerWithName("dataset").With(log.DatasetKey, name)

	root := o.storageDir
	if root == "" {
		// A .env file in the working directory may supply the variable.
		_ = godotenv.Load()
		root = os.Getenv(o.storageEnvVar)
	}
	if root == "" {
		return nil, errors.NewDataError("dataset.Open", "",
			fmt.Sprintf("storage root not set; export %s or pass WithStorageDir", o.storageEnvVar), nil)
	}

	propsPath := o.propertiesPath
	if propsPath == "" {
		propsPath = filepath.Join(root, PropertiesFileName)
	}
	split := SplitPretrain
	if props, perr := LoadProperties(propsPath); perr == nil && props.Has(name) {
		split = SplitTrainTest
	}

	dir := filepath.Join(root, split, filepath.FromSlash(name))
	if _, serr := os.Stat(dir); serr != nil {
		// Tolerate datasets stored under the other split.
		other := SplitTrainTest
		if split == SplitTrainTest {
			other = SplitPretrain
		}
		otherDir := filepath.Join(root, other, filepath.FromSlash(name))
		if _, oerr := os.Stat(otherDir); oerr == nil {
			logger.Debug("Dataset found under other split",
				log.PathKey, otherDir)
			split, dir = other, otherDir
		} else {
			return nil, errors.NewDataError("dataset.Open", dir, "dataset directory not found", serr)
		}
	}

	entries, fq, err := readShards(dir)
	if err != nil {
		return nil, err
	}

	if o.fraction < 1 {
		entries = sampleEntries(entries, o.fraction, o.seed)
	}

	ds = &Dataset{
		name:   name,
		term:   o.term,
		fq:     fq,
		split:  split,
		dir:    dir,
		logger: logger,
	}
	if err := ds.index(entries); err != nil {
		return nil, err
	}

	logger.Debug("Dataset loaded",
		log.TermKey, string(o.term),
		log.FreqKey, fq.String(),
		log.SeriesKey, ds.NumSeries(),
		log.WindowsKey, ds.Windows(),
	)
	return ds, nil
}

// readShards decodes every *.jsonl shard in dir, in name order, and parses
// the dataset frequency from the first record.
func readShards(dir string) ([]entry, freq.Freq, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, freq.Freq{}, errors.NewDataError("dataset.Open", dir, "cannot read dataset directory", err)
	}

	var shards []string
	for _, de := range dirents {
		if !de.IsDir() && strings.HasSuffix(de.Name(), ".jsonl") {
			shards = append(shards, de.Name())
		}
	}
	sort.Strings(shards)
	if len(shards) == 0 {
		return nil, freq.Freq{}, errors.NewDataError("dataset.Open", dir, "no data shards", errors.ErrEmptyData)
	}

	var (
		entries  []entry
		fq       freq.Freq
		freqSeen string
	)
	for _, shard := range shards {
		path := filepath.Join(dir, shard)
		f, err := os.Open(path)
		if err != nil {
			return nil, freq.Freq{}, errors.NewDataError("dataset.Open", path, "cannot open shard", err)
		}

		dec := json.NewDecoder(f)
		for {
			var rec record
			if err := dec.Decode(&rec); err == io.EOF {
				break
			} else if err != nil {
				f.Close()
				return nil, freq.Freq{}, errors.NewDataError("dataset.Open", path, "malformed record", err)
			}

			if freqSeen == "" && rec.Freq != "" {
				freqSeen = rec.Freq
				if fq, err = freq.Parse(rec.Freq); err != nil {
					f.Close()
					return nil, freq.Freq{}, err
				}
			} else if rec.Freq != "" && rec.Freq != freqSeen {
				f.Close()
				return nil, freq.Freq{}, errors.NewValidationError("freq",
					"mixed frequencies within one dataset", rec.Freq)
			}

			e, err := decodeRecord(rec)
			if err != nil {
				f.Close()
				return nil, freq.Freq{}, errors.NewDataError("dataset.Open", path, "invalid record", err)
			}
			entries = append(entries, e)
		}
		f.Close()
	}

	if len(entries) == 0 {
		return nil, freq.Freq{}, errors.NewDataError("dataset.Open", dir, "no records", errors.ErrEmptyData)
	}
	if freqSeen == "" {
		return nil, freq.Freq{}, errors.NewValidationError("freq", "records carry no frequency", "")
	}
	return entries, fq, nil
}

// sampleEntries keeps ceil(f × N) entries chosen by a seeded shuffle,
// preserving the original order of the survivors.
func sampleEntries(entries []entry, f float64, seed int64) []entry {
	n := len(entries)
	keep := int(math.Ceil(f * float64(n)))
	if keep >= n {
		return entries
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	chosen := perm[:keep]
	sort.Ints(chosen)

	sampled := make([]entry, 0, keep)
	for _, idx := range chosen {
		sampled = append(sampled, entries[idx])
	}
	return sampled
}

// index derives the dataset statistics from the raw entries and expands
// multivariate targets into univariate series.
func (d *Dataset) index(entries []entry) error {
	d.numRecords = len(entries)
	d.targetDim = len(entries[0].target)
	d.pastFeatDim = len(entries[0].pastFeat)

	d.minSeriesLength = math.MaxInt
	for _, e := range entries {
		if n := len(e.target[0]); n < d.minSeriesLength {
			d.minSeriesLength = n
		}
		for _, dim := range e.target {
			d.sumSeriesLength += len(dim)
		}
	}

	base, err := d.basePredLength()
	if err != nil {
		return err
	}
	d.predictionLength = d.term.Multiplier() * base

	if d.isM4() {
		d.windows = 1
	} else {
		w := int(math.Ceil(TestSplit * float64(d.minSeriesLength) / float64(d.predictionLength)))
		d.windows = min(max(1, w), MaxWindows)
	}

	if d.targetDim > 1 {
		d.series = expandMultivariate(entries)
	} else {
		d.series = make([]Series, len(entries))
		for i, e := range entries {
			d.series[i] = Series{ItemID: e.itemID, Start: e.start, Target: e.target[0]}
		}
	}
	return nil
}

// expandMultivariate flattens each multivariate entry into one series per
// target dimension, suffixing the item id with "_dim<i>".
func expandMultivariate(entries []entry) []Series {
	var out []Series
	for _, e := range entries {
		for i, dim := range e.target {
			out = append(out, Series{
				ItemID: fmt.Sprintf("%s_dim%d", e.itemID, i),
				Start:  e.start,
				Target: dim,
			})
		}
	}
	return out
}

func (d *Dataset) isM4() bool {
	return strings.Contains(d.name, "m4")
}

func (d *Dataset) basePredLength() (int, error) {
	unit := d.fq.Short()
	if d.isM4() {
		if n, ok := m4PredLengths[unit]; ok {
			return n, nil
		}
	}
	if n, ok := predLengths[unit]; ok {
		return n, nil
	}
	if unit == freq.Bizday {
		return predLengths[freq.Day], nil
	}
	return 0, errors.NewValueError("dataset.Open",
		"no base prediction length for frequency "+d.fq.String())
}

// Name returns the dataset name as opened.
func (d *Dataset) Name() string { return d.name }

// Term returns the forecast term.
func (d *Dataset) Term() Term { return d.term }

// Freq returns the dataset frequency, parsed from the first record.
func (d *Dataset) Freq() freq.Freq { return d.fq }

// Split returns the storage split the dataset was loaded from.
func (d *Dataset) Split() string { return d.split }

// Key returns the normalized dataset key used in the properties file and
// in result rows.
func (d *Dataset) Key() string { return NormalizeKey(d.name) }

// Config returns the "key/freq/term" row key identifying this evaluation
// configuration.
func (d *Dataset) Config() string {
	return fmt.Sprintf("%s/%s/%s", d.Key(), d.fq, d.term)
}

// TargetDim returns the number of target dimensions of the stored records,
// before univariate expansion.
func (d *Dataset) TargetDim() int { return d.targetDim }

// PastFeatDynamicRealDim returns the number of past dynamic real feature
// dimensions, or 0 when the records carry none.
func (d *Dataset) PastFeatDynamicRealDim() int { return d.pastFeatDim }

// NumSeries returns the number of univariate series after expansion.
func (d *Dataset) NumSeries() int { return len(d.series) }

// MinSeriesLength returns the length of the shortest stored series.
func (d *Dataset) MinSeriesLength() int { return d.minSeriesLength }

// SumSeriesLength returns the total number of observations across all
// series and dimensions.
func (d *Dataset) SumSeriesLength() int { return d.sumSeriesLength }

// PredictionLength returns the forecast horizon: the term multiplier times
// the base horizon of the dataset frequency.
func (d *Dataset) PredictionLength() int { return d.predictionLength }

// Seasonality returns the seasonal period of the dataset frequency.
func (d *Dataset) Seasonality() int { return d.fq.Seasonality() }

// Windows returns the number of rolling test windows: one for m4 datasets,
// otherwise enough windows to cover TestSplit of the shortest series,
// clamped to [1, MaxWindows].
func (d *Dataset) Windows() int { return d.windows }

// Series returns the univariate series of the dataset, in storage order.
// The returned slices share backing arrays with the dataset.
func (d *Dataset) Series() []Series { return d.series }

// TrainingSeries returns each series truncated before the validation and
// test regions: the final PredictionLength × (Windows + 1) observations are
// held out. Series shorter than the holdout yield an empty target.
func (d *Dataset) TrainingSeries() []Series {
	return d.truncated(d.predictionLength * (d.windows + 1))
}

// ValidationSeries returns each series truncated before the test region:
// the final PredictionLength × Windows observations are held out.
func (d *Dataset) ValidationSeries() []Series {
	return d.truncated(d.predictionLength * d.windows)
}

func (d *Dataset) truncated(holdout int) []Series {
	out := make([]Series, len(d.series))
	for i, s := range d.series {
		cut := len(s.Target) - holdout
		if cut < 0 {
			cut = 0
		}
		out[i] = Series{ItemID: s.ItemID, Start: s.Start, Target: s.Target[:cut]}
	}
	return out
}

// TestInstances returns the rolling evaluation windows. For w windows with
// horizon h, window i of a series of length L has context series[:L−h·w+i·h]
// and the next h observations as label. Instances are emitted series-major,
// window-minor.
func (d *Dataset) TestInstances() []Instance {
	h := d.predictionLength
	w := d.windows

	instances := make([]Instance, 0, len(d.series)*w)
	for _, s := range d.series {
		l := len(s.Target)
		for i := 0; i < w; i++ {
			cut := l - h*w + i*h
			if cut < 0 {
				cut = 0
			}
			end := cut + h
			if end > l {
				end = l
			}
			instances = append(instances, Instance{
				Context: Series{ItemID: s.ItemID, Start: s.Start, Target: s.Target[:cut]},
				Label:   s.Target[cut:end],
			})
		}
	}
	return instances
}
