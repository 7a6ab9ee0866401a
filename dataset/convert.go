package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gifteval/gifteval/freq"
	"github.com/gifteval/gifteval/pkg/errors"
)

// DefaultShardSize is the number of series per JSONL shard written by Write.
const DefaultShardSize = 1024

// Meta is the metadata.json sidecar written next to the shards. The loader
// treats the shards as the source of truth; the sidecar exists for cheap
// dataset listings.
type Meta struct {
	Freq                   string `json:"freq"`
	TargetDim              int    `json:"target_dim"`
	PastFeatDynamicRealDim int    `json:"past_feat_dynamic_real_dim"`
	NumSeries              int    `json:"num_series"`
}

// ReadMeta reads the metadata sidecar of a dataset directory.
func ReadMeta(dir string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return Meta{}, errors.NewDataError("ReadMeta", dir, "cannot read metadata", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, errors.NewDataError("ReadMeta", dir, "cannot parse metadata", err)
	}
	return m, nil
}

// Write stores univariate series as a dataset directory: sharded JSONL
// records plus a metadata.json sidecar. The directory is created if needed.
//
// Parameters:
//   - dir: target dataset directory, e.g. "<root>/train_test/my_dataset"
//   - series: the series to store
//   - freqStr: frequency string stamped on every record
//   - shardSize: series per shard; 0 uses DefaultShardSize
//
// Returns:
//   - error: ValueError for an unparseable frequency or empty input,
//     DataError for filesystem failures
func Write(dir string, series []Series, freqStr string, shardSize int) error {
	if len(series) == 0 {
		return errors.NewValueError("dataset.Write", "no series to write")
	}
	if _, err := freq.Parse(freqStr); err != nil {
		return err
	}
	if shardSize <= 0 {
		shardSize = DefaultShardSize
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewDataError("dataset.Write", dir, "cannot create dataset directory", err)
	}

	for shard := 0; shard*shardSize < len(series); shard++ {
		lo := shard * shardSize
		hi := min(lo+shardSize, len(series))
		path := filepath.Join(dir, fmt.Sprintf("data-%05d.jsonl", shard))
		if err := writeShard(path, series[lo:hi], freqStr); err != nil {
			return err
		}
	}

	meta := Meta{
		Freq:      freqStr,
		TargetDim: 1,
		NumSeries: len(series),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.NewDataError("dataset.Write", dir, "cannot encode metadata", err)
	}
	metaPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metaPath, append(data, '\n'), 0o644); err != nil {
		return errors.NewDataError("dataset.Write", metaPath, "cannot write metadata", err)
	}
	return nil
}

func writeShard(path string, series []Series, freqStr string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewDataError("dataset.Write", path, "cannot create shard", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, s := range series {
		rec, err := encodeRecord(entry{
			itemID: s.ItemID,
			start:  s.Start,
			target: [][]float64{s.Target},
		}, freqStr)
		if err != nil {
			f.Close()
			return errors.NewDataError("dataset.Write", path, "cannot encode record", err)
		}
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return errors.NewDataError("dataset.Write", path, "cannot write record", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.NewDataError("dataset.Write", path, "cannot flush shard", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewDataError("dataset.Write", path, "cannot close shard", err)
	}
	return nil
}

// FromCSV reads long-format CSV rows (item_id, timestamp, value) into
// series. Rows must be grouped by item and time-ordered within each item;
// the first row of each item supplies its start timestamp. Empty values,
// "NaN", and "null" decode to NaN.
//
// A header row is detected by a non-parseable timestamp in the second
// column and skipped.
//
// Parameters:
//   - r: CSV input
//
// Returns:
//   - []Series: the decoded series in first-seen item order
//   - error: DataError for malformed rows
func FromCSV(r io.Reader) ([]Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.ReuseRecord = true

	var (
		out     []Series
		current *Series
		lineNo  int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataError("dataset.FromCSV", "", "malformed CSV row", err)
		}
		lineNo++

		item := row[0]
		ts, terr := parseStart(row[1])
		if terr != nil {
			if lineNo == 1 {
				// Header row.
				continue
			}
			return nil, errors.NewDataError("dataset.FromCSV", "",
				fmt.Sprintf("row %d: bad timestamp %q", lineNo, row[1]), nil)
		}

		value := math.NaN()
		if raw := row[2]; raw != "" && raw != "NaN" && raw != "nan" && raw != "null" {
			v, verr := strconv.ParseFloat(raw, 64)
			if verr != nil {
				return nil, errors.NewDataError("dataset.FromCSV", "",
					fmt.Sprintf("row %d: bad value %q", lineNo, raw), verr)
			}
			value = v
		}

		if current == nil || current.ItemID != item {
			out = append(out, Series{ItemID: item, Start: ts})
			current = &out[len(out)-1]
		}
		current.Target = append(current.Target, value)
	}

	if len(out) == 0 {
		return nil, errors.NewDataError("dataset.FromCSV", "", "no rows", errors.ErrEmptyData)
	}
	return out, nil
}

// ListNames walks a split directory under the storage root and returns the
// dataset names found there, using the presence of JSONL shards to
// recognize dataset directories. Names embed frequency tokens the same way
// they were stored ("electricity/15T").
func ListNames(root, split string) ([]string, error) {
	base := filepath.Join(root, split)
	var names []string

	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		rel, rerr := filepath.Rel(base, filepath.Dir(path))
		if rerr != nil {
			return rerr
		}
		name := filepath.ToSlash(rel)
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewDataError("dataset.ListNames", base, "cannot walk split directory", err)
	}

	sort.Strings(names)
	names = slices.Compact(names)
	return names, nil
}
