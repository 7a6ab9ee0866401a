package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

// Read parses a result file into rows. The header must match the fixed
// column set.
func Read(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gifterrors.NewDataError("report.Read", path, "open result file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header())
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, gifterrors.NewDataError("report.Read", path, "read header", err)
	}
	for i, want := range Header() {
		if header[i] != want {
			return nil, gifterrors.NewDataError("report.Read", path,
				"unexpected header column "+header[i], nil)
		}
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, gifterrors.NewDataError("report.Read", path, "read row", err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, gifterrors.Wrap(err, "gifteval: report.Read: "+path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Merge concatenates result files into dst, keeping the first row seen
// for each (dataset, model) pair. It returns the number of rows written.
func Merge(dst string, srcs ...string) (int, error) {
	if len(srcs) == 0 {
		return 0, gifterrors.NewValueError("report.Merge", "no source files")
	}

	seen := make(map[pairKey]struct{})
	var merged []Row
	for _, src := range srcs {
		rows, err := Read(src)
		if err != nil {
			return 0, err
		}
		for _, row := range rows {
			key := pairKey{row.Dataset, row.Model}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, row)
		}
	}

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, gifterrors.NewDataError("report.Merge", dst, "create output directory", err)
		}
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, gifterrors.NewDataError("report.Merge", dst, "create merged file", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		f.Close()
		return 0, gifterrors.NewDataError("report.Merge", dst, "write header", err)
	}
	for _, row := range merged {
		if err := w.Write(row.record()); err != nil {
			f.Close()
			return 0, gifterrors.NewDataError("report.Merge", dst, "write row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return 0, gifterrors.NewDataError("report.Merge", dst, "flush", err)
	}
	if err := f.Close(); err != nil {
		return 0, gifterrors.NewDataError("report.Merge", dst, "close", err)
	}
	return len(merged), nil
}
