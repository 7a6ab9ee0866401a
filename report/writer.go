package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	gifterrors "github.com/gifteval/gifteval/pkg/errors"
)

type pairKey struct {
	config string
	model  string
}

// Writer appends result rows to <dir>/all_results.csv. The header is
// written when the file is created; an existing file is loaded so
// already-recorded (dataset, model) pairs can be skipped on resume.
// Writer is safe for concurrent use.
type Writer struct {
	path string

	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
	seen map[pairKey]struct{}
}

// NewWriter opens the result file under dir, creating the directory and
// the file with its header as needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, gifterrors.NewDataError("report.NewWriter", dir, "create output directory", err)
	}

	path := filepath.Join(dir, ResultsFileName)
	seen := make(map[pairKey]struct{})

	fresh := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		rows, err := Read(path)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			seen[pairKey{row.Dataset, row.Model}] = struct{}{}
		}
		fresh = false
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, gifterrors.NewDataError("report.NewWriter", path, "open result file", err)
	}

	w := &Writer{path: path, file: f, csv: csv.NewWriter(f), seen: seen}
	if fresh {
		if err := w.csv.Write(Header()); err != nil {
			f.Close()
			return nil, gifterrors.NewDataError("report.NewWriter", path, "write header", err)
		}
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			f.Close()
			return nil, gifterrors.NewDataError("report.NewWriter", path, "write header", err)
		}
	}
	return w, nil
}

// Path returns the result file location.
func (w *Writer) Path() string { return w.path }

// Has reports whether a row for (config, model) is already recorded.
func (w *Writer) Has(config, model string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[pairKey{config, model}]
	return ok
}

// Append writes one row and flushes it to disk, so partially completed
// runs keep everything finished so far. A row whose (dataset, model)
// pair is already recorded is not written again.
func (w *Writer) Append(row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := pairKey{row.Dataset, row.Model}
	if _, ok := w.seen[key]; ok {
		return nil
	}

	if err := w.csv.Write(row.record()); err != nil {
		return gifterrors.NewDataError("report.Append", w.path, "write row", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return gifterrors.NewDataError("report.Append", w.path, "flush row", err)
	}
	w.seen[key] = struct{}{}
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()
	if flushErr != nil {
		return gifterrors.NewDataError("report.Close", w.path, "flush", flushErr)
	}
	if closeErr != nil {
		return gifterrors.NewDataError("report.Close", w.path, "close", closeErr)
	}
	return nil
}
