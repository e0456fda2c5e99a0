package views

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crashtest-analyzer/models"
)

// CSVWriter is a concurrency-safe, buffered CSV writer.
//
// Row encode errors are buffered by encoding/csv and surface from Flush or
// Close, so the per-row path stays cheap.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64
}

// NewCSVWriter creates (or truncates) a file and optionally writes a header
// row.
func NewCSVWriter(path string, bufSizeBytes int, writeHeader bool, header []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &models.IOError{Path: path, Op: "create", Err: err}
	}

	if bufSizeBytes <= 0 {
		bufSizeBytes = 256 * 1024 // 256 KB default
	}

	bw := bufio.NewWriterSize(f, bufSizeBytes)
	cw := csv.NewWriter(bw)

	w := &CSVWriter{
		path: path,
		file: f,
		buf:  bw,
		csv:  cw,
	}

	if writeHeader && len(header) > 0 {
		if err := cw.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv write header: %w", err)
		}
	}

	return w, nil
}

// WriteMeta appends a row that is not counted as data.
func (w *CSVWriter) WriteMeta(row []string) {
	w.mu.Lock()
	_ = w.csv.Write(row)
	w.mu.Unlock()
}

// WriteRow appends a single data row. Thread-safe.
func (w *CSVWriter) WriteRow(row []string) {
	w.mu.Lock()
	_ = w.csv.Write(row) // error is buffered; checked on Flush
	w.rows++
	w.mu.Unlock()
}

// Flush pushes the buffered data to the OS.
func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return &models.IOError{Path: w.path, Op: "write", Err: err}
	}
	if err := w.buf.Flush(); err != nil {
		return &models.IOError{Path: w.path, Op: "write", Err: err}
	}
	return nil
}

// Close flushes remaining data and closes the file.
func (w *CSVWriter) Close() error {
	ferr := w.Flush()
	w.mu.Lock()
	cerr := w.file.Close()
	w.mu.Unlock()
	if ferr != nil {
		return ferr
	}
	if cerr != nil {
		return &models.IOError{Path: w.path, Op: "close", Err: cerr}
	}
	return nil
}

// Rows returns the number of data rows written (excludes header and meta).
func (w *CSVWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// ─── bias-corrected export ──────────────────────────────────────────────

// BiasOutputPath is <dir>/<basename without extension><suffix>.csv.
func BiasOutputPath(input, suffix string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), base+suffix+".csv")
}

// WriteTable writes the "Headers" label row, the reordered header block,
// the data column header and every data row of t to path, replacing any
// existing file. prec < 0 keeps the shortest exact float representation.
func WriteTable(path string, header [][]string, t models.CSVTable, prec int) (uint64, error) {
	w, err := NewCSVWriter(path, 0, true, HeaderLabelRow())
	if err != nil {
		return 0, err
	}
	for _, row := range header {
		w.WriteMeta(row)
	}
	w.WriteMeta(columnNames(t.CSVHeader()))
	for i := 0; i < t.Len(); i++ {
		w.WriteRow(t.CSVRow(i, prec))
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Rows(), nil
}

// columnNames fills blank data-header cells with the canonical role name.
func columnNames(cols []string) []string {
	canon := CanonicalColumns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c
		if strings.TrimSpace(c) == "" && i < len(canon) {
			out[i] = canon[i]
		}
	}
	return out
}

// WriteBiasCorrected exports a corrected recording.
func WriteBiasCorrected(path string, rec *models.Recording, prec int) (uint64, error) {
	return WriteTable(path, rec.HeaderRows, rec, prec)
}
