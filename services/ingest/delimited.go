package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"crashtest-analyzer/models"
)

// readLines loads a whole export into memory, one string per physical line.
// Inputs are bounded files so there is no streaming path.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.IOError{Path: path, Op: "read", Err: err}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// splitLine splits one line on sep, honouring double quotes.
func splitLine(line string, sep rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rec, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		// Unbalanced quoting: fall back to a plain split.
		return strings.Split(line, string(sep))
	}
	return rec
}

// splitBlock splits lines on a comma, or on a tab when the comma split never
// reaches minCols columns.
func splitBlock(lines []string, minCols int) ([][]string, rune) {
	for _, sep := range []rune{',', '\t'} {
		rows := make([][]string, len(lines))
		width := 0
		for i, l := range lines {
			rows[i] = splitLine(l, sep)
			if len(rows[i]) > width {
				width = len(rows[i])
			}
		}
		if width >= minCols || sep == '\t' {
			return rows, sep
		}
	}
	return nil, ','
}

// trimTrailingEmpty drops blank cells at the end of a row, which is how a
// stray trailing separator shows up.
func trimTrailingEmpty(row []string) []string {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return row[:n]
}

// cell returns the trimmed cell at (row, col), or false when absent or blank.
func cell(rows [][]string, row, col int) (string, bool) {
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		return "", false
	}
	v := strings.TrimSpace(rows[row][col])
	return v, v != ""
}

func sepName(sep rune) string {
	if sep == '\t' {
		return "tab"
	}
	return "comma"
}
