package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// ChannelReader loads the single-sensor exports consumed by the frame
// sequencer: a few metadata rows, a column header, a units row, then
// time-indexed samples.
type ChannelReader struct {
	skip    map[int]bool
	maxRows int
}

// NewChannelReader builds a reader from the frames config.
func NewChannelReader(cfg utils.FramesConfig) *ChannelReader {
	skip := make(map[int]bool, len(cfg.SkipRows))
	for _, r := range cfg.SkipRows {
		skip[r] = true
	}
	return &ChannelReader{skip: skip, maxRows: cfg.MaxRows}
}

// Read loads path. The first non-skipped line is the column header; at most
// maxRows data rows follow.
func (r *ChannelReader) Read(path string) (*models.ChannelTable, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var kept []string
	var lineNo []int
	for i, l := range lines {
		if r.skip[i] {
			continue
		}
		if len(kept) > 0 && strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
		lineNo = append(lineNo, i+1)
		if r.maxRows > 0 && len(kept) > r.maxRows {
			break
		}
	}
	if len(kept) < 3 {
		return nil, &models.StructuralParseError{Path: path, Reason: "fewer than 2 data rows after the column header"}
	}

	rows, _ := splitBlock(kept, 2)
	header := trimTrailingEmpty(rows[0])
	if len(header) < 2 {
		return nil, &models.StructuralParseError{Path: path, Field: "header", Reason: "need a time column and at least one value column"}
	}

	tbl := &models.ChannelTable{
		Path:    path,
		Columns: make([]string, len(header)-1),
		Values:  make([][]float64, len(header)-1),
	}
	for i, h := range header[1:] {
		tbl.Columns[i] = strings.TrimSpace(h)
	}

	for i, row := range rows[1:] {
		line := lineNo[i+1]
		row = trimTrailingEmpty(row)
		if len(row) < len(header) {
			return nil, &models.StructuralParseError{
				Path:   path,
				Reason: fmt.Sprintf("line %d has %d columns, want %d", line, len(row), len(header)),
			}
		}
		for c := range header {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil {
				return nil, &models.StructuralParseError{
					Path:   path,
					Field:  strings.TrimSpace(header[c]),
					Reason: fmt.Sprintf("line %d: %q is not a number", line, row[c]),
				}
			}
			if c == 0 {
				tbl.Time = append(tbl.Time, v)
			} else {
				tbl.Values[c-1] = append(tbl.Values[c-1], v)
			}
		}
	}

	utils.L().Debug("channel file loaded    (%s, rows=%d, columns=%v)", path, tbl.Len(), tbl.Columns)
	return tbl, nil
}
