package models

import (
	"strconv"
)

// ─── shared formatting helpers (package-private) ────────────────────────

func ftoa(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func itoa(v int) string { return strconv.Itoa(v) }

// optf renders an optional value, empty when absent.
func optf(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return ftoa(*v, prec)
}

// CSVTable is the interface every exportable table must satisfy.
type CSVTable interface {
	CSVHeader() []string
	Len() int
	CSVRow(i int, prec int) []string
}

// CSVHeader returns the canonical data-block column names.
func (r *Recording) CSVHeader() []string {
	return r.ColumnNames
}

// CSVRow serialises data row i in canonical order. prec < 0 keeps the
// shortest exact representation.
func (r *Recording) CSVRow(i int, prec int) []string {
	row := make([]string, 0, NumRoles+1)
	row = append(row, ftoa(r.Time[i], prec))
	for _, ch := range r.Channels {
		row = append(row, ftoa(ch[i], prec))
	}
	return row
}
