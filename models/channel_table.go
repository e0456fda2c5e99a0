package models

import "fmt"

// ChannelTable is one frame-sequence input file: a time column followed by
// one or more named value columns.
type ChannelTable struct {
	Path    string
	Columns []string // value column names, time excluded
	Time    []float64
	Values  [][]float64
}

// Len returns the number of data rows.
func (c *ChannelTable) Len() int { return len(c.Time) }

// Column returns the series of the named column.
func (c *ChannelTable) Column(name string) (TimeSeries, error) {
	for i, n := range c.Columns {
		if n == name {
			return TimeSeries{Time: c.Time, Value: c.Values[i]}, nil
		}
	}
	return TimeSeries{}, &StructuralParseError{
		Path:   c.Path,
		Field:  name,
		Reason: fmt.Sprintf("column not found (have %v)", c.Columns),
	}
}

// First returns the first value column.
func (c *ChannelTable) First() (TimeSeries, error) {
	if len(c.Columns) == 0 {
		return TimeSeries{}, &StructuralParseError{Path: c.Path, Reason: "no value columns"}
	}
	return TimeSeries{Time: c.Time, Value: c.Values[0]}, nil
}
