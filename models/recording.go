package models

// Recording is a resolved crash-test export: metadata from the header block
// plus the data block reordered into canonical channel order
// [Time, Speed, LongAccel, LatAccel, VertAccel, Roll, Pitch, Yaw].
//
// A Recording is never mutated after the reader builds it; derived tables
// (bias-corrected copies, resampled speed) are new values.
type Recording struct {
	Path       string
	TestID     string
	SampleRate int

	// Descriptions holds the channel-description cells in canonical order.
	Descriptions [NumRoles]string
	// Mapping records where each canonical role came from in the source.
	Mapping ChannelMap

	// HeaderRows is the header block, each row reordered to
	// [label, role columns...].
	HeaderRows [][]string
	// ColumnNames is the data-block column header in canonical order.
	ColumnNames []string

	Time     []float64
	Channels [NumRoles][]float64
}

// Len returns the number of data rows.
func (r *Recording) Len() int { return len(r.Time) }

// Series returns the time series of one role.
func (r *Recording) Series(role Role) TimeSeries {
	return TimeSeries{Time: r.Time, Value: r.Channels[role]}
}

// WithChannels returns a shallow copy of the recording carrying replacement
// channel data. Replaced slices must have the recording's length.
func (r *Recording) WithChannels(ch [NumRoles][]float64) *Recording {
	cp := *r
	cp.Channels = ch
	return &cp
}
