package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// RecordingReader resolves a 7-channel data-acquisition export into a
// canonical Recording.
//
// The header block is read against a declared schema: named cells for the
// test ID and sample rate, and a channel-description row whose cells are
// matched against role keywords. The source channel order does not matter.
type RecordingReader struct {
	cfg utils.RecordingConfig
}

// NewRecordingReader builds a reader for the given header schema.
func NewRecordingReader(cfg utils.RecordingConfig) *RecordingReader {
	return &RecordingReader{cfg: cfg}
}

// Read loads and resolves the export at path.
func (r *RecordingReader) Read(path string) (*models.Recording, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return r.Parse(path, lines)
}

// Parse resolves an export already split into lines. path is used for error
// reporting only.
func (r *RecordingReader) Parse(path string, lines []string) (*models.Recording, error) {
	cfg := r.cfg
	if len(lines) <= cfg.DataHeaderRow+1 {
		return nil, &models.StructuralParseError{
			Path:   path,
			Reason: fmt.Sprintf("file has %d lines, data block starts at line %d", len(lines), cfg.DataHeaderRow+2),
		}
	}

	// ─── header block ───────────────────────────────────────────────
	prefix := lines
	if len(prefix) > cfg.PrefixRows {
		prefix = prefix[:cfg.PrefixRows]
	}
	head, hsep := splitBlock(prefix, cfg.MinColumns)

	testID, ok := cell(head, cfg.TestID.Row, cfg.TestID.Col)
	if !ok {
		return nil, &models.StructuralParseError{Path: path, Field: "test_id", Reason: "cell is missing"}
	}
	rateCell, ok := cell(head, cfg.SampleRate.Row, cfg.SampleRate.Col)
	if !ok {
		return nil, &models.StructuralParseError{Path: path, Field: "sample_rate", Reason: "cell is missing"}
	}
	rate, err := parseSampleRate(rateCell)
	if err != nil {
		return nil, &models.StructuralParseError{Path: path, Field: "sample_rate", Reason: err.Error()}
	}

	if cfg.ChannelRow >= len(head) {
		return nil, &models.StructuralParseError{Path: path, Field: "channels", Reason: "channel row is missing"}
	}
	// Short rows are mapped as far as they go; mapChannels names the roles
	// left unclaimed.
	desc := trimTrailingEmpty(head[cfg.ChannelRow])
	if len(desc) > models.NumRoles+1 {
		return nil, &models.StructuralParseError{
			Path:   path,
			Field:  "channels",
			Reason: fmt.Sprintf("want %d channel descriptions, got %d", models.NumRoles, len(desc)-1),
		}
	}
	var sources []string
	if len(desc) > 1 {
		sources = desc[1:]
	}
	mapping, err := r.mapChannels(path, sources)
	if err != nil {
		return nil, err
	}

	rec := &models.Recording{
		Path:       path,
		TestID:     testID,
		SampleRate: rate,
		Mapping:    mapping,
	}
	for _, role := range models.Roles() {
		rec.Descriptions[role] = strings.TrimSpace(desc[1+mapping[role]])
	}
	for i := 1; i < cfg.HeaderRows && i < len(head); i++ {
		rec.HeaderRows = append(rec.HeaderRows, reorder(head[i], mapping))
	}

	// ─── data block ─────────────────────────────────────────────────
	block, dsep := splitBlock(lines[cfg.DataHeaderRow:], cfg.MinColumns)
	cols := trimTrailingEmpty(block[0])
	if len(cols) != models.NumRoles+1 {
		return nil, &models.StructuralParseError{
			Path:   path,
			Field:  "data",
			Reason: fmt.Sprintf("data header has %d columns, want %d", len(cols), models.NumRoles+1),
		}
	}
	rec.ColumnNames = reorder(cols, mapping)

	var raw [models.NumRoles + 1][]float64
	for i, row := range block[1:] {
		line := cfg.DataHeaderRow + 2 + i
		row = trimTrailingEmpty(row)
		if len(row) == 0 {
			continue
		}
		if len(row) != models.NumRoles+1 {
			return nil, &models.StructuralParseError{
				Path:   path,
				Field:  "data",
				Reason: fmt.Sprintf("line %d has %d columns, want %d", line, len(row), models.NumRoles+1),
			}
		}
		for c, s := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, &models.StructuralParseError{
					Path:   path,
					Field:  cols[c],
					Reason: fmt.Sprintf("line %d: %q is not a number", line, s),
				}
			}
			raw[c] = append(raw[c], v)
		}
	}
	if len(raw[0]) < 2 {
		return nil, &models.StructuralParseError{Path: path, Field: "data", Reason: "fewer than 2 data rows"}
	}
	for i := 1; i < len(raw[0]); i++ {
		if raw[0][i] < raw[0][i-1] {
			return nil, &models.StructuralParseError{
				Path:   path,
				Field:  cols[0],
				Reason: fmt.Sprintf("time decreases at data row %d", i+1),
			}
		}
	}

	rec.Time = raw[0]
	for _, role := range models.Roles() {
		rec.Channels[role] = raw[1+mapping[role]]
	}

	utils.L().Info("recording resolved     (test=%s, rate=%dHz, rows=%d, header=%s, data=%s, order=%v)",
		rec.TestID, rec.SampleRate, rec.Len(), sepName(hsep), sepName(dsep), mapping.SourceOrder())
	return rec, nil
}

// mapChannels assigns each source column the first role (in keyword order)
// whose keyword its description contains. Every role must be claimed by
// exactly one column.
func (r *RecordingReader) mapChannels(path string, desc []string) (models.ChannelMap, error) {
	var m models.ChannelMap
	var hits [models.NumRoles][]int

	for src, d := range desc {
		for k, kw := range r.cfg.Keywords {
			if strings.Contains(d, kw) {
				hits[k] = append(hits[k], src)
				break
			}
		}
	}

	var merr models.ChannelMappingError
	for _, role := range models.Roles() {
		switch len(hits[role]) {
		case 0:
			merr.Missing = append(merr.Missing, role)
		case 1:
			m[role] = hits[role][0]
		default:
			merr.Duplicate = append(merr.Duplicate, role)
		}
	}
	if len(merr.Missing) > 0 || len(merr.Duplicate) > 0 {
		merr.Path = path
		utils.L().Warn("channel mapping failed (%s): descriptions=%q", merr.Error(), desc)
		return m, &merr
	}
	return m, nil
}

// reorder returns [row[0], row[1+m[role]]...] in canonical role order,
// padding absent cells with "".
func reorder(row []string, m models.ChannelMap) []string {
	out := make([]string, 0, models.NumRoles+1)
	at := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	out = append(out, at(0))
	for _, role := range models.Roles() {
		out = append(out, at(1+m[role]))
	}
	return out
}

func parseSampleRate(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("sample rate %d is not positive", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer sample rate", s)
	}
	if f <= 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("sample rate %g is out of range", f)
	}
	return int(f), nil
}
