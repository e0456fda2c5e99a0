package views

import "crashtest-analyzer/models"

// The canonical column layout of every table this tool writes. Column
// names in the data block come from the source file; this is the role
// order they are reindexed into.

// HeadersLabel heads the header section of a bias-corrected CSV.
const HeadersLabel = "Headers"

// CanonicalColumns returns the role names in output order, time first.
func CanonicalColumns() []string {
	cols := []string{"Time"}
	for _, r := range models.Roles() {
		cols = append(cols, r.String())
	}
	return cols
}

// HeaderLabelRow is the first line of a bias-corrected CSV:
// "Headers" followed by one blank cell per channel.
func HeaderLabelRow() []string {
	row := make([]string, models.NumRoles+1)
	row[0] = HeadersLabel
	return row
}
