package models

// SheetInfo summarizes one worksheet.
type SheetInfo struct {
	// Name is the sheet name.
	Name string `json:"name"`
	// UsedRange is the bounding box of non-empty cells, e.g. "A1:D10".
	UsedRange string `json:"used_range,omitempty"`
	// MaxRow is the last row holding content.
	MaxRow int `json:"max_row"`
	// MaxColumn is the last column holding content.
	MaxColumn int `json:"max_column"`
	// TableCandidates contains cell ranges likely representing tables.
	TableCandidates []string `json:"table_candidates,omitempty"`
	// PrintAreas contains user-defined print areas.
	PrintAreas []PrintArea `json:"print_areas,omitempty"`
	// MergedRanges lists merged cell ranges.
	MergedRanges []string `json:"merged_ranges,omitempty"`
}
