package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Bounds is the 1-based bounding box of a sheet's non-empty cells.
// A sheet without content has zero bounds.
type Bounds struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Empty reports whether the sheet had no content.
func (b Bounds) Empty() bool {
	return b.MaxRow == 0
}

// String returns the bounds as a range like "A1:D10", or "" when empty.
func (b Bounds) String() string {
	if b.Empty() {
		return ""
	}
	startCell, _ := excelize.CoordinatesToCellName(b.MinCol, b.MinRow)
	endCell, _ := excelize.CoordinatesToCellName(b.MaxCol, b.MaxRow)
	return fmt.Sprintf("%s:%s", startCell, endCell)
}

// Area is the number of cells inside the bounds.
func (b Bounds) Area() int {
	if b.Empty() {
		return 0
	}
	return (b.MaxRow - b.MinRow + 1) * (b.MaxCol - b.MinCol + 1)
}

// include grows the bounds to cover the 1-based cell (row, col).
func (b *Bounds) include(row, col int) {
	if b.Empty() {
		*b = Bounds{MinRow: row, MaxRow: row, MinCol: col, MaxCol: col}
		return
	}
	b.MinRow = min(b.MinRow, row)
	b.MaxRow = max(b.MaxRow, row)
	b.MinCol = min(b.MinCol, col)
	b.MaxCol = max(b.MaxCol, col)
}

// occupancy is the content footprint of a sheet.
type occupancy struct {
	bounds Bounds
	filled int
}

// density is the share of cells inside the bounds that hold a value.
func (o occupancy) density() float64 {
	if o.filled == 0 {
		return 0
	}
	return float64(o.filled) / float64(o.bounds.Area())
}

// scanSheet reads the raw cell values of sheetName once and records where
// values sit. Every filled cell lies inside the bounds, so filled also counts
// the cells of the box.
func scanSheet(f *excelize.File, sheetName string) (occupancy, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return occupancy{}, err
	}
	var occ occupancy
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			occ.bounds.include(r+1, c+1)
			occ.filled++
		}
	}
	return occ, nil
}

// UsedRange returns the bounding box of non-empty cells in a sheet.
func UsedRange(f *excelize.File, sheetName string) (Bounds, error) {
	occ, err := scanSheet(f, sheetName)
	if err != nil {
		return Bounds{}, err
	}
	return occ.bounds, nil
}

// TableDetectionParams tunes DetectTables.
type TableDetectionParams struct {
	// DensityMin is the lowest filled share of the used range that still
	// counts as a table.
	DensityMin float64
	// MinNonemptyCells is the lowest number of values a table holds.
	MinNonemptyCells int
}

// DefaultTableParams returns the thresholds used by sheet summaries.
func DefaultTableParams() TableDetectionParams {
	return TableDetectionParams{
		DensityMin:       0.04,
		MinNonemptyCells: 3,
	}
}

// DetectTables reports the used range of sheetName as a table candidate when
// it holds enough values densely enough. The result has at most one range.
func DetectTables(f *excelize.File, sheetName string, params TableDetectionParams) ([]string, error) {
	occ, err := scanSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	switch {
	case occ.bounds.Empty(),
		occ.filled < params.MinNonemptyCells,
		occ.density() < params.DensityMin:
		return nil, nil
	}
	return []string{occ.bounds.String()}, nil
}
