package address

import (
	"fmt"
	"strings"
)

// Range is an inclusive rectangle of cells. End is never above or left of Start.
type Range struct {
	Start Cell
	End   Cell
}

// Resolve builds a range from a start reference and an optional end reference.
// The start may also carry the combined "A1:B10" form, in which case end must be
// empty or repeat the second half. An empty end yields a single-cell range.
func Resolve(start, end string) (Range, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)

	if first, second, ok := strings.Cut(start, ":"); ok {
		if end != "" && !strings.EqualFold(end, second) {
			return Range{}, fmt.Errorf("%w: %q conflicts with end cell %q", ErrInvalidAddress, start, end)
		}
		start, end = first, second
	}

	s, err := ParseCell(start)
	if err != nil {
		return Range{}, err
	}
	if end == "" {
		return Range{Start: s, End: s}, nil
	}
	e, err := ParseCell(end)
	if err != nil {
		return Range{}, err
	}
	if e.Col < s.Col || e.Row < s.Row {
		return Range{}, fmt.Errorf("%w: %s:%s", ErrRangeOrder, s, e)
	}
	return Range{Start: s, End: e}, nil
}

// ParseRange parses "A1:B10" or a single "A1".
func ParseRange(ref string) (Range, error) {
	if strings.TrimSpace(ref) == "" {
		return Range{}, fmt.Errorf("%w: empty range", ErrInvalidAddress)
	}
	return Resolve(ref, "")
}

// String returns "A1:B10", or "A1" for a single cell.
func (r Range) String() string {
	if r.Start == r.End {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}

// Rows returns the number of rows spanned.
func (r Range) Rows() int { return r.End.Row - r.Start.Row + 1 }

// Cols returns the number of columns spanned.
func (r Range) Cols() int { return r.End.Col - r.Start.Col + 1 }

// IsSingleCell reports whether the range covers exactly one cell.
func (r Range) IsSingleCell() bool { return r.Start == r.End }

// CheckBounds rejects a range whose start lies beyond a used range of
// maxRow rows and maxCol columns. Sheets never report less than 1x1.
func (r Range) CheckBounds(maxRow, maxCol int) error {
	maxRow = max(maxRow, 1)
	maxCol = max(maxCol, 1)
	if r.Start.Row > maxRow || r.Start.Col > maxCol {
		last, _ := ColumnName(maxCol)
		return fmt.Errorf("%w: %s starts outside the used range A1:%s%d", ErrOutOfBounds, r.Start, last, maxRow)
	}
	return nil
}
