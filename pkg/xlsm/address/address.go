// Package address parses A1-style cell references and resolves cell ranges.
package address

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidAddress indicates a string that is not a plain A1-style reference.
var ErrInvalidAddress = errors.New("invalid cell address")

// ErrRangeOrder indicates a range whose end lies above or left of its start.
var ErrRangeOrder = errors.New("range end precedes range start")

// ErrOutOfBounds indicates a range starting outside the sheet's used range.
var ErrOutOfBounds = errors.New("range out of bounds")

// maxColumnLetters is the length of the last column name, XFD.
const maxColumnLetters = 3

// cellRe matches a relative cell reference like a1, B7, XFD1048576.
var cellRe = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// Cell is a 1-based cell coordinate.
type Cell struct {
	Row int
	Col int
}

// String returns the canonical A1 form of the cell.
func (c Cell) String() string {
	name, err := ColumnName(c.Col)
	if err != nil {
		return ""
	}
	return name + strconv.Itoa(c.Row)
}

// ParseCell parses a reference such as "BC204". Letters are case-insensitive;
// absolute markers and sheet qualifiers are rejected.
func ParseCell(ref string) (Cell, error) {
	m := cellRe.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ref)
	}
	col, err := ColumnIndex(m[1])
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ref)
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 || row > excelize.TotalRows {
		return Cell{}, fmt.Errorf("%w: row out of range in %q", ErrInvalidAddress, ref)
	}
	return Cell{Row: row, Col: col}, nil
}

// ColumnIndex converts column letters to a 1-based index (A=1, Z=26, AA=27).
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidAddress)
	}
	if len(letters) > maxColumnLetters {
		return 0, fmt.Errorf("%w: column %q beyond XFD", ErrInvalidAddress, letters)
	}
	col, err := excelize.ColumnNameToNumber(letters)
	if errors.Is(err, excelize.ErrColumnNumber) {
		return 0, fmt.Errorf("%w: column %q beyond XFD", ErrInvalidAddress, letters)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: column %q", ErrInvalidAddress, letters)
	}
	return col, nil
}

// ColumnName converts a 1-based column index to its letters.
func ColumnName(col int) (string, error) {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "", fmt.Errorf("%w: column index %d", ErrInvalidAddress, col)
	}
	return name, nil
}

// ColumnLabel returns the synthesized record key for a column, e.g. "Column_C".
func ColumnLabel(col int) string {
	name, err := ColumnName(col)
	if err != nil {
		return "Column_" + strconv.Itoa(col)
	}
	return "Column_" + name
}
