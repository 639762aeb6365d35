package address

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		input   string
		row     int
		col     int
		wantErr bool
	}{
		{"A1", 1, 1, false},
		{"b7", 7, 2, false},
		{"BC204", 204, 55, false},
		{"XFD1048576", 1048576, 16384, false},
		{"AA10", 10, 27, false},
		{"A0", 0, 0, true},
		{"$A$1", 0, 0, true},
		{"Sheet2!A1", 0, 0, true},
		{"1A", 0, 0, true},
		{"A", 0, 0, true},
		{"", 0, 0, true},
		{"XFE1", 0, 0, true},
		{"A1048577", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cell, err := ParseCell(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("Expected ErrInvalidAddress for %q, got %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			if cell.Row != tt.row || cell.Col != tt.col {
				t.Errorf("ParseCell(%q) = (%d, %d), expected (%d, %d)", tt.input, cell.Row, cell.Col, tt.row, tt.col)
			}
		})
	}
}

func TestColumnRoundTrip(t *testing.T) {
	for _, letters := range []string{"A", "z", "AA", "az", "Zz", "ABC", "xfd", "BC"} {
		idx, err := ColumnIndex(letters)
		if err != nil {
			t.Fatalf("ColumnIndex(%q) failed: %v", letters, err)
		}
		back, err := ColumnName(idx)
		if err != nil {
			t.Fatalf("ColumnName(%d) failed: %v", idx, err)
		}
		if back != strings.ToUpper(letters) {
			t.Errorf("Expected %q, got %q", strings.ToUpper(letters), back)
		}
	}

	for col := 1; col <= 1000; col++ {
		name, err := ColumnName(col)
		if err != nil {
			t.Fatalf("ColumnName(%d) failed: %v", col, err)
		}
		idx, err := ColumnIndex(name)
		if err != nil || idx != col {
			t.Fatalf("ColumnIndex(%q) = %d, %v, expected %d", name, idx, err, col)
		}
	}
}

func TestColumnIndex_Invalid(t *testing.T) {
	for _, letters := range []string{"", "XFE", "ZZZZZZZZZZZZZZZ", "A1", "$A", "Ä"} {
		if _, err := ColumnIndex(letters); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ColumnIndex(%q): expected ErrInvalidAddress, got %v", letters, err)
		}
	}
	if _, err := ColumnName(excelize.MaxColumns + 1); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress past XFD, got %v", err)
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{702, "ZZ"},
		{703, "AAA"},
		{16384, "XFD"},
	}
	for _, tt := range tests {
		if got, _ := ColumnName(tt.col); got != tt.want {
			t.Errorf("ColumnName(%d) = %q, expected %q", tt.col, got, tt.want)
		}
	}
	if _, err := ColumnName(0); err == nil {
		t.Error("Expected error for column 0")
	}
}

func TestColumnLabel(t *testing.T) {
	if got := ColumnLabel(3); got != "Column_C" {
		t.Errorf("Expected Column_C, got %q", got)
	}
}

func TestCellString(t *testing.T) {
	if got := (Cell{Row: 204, Col: 55}).String(); got != "BC204" {
		t.Errorf("Expected BC204, got %q", got)
	}
}
