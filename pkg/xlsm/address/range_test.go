package address

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		want    string
		wantErr error
	}{
		{"single", "B2", "", "B2", nil},
		{"pair", "A1", "C10", "A1:C10", nil},
		{"combined", "a1:c10", "", "A1:C10", nil},
		{"combined with matching end", "A1:C10", "c10", "A1:C10", nil},
		{"same cell", "D4", "D4", "D4", nil},
		{"end left of start", "C1", "A5", "", ErrRangeOrder},
		{"end above start", "A5", "C1", "", ErrRangeOrder},
		{"reversed combined", "B2:A1", "", "", ErrRangeOrder},
		{"combined conflicts with end", "A1:B2", "C3", "", ErrInvalidAddress},
		{"bad start", "1A", "", "", ErrInvalidAddress},
		{"bad end", "A1", "B", "", ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.String() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, r.String())
			}
		})
	}
}

func TestResolveRejectsEveryReversedPair(t *testing.T) {
	for sr := 1; sr <= 4; sr++ {
		for sc := 1; sc <= 4; sc++ {
			for er := 1; er <= 4; er++ {
				for ec := 1; ec <= 4; ec++ {
					start := Cell{Row: sr, Col: sc}.String()
					end := Cell{Row: er, Col: ec}.String()
					_, err := Resolve(start, end)
					reversed := ec < sc || er < sr
					if reversed && !errors.Is(err, ErrRangeOrder) {
						t.Errorf("Resolve(%s, %s): expected ErrRangeOrder, got %v", start, end, err)
					}
					if !reversed && err != nil {
						t.Errorf("Resolve(%s, %s): unexpected error %v", start, end, err)
					}
				}
			}
		}
	}
}

func TestRangeDimensions(t *testing.T) {
	r, err := ParseRange("B2:D7")
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if r.Rows() != 6 || r.Cols() != 3 {
		t.Errorf("Expected 6x3, got %dx%d", r.Rows(), r.Cols())
	}
	if r.IsSingleCell() {
		t.Error("Expected a multi-cell range")
	}
	if _, err := ParseRange(""); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress for empty range, got %v", err)
	}
}

func TestCheckBounds(t *testing.T) {
	r, _ := Resolve("C3", "")
	if err := r.CheckBounds(5, 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := r.CheckBounds(2, 5); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds for row, got %v", err)
	}
	if err := r.CheckBounds(5, 2); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds for column, got %v", err)
	}

	a1, _ := Resolve("A1", "")
	if err := a1.CheckBounds(0, 0); err != nil {
		t.Errorf("Expected A1 to be in bounds on an empty sheet, got %v", err)
	}
}
