package xlsm

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/xuri/excelize/v2"
)

// newWorkbook saves a workbook with the given Sheet1 cells and returns its path.
func newWorkbook(t *testing.T, name string, cells map[string]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range cells {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatalf("SetCellValue(%s) failed: %v", cell, err)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
	return path
}

// record builds a record from alternating keys and values.
func record(kv ...interface{}) models.Record {
	r := models.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func openFile(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellValue(%s!%s) failed: %v", sheet, cell, err)
	}
	return v
}

func expectCategory(t *testing.T, err error, category Category, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", category)
	}
	if got := CategoryOf(err); got != category {
		t.Errorf("Expected category %s, got %s (%v)", category, got, err)
	}
	if target != nil && !errors.Is(err, target) {
		t.Errorf("Expected error wrapping %v, got %v", target, err)
	}
}
