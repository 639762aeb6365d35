package parser

import (
	"archive/zip"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/beevik/etree"
	"github.com/xuri/excelize/v2"
)

const ruledSheet = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
	`<sheetData/>` +
	`<conditionalFormatting sqref="A1:A5"><cfRule type="expression" priority="1"><formula>TRUE</formula></cfRule></conditionalFormatting>` +
	`<conditionalFormatting sqref="B1:B5"><cfRule type="expression" priority="2"><formula>TRUE</formula></cfRule>` +
	`<cfRule type="expression" priority="3"><formula>FALSE</formula></cfRule></conditionalFormatting>` +
	`<conditionalFormatting sqref="C1"><cfRule type="expression" priority="4"><formula>TRUE</formula></cfRule></conditionalFormatting>` +
	`</worksheet>`

// priorities lists the cfRule priorities of a worksheet in document order.
func priorities(t *testing.T, data []byte) []int {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("parse worksheet: %v", err)
	}
	var out []int
	for _, rule := range doc.FindElements("//cfRule") {
		p, err := strconv.Atoi(rule.SelectAttrValue("priority", ""))
		if err != nil {
			t.Fatalf("bad priority on %v: %v", rule.Attr, err)
		}
		out = append(out, p)
	}
	return out
}

func TestPatchRulePriority(t *testing.T) {
	tests := []struct {
		sqref    string
		priority int
		expected []int
	}{
		{"C1", 1, []int{2, 3, 4, 1}},
		{"c1", 2, []int{1, 3, 4, 2}},
		{"B1:B5", 1, []int{2, 3, 1, 4}},
		{"A1:A5", 3, []int{3, 1, 2, 4}},
		{"A1:A5", 40, []int{4, 1, 2, 3}},
	}
	for _, tt := range tests {
		out, err := PatchRulePriority([]byte(ruledSheet), tt.sqref, tt.priority)
		if err != nil {
			t.Fatalf("PatchRulePriority(%s, %d) failed: %v", tt.sqref, tt.priority, err)
		}
		got := priorities(t, out)
		if len(got) != len(tt.expected) {
			t.Fatalf("Expected %v, got %v", tt.expected, got)
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("PatchRulePriority(%s, %d) = %v, expected %v", tt.sqref, tt.priority, got, tt.expected)
				break
			}
		}
	}
}

func TestPatchRulePriority_Errors(t *testing.T) {
	if _, err := PatchRulePriority([]byte(ruledSheet), "D1", 1); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound, got %v", err)
	}
	for _, input := range []string{"", "<worksheet>", "<workbook/>"} {
		if _, err := PatchRulePriority([]byte(input), "A1", 1); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}

func TestSetRulePriority(t *testing.T) {
	f := excelize.NewFile()
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("NewSheet failed: %v", err)
	}
	for _, ref := range []string{"A1:A3", "B1:B3"} {
		err := f.SetConditionalFormat("Data", ref, []excelize.ConditionalFormatOptions{{Type: "icon_set", IconStyle: "3Arrows"}})
		if err != nil {
			t.Fatalf("SetConditionalFormat(%s) failed: %v", ref, err)
		}
	}
	path := filepath.Join(t.TempDir(), "rules.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
	f.Close()

	if err := SetRulePriority(path, "Data", "B1:B3", 1); err != nil {
		t.Fatalf("SetRulePriority failed: %v", err)
	}
	if err := SetRulePriority(path, "Data", "B1:B3", 0); err == nil {
		t.Error("Expected error for priority 0")
	}
	if err := SetRulePriority(path, "Nope", "B1:B3", 1); !errors.Is(err, ErrPartNotFound) {
		t.Errorf("Expected ErrPartNotFound for a missing sheet, got %v", err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open patched package: %v", err)
	}
	defer r.Close()
	part, err := SheetPart(&r.Reader, "Data")
	if err != nil {
		t.Fatalf("SheetPart failed: %v", err)
	}
	if part != "xl/worksheets/sheet2.xml" {
		t.Errorf("Expected xl/worksheets/sheet2.xml, got %s", part)
	}
	data, err := readZipFile(&r.Reader, part)
	if err != nil || data == nil {
		t.Fatalf("read %s: %v", part, err)
	}
	if got := priorities(t, data); len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("Expected priorities [2 1], got %v", got)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to reopen patched workbook: %v", err)
	}
	defer wb.Close()
	formats, err := wb.GetConditionalFormats("Data")
	if err != nil || len(formats) != 2 {
		t.Errorf("Expected both rule groups to survive, got %v, %v", formats, err)
	}
}
