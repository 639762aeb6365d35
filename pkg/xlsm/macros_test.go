package xlsm

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/parser"
)

const module1 = "Attribute VB_Name = \"Module1\"\r\n" +
	"' Greets the user\r\n" +
	"' from the ribbon\r\n" +
	"Public Sub Hello()\r\n" +
	"    MsgBox \"hi\"\r\n" +
	"End Sub\r\n" +
	"\r\n" +
	"Private Function Twice(x As Long) As Long\r\n" +
	"    Twice = x * 2\r\n" +
	"End Function\r\n" +
	"' Sub Commented()\r\n" +
	"  Static Sub Counter()\r\n" +
	"End Sub\r\n"

func testModules() []parser.VBAModule {
	return []parser.VBAModule{
		{Name: "Module1", StreamName: "Module1", Source: module1},
		{Name: "ThisWorkbook", StreamName: "ThisWorkbook", Class: true, Source: "Private Sub Workbook_Open()\r\nEnd Sub\r\n"},
	}
}

func TestFindProcedures(t *testing.T) {
	procs := findProcedures(testModules())

	expected := []models.Macro{
		{Name: "Hello", Type: models.MacroSub, Module: "Module1.bas"},
		{Name: "Twice", Type: models.MacroFunction, Module: "Module1.bas"},
		{Name: "Counter", Type: models.MacroSub, Module: "Module1.bas"},
		{Name: "Workbook_Open", Type: models.MacroSub, Module: "ThisWorkbook.cls"},
	}
	if len(procs) != len(expected) {
		t.Fatalf("Expected %d procedures, got %d: %+v", len(expected), len(procs), procs)
	}
	for i, p := range procs {
		if p.macro != expected[i] {
			t.Errorf("Procedure %d = %+v, expected %+v", i, p.macro, expected[i])
		}
	}
}

func TestLeadingCommentsAndExcerpt(t *testing.T) {
	procs := findProcedures(testModules())
	hello := procs[0]

	if got := leadingComments(hello.mod.Source[:hello.start]); got != "Greets the user from the ribbon" {
		t.Errorf("Unexpected comments %q", got)
	}

	code := excerpt(hello.mod.Source[hello.start:], hello.macro.Type)
	if !strings.HasPrefix(code, "Public Sub Hello()") || !strings.HasSuffix(code, "End Sub") {
		t.Errorf("Unexpected excerpt %q", code)
	}
	if strings.Contains(code, "Twice") {
		t.Errorf("Expected excerpt to stop at End Sub, got %q", code)
	}

	twice := procs[1]
	if got := leadingComments(twice.mod.Source[:twice.start]); got != "" {
		t.Errorf("Expected no comments above Twice, got %q", got)
	}
	desc := describe(twice.macro, "")
	if desc != "Function Twice in Module1.bas" {
		t.Errorf("Unexpected description %q", desc)
	}
}

func TestExcerpt_Capped(t *testing.T) {
	var b strings.Builder
	b.WriteString("Sub Long()\n")
	for i := 0; i < 100; i++ {
		b.WriteString("    x = x + 1\n")
	}
	b.WriteString("End Sub\n")

	lines := strings.Split(excerpt(b.String(), models.MacroSub), "\n")
	if len(lines) != maxExcerptLines+1 || lines[len(lines)-1] != "' ..." {
		t.Errorf("Expected %d lines ending in a marker, got %d", maxExcerptLines+1, len(lines))
	}
}

func TestHasMacros(t *testing.T) {
	svc := New(nil)
	dir := t.TempDir()

	plain := newWorkbook(t, "plain.xlsx", nil)
	if has, err := svc.HasMacros(plain); err != nil || has {
		t.Errorf("Expected no macros in a plain workbook, got %v, %v", has, err)
	}

	// the extension alone marks a workbook as macro-capable
	renamed := filepath.Join(dir, "renamed.xlsm")
	data, _ := os.ReadFile(plain)
	os.WriteFile(renamed, data, 0o644)
	if has, err := svc.HasMacros(renamed); err != nil || !has {
		t.Errorf("Expected an .xlsm file to report macros, got %v, %v", has, err)
	}

	_, err := svc.HasMacros(filepath.Join(dir, "missing.xlsx"))
	expectCategory(t, err, CategoryMacro, ErrFileNotFound)

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	os.WriteFile(corrupt, []byte("junk"), 0o644)
	_, err = svc.HasMacros(corrupt)
	expectCategory(t, err, CategoryMacro, ErrCorruptPackage)
}

func TestListMacros_NoProject(t *testing.T) {
	svc := New(nil)
	plain := newWorkbook(t, "plain.xlsx", nil)

	macros, err := svc.ListMacros(plain)
	if err != nil {
		t.Fatalf("ListMacros failed: %v", err)
	}
	if macros == nil || len(macros) != 0 {
		t.Errorf("Expected an empty macro list, got %#v", macros)
	}

	_, err = svc.GetMacroInfo(plain, "Hello")
	expectCategory(t, err, CategoryMacro, ErrNoMacros)

	_, err = svc.GetMacroInfo(plain, " ")
	expectCategory(t, err, CategoryValidation, nil)

	_, err = svc.ListMacros(filepath.Join(t.TempDir(), "gone.xlsm"))
	expectCategory(t, err, CategoryMacro, ErrFileNotFound)
}

// projectWorkbook saves an .xlsm carrying the VBA project under parser/testdata.
func projectWorkbook(t *testing.T) string {
	t.Helper()
	project, err := os.ReadFile(filepath.Join("parser", "testdata", "vbaProject.bin"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.AddVBAProject(project); err != nil {
		t.Fatalf("AddVBAProject failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "macros.xlsm")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func TestListMacros_Project(t *testing.T) {
	svc := New(nil)
	path := projectWorkbook(t)

	if has, err := svc.HasMacros(path); err != nil || !has {
		t.Errorf("Expected macros, got %v, %v", has, err)
	}

	macros, err := svc.ListMacros(path)
	if err != nil {
		t.Fatalf("ListMacros failed: %v", err)
	}
	expected := []models.Macro{
		{Name: "Worksheet_BeforeDoubleClick", Type: models.MacroSub, Module: "Sheet1.cls"},
		{Name: "Worksheet_SelectionChange", Type: models.MacroSub, Module: "Sheet1.cls"},
		{Name: "Button1_Click", Type: models.MacroSub, Module: "Module1.bas"},
	}
	if !reflect.DeepEqual(macros, expected) {
		t.Errorf("Expected %v, got %v", expected, macros)
	}
}

func TestGetMacroInfo_Project(t *testing.T) {
	svc := New(nil)
	path := projectWorkbook(t)

	tests := []struct {
		name     string
		expected models.Macro
		desc     string
		code     string
	}{
		{
			name:     "button1_click",
			expected: models.Macro{Name: "Button1_Click", Type: models.MacroSub, Module: "Module1.bas"},
			desc:     "Sub Button1_Click in Module1.bas",
			code: "Sub Button1_Click()\n" +
				"Sheet1.Cells(1, 3) = Sheet1.Cells(1, 1) + Sheet1.Cells(1, 2)\n" +
				"End Sub",
		},
		{
			name:     "Worksheet_SelectionChange",
			expected: models.Macro{Name: "Worksheet_SelectionChange", Type: models.MacroSub, Module: "Sheet1.cls"},
			desc:     "Sub Worksheet_SelectionChange in Sheet1.cls",
			code: "Private Sub Worksheet_SelectionChange( _\n" +
				"    ByVal Target As Range)\n" +
				"End Sub",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.GetMacroInfo(path, tt.name)
			if err != nil {
				t.Fatalf("GetMacroInfo failed: %v", err)
			}
			if info.Macro != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, info.Macro)
			}
			if info.Description != tt.desc {
				t.Errorf("Expected description %q, got %q", tt.desc, info.Description)
			}
			if info.Code != tt.code {
				t.Errorf("Expected code %q, got %q", tt.code, info.Code)
			}
		})
	}

	module, err := svc.GetMacroInfo(path, "sheet1")
	if err != nil {
		t.Fatalf("GetMacroInfo for a module failed: %v", err)
	}
	if module.Type != models.MacroModule || module.Module != "Sheet1.cls" {
		t.Errorf("Expected module Sheet1.cls, got %v", module.Macro)
	}
	if !strings.Contains(module.Code, "Worksheet_BeforeDoubleClick") || !strings.Contains(module.Code, "Worksheet_SelectionChange") {
		t.Errorf("Expected the whole module source, got %q", module.Code)
	}

	_, err = svc.GetMacroInfo(path, "Button2_Click")
	expectCategory(t, err, CategoryMacro, ErrMacroNotFound)
}
