package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type toolResponse struct {
	Result struct {
		IsError           bool          `json:"isError"`
		StructuredContent models.Result `json:"structuredContent"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer() *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(xlsm.New(logger), logger, "test")
}

// call sends one tools/call request through the header filter and the server.
func call(t *testing.T, s *Server, tool string, args string) toolResponse {
	t.Helper()
	line := []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, tool, args))
	if out, ok := injectHeaders(line); ok {
		line = out
	}
	reply := s.MCPServer().HandleMessage(context.Background(), line)
	raw, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("encode reply: %v", err)
	}
	var resp toolResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode reply %s: %v", raw, err)
	}
	if resp.Error != nil {
		t.Fatalf("%s returned a protocol error: %s", tool, resp.Error.Message)
	}
	return resp
}

func TestToolsRegistered(t *testing.T) {
	s := newTestServer()
	tools := s.MCPServer().ListTools()
	for _, name := range []string{
		"read_data_from_excel", "write_data_to_excel", "append_data_to_excel",
		"create_new_workbook", "get_workbook_metadata",
		"list_worksheets", "create_new_worksheet", "copy_worksheet", "delete_worksheet", "rename_worksheet",
		"merge_cells", "unmerge_cells",
		"format_cell_range", "apply_conditional_formatting", "remove_conditional_formatting",
		"create_named_style", "apply_named_style", "clear_formatting", "set_column_width", "set_row_height",
		"list_macros_in_workbook", "get_macro_details", "has_macros", "convert_to_xlsm",
	} {
		if _, ok := tools[name]; !ok {
			t.Errorf("Expected tool %s to be registered", name)
		}
	}
}

func TestWriteAndReadTools(t *testing.T) {
	s := newTestServer()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	pathJSON, _ := json.Marshal(path)

	resp := call(t, s, "create_new_workbook", fmt.Sprintf(`{"filepath":%s,"with_macros":false}`, pathJSON))
	if resp.Result.IsError || !resp.Result.StructuredContent.Success {
		t.Fatalf("create_new_workbook failed: %+v", resp.Result.StructuredContent)
	}

	resp = call(t, s, "write_data_to_excel", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","data":[{"zeta":"z","alpha":1}]}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("write_data_to_excel failed: %+v", resp.Result.StructuredContent)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open written workbook: %v", err)
	}
	a1, _ := f.GetCellValue("Sheet1", "A1")
	b1, _ := f.GetCellValue("Sheet1", "B1")
	f.Close()
	if a1 != "zeta" || b1 != "alpha" {
		t.Errorf("Expected header row [zeta alpha], got [%s %s]", a1, b1)
	}

	resp = call(t, s, "read_data_from_excel", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","start_cell":"A1","end_cell":"B2"}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("read_data_from_excel failed: %+v", resp.Result.StructuredContent)
	}
	rows, ok := resp.Result.StructuredContent.Data.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("Expected one record, got %#v", resp.Result.StructuredContent.Data)
	}
	row := rows[0].(map[string]any)
	if row["zeta"] != "z" || row["alpha"] != float64(1) {
		t.Errorf("Unexpected record %v", row)
	}
}

func TestToolErrors(t *testing.T) {
	s := newTestServer()
	missing, _ := json.Marshal(filepath.Join(t.TempDir(), "missing.xlsx"))

	tests := []struct {
		tool      string
		args      string
		errorType xlsm.Category
	}{
		{"list_worksheets", fmt.Sprintf(`{"filepath":%s}`, missing), xlsm.CategoryWorkbook},
		{"has_macros", fmt.Sprintf(`{"filepath":%s}`, missing), xlsm.CategoryMacro},
		{"read_data_from_excel", fmt.Sprintf(`{"filepath":%s,"sheet_name":"S","start_cell":"1A"}`, missing), xlsm.CategoryValidation},
		{"write_data_to_excel", fmt.Sprintf(`{"filepath":%s,"sheet_name":"S","data":[]}`, missing), xlsm.CategoryData},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			resp := call(t, s, tt.tool, tt.args)
			res := resp.Result.StructuredContent
			if !resp.Result.IsError || res.Success {
				t.Fatalf("Expected a failed result, got %+v", res)
			}
			if res.ErrorType != string(tt.errorType) {
				t.Errorf("Expected error_type %s, got %s (%s)", tt.errorType, res.ErrorType, res.Error)
			}
			if res.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestNewResult(t *testing.T) {
	ok := newResult(map[string]int{"n": 1}, "done", nil)
	if !ok.Success || ok.Message != "done" || ok.Error != "" {
		t.Errorf("Unexpected success envelope %+v", ok)
	}

	failed := newResult("ignored", "ignored", xlsm.NewError(xlsm.CategorySheet, "create_sheet", xlsm.ErrSheetExists))
	if failed.Success || failed.Data != nil || failed.Message != "" {
		t.Errorf("Unexpected failure envelope %+v", failed)
	}
	if failed.ErrorType != "SheetError" || failed.Error != "create_sheet: sheet already exists" {
		t.Errorf("Unexpected failure details %+v", failed)
	}

	plain := newResult(nil, "", fmt.Errorf("boom"))
	if plain.ErrorType != "UnexpectedError" {
		t.Errorf("Expected UnexpectedError, got %s", plain.ErrorType)
	}
}

func TestFormatTools(t *testing.T) {
	s := newTestServer()
	path := filepath.Join(t.TempDir(), "fmt.xlsx")
	pathJSON, _ := json.Marshal(path)
	call(t, s, "create_new_workbook", fmt.Sprintf(`{"filepath":%s,"with_macros":false}`, pathJSON))

	resp := call(t, s, "format_cell_range", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","start_cell":"A1:B2","bold":true,"bg_color":"#DDEEFF","protection":{"locked":false}}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("format_cell_range failed: %+v", resp.Result.StructuredContent)
	}

	resp = call(t, s, "apply_conditional_formatting", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","cell_range":"A1:A9","rule_type":"cell_is","operator":"lessThan","value":0}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("apply_conditional_formatting failed: %+v", resp.Result.StructuredContent)
	}

	resp = call(t, s, "format_cell_range", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","start_cell":"A1","font_color":"navy"}`, pathJSON))
	if !resp.Result.IsError || resp.Result.StructuredContent.ErrorType != string(xlsm.CategoryValidation) {
		t.Errorf("Expected a ValidationError for a bad color, got %+v", resp.Result.StructuredContent)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open formatted workbook: %v", err)
	}
	defer f.Close()
	formats, _ := f.GetConditionalFormats("Sheet1")
	if rules := formats["A1:A9"]; len(rules) != 1 || rules[0].Value != "0" {
		t.Errorf("Unexpected conditional rules %+v", formats)
	}
}

func TestStyleTools(t *testing.T) {
	s := newTestServer()
	path := filepath.Join(t.TempDir(), "styles.xlsx")
	pathJSON, _ := json.Marshal(path)
	call(t, s, "create_new_workbook", fmt.Sprintf(`{"filepath":%s,"with_macros":false}`, pathJSON))

	resp := call(t, s, "create_named_style", fmt.Sprintf(`{"filepath":%s,"style_name":"Title","bold":true,"font_size":14,"bg_color":"#EEEEEE","border_style":"thin"}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("create_named_style failed: %+v", resp.Result.StructuredContent)
	}
	resp = call(t, s, "apply_named_style", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","start_cell":"A1","end_cell":"C1","style_name":"Title"}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("apply_named_style failed: %+v", resp.Result.StructuredContent)
	}
	resp = call(t, s, "apply_named_style", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","start_cell":"A2","style_name":"Missing"}`, pathJSON))
	if !resp.Result.IsError || resp.Result.StructuredContent.ErrorType != string(xlsm.CategoryValidation) {
		t.Errorf("Expected a ValidationError for an unknown style, got %+v", resp.Result.StructuredContent)
	}

	resp = call(t, s, "apply_conditional_formatting", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","cell_range":"B1:B9","rule_type":"formula","formula":"B1>1","styles":{"bold":true,"font_color":"#FF0000","border_style":"dashed"},"priority":1}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("apply_conditional_formatting with styles failed: %+v", resp.Result.StructuredContent)
	}

	resp = call(t, s, "remove_conditional_formatting", fmt.Sprintf(`{"filepath":%s,"sheet_name":"Sheet1","cell_range":"B1:B9"}`, pathJSON))
	if resp.Result.IsError {
		t.Fatalf("remove_conditional_formatting failed: %+v", resp.Result.StructuredContent)
	}
	data, ok := resp.Result.StructuredContent.Data.(map[string]any)
	if !ok || data["removed"] != float64(1) {
		t.Errorf("Expected one removed group, got %+v", resp.Result.StructuredContent.Data)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open styled workbook: %v", err)
	}
	defer f.Close()
	id, _ := f.GetCellStyle("Sheet1", "C1")
	style, err := f.GetStyle(id)
	if err != nil || style.Font == nil || !style.Font.Bold || style.Font.Size != 14 {
		t.Errorf("Expected the Title style on C1, got %+v (%v)", style, err)
	}
	if formats, _ := f.GetConditionalFormats("Sheet1"); len(formats) != 0 {
		t.Errorf("Expected no conditional formats left, got %+v", formats)
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, ""},
		{float64(10), "10"},
		{2.5, "2.5"},
		{"=B1", "=B1"},
	}
	for _, tt := range tests {
		if got := scalar(tt.input); got != tt.expected {
			t.Errorf("scalar(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
