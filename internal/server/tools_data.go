package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
)

type readArgs struct {
	Path            string `json:"filepath"`
	Sheet           string `json:"sheet_name"`
	StartCell       string `json:"start_cell"`
	EndCell         string `json:"end_cell"`
	IncludeFormulas bool   `json:"include_formulas"`
}

type recordArgs struct {
	Path      string           `json:"filepath"`
	Sheet     string           `json:"sheet_name"`
	Data      []map[string]any `json:"data"`
	Headers   []string         `json:"headers"`
	StartCell string           `json:"start_cell"`
}

// records converts the decoded objects to records ordered by Headers.
func (a recordArgs) records() ([]models.Record, error) {
	out := make([]models.Record, 0, len(a.Data))
	for i, m := range a.Data {
		if m == nil {
			return nil, fmt.Errorf("data[%d] is not an object", i)
		}
		out = append(out, models.RecordFromMap(m, a.Headers))
	}
	return out, nil
}

var (
	pathParam  = mcp.WithString("filepath", mcp.Required(), mcp.Description("Path to the workbook (.xlsx or .xlsm)"))
	sheetParam = mcp.WithString("sheet_name", mcp.Required(), mcp.Description("Worksheet name"))
	dataParam  = mcp.WithArray("data", mcp.Required(),
		mcp.Description("Records to write; the first record's keys become the header row"),
		mcp.Items(map[string]any{"type": "object"}))
	headersParam = mcp.WithArray("headers",
		mcp.Description("Optional header order; defaults to the key order of the first record"),
		mcp.WithStringItems())
)

func (s *Server) registerDataTools() {
	s.mcp.AddTool(mcp.NewTool("read_data_from_excel",
		mcp.WithDescription("Read a cell range as records. A multi-row range uses its first row as headers; a single row is keyed Column_<Letter>."),
		pathParam,
		sheetParam,
		mcp.WithString("start_cell", mcp.DefaultString("A1"), mcp.Description("First cell, or a full range such as A1:C10")),
		mcp.WithString("end_cell", mcp.Description("Last cell; when omitted only start_cell is read")),
		mcp.WithBoolean("include_formulas", mcp.DefaultBool(false), mcp.Description("Return formulas instead of cached values")),
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(s.readData))

	s.mcp.AddTool(mcp.NewTool("write_data_to_excel",
		mcp.WithDescription("Write a header row and one row per record starting at start_cell. Missing sheets are created."),
		pathParam,
		sheetParam,
		dataParam,
		headersParam,
		mcp.WithString("start_cell", mcp.DefaultString("A1"), mcp.Description("Top-left cell of the header row")),
		mcp.WithDestructiveHintAnnotation(true),
	), mcp.NewTypedToolHandler(s.writeData))

	s.mcp.AddTool(mcp.NewTool("append_data_to_excel",
		mcp.WithDescription("Append one row per record after the last used row. An empty sheet first receives a header row."),
		pathParam,
		sheetParam,
		dataParam,
		headersParam,
		mcp.WithDestructiveHintAnnotation(false),
	), mcp.NewTypedToolHandler(s.appendData))
}

func (s *Server) readData(_ context.Context, _ mcp.CallToolRequest, args readArgs) (*mcp.CallToolResult, error) {
	const tool = "read_data_from_excel"
	records, err := s.svc.ReadRange(args.Path, args.Sheet, args.StartCell, args.EndCell, xlsm.ReadOptions{IncludeFormulas: args.IncludeFormulas})
	start := orDefault(args.StartCell, "A1")
	return s.respond(tool, records, fmt.Sprintf("read %d records from %s (%s to %s)", len(records), args.Sheet, start, orDefault(args.EndCell, start)), err)
}

func (s *Server) writeData(_ context.Context, _ mcp.CallToolRequest, args recordArgs) (*mcp.CallToolResult, error) {
	const tool = "write_data_to_excel"
	records, err := args.records()
	if err != nil {
		return s.invalid(tool, err)
	}
	res, err := s.svc.WriteData(args.Path, args.Sheet, records, args.StartCell)
	return s.respond(tool, res, fmt.Sprintf("wrote %d records to %s at %s", res.RowsWritten, res.Sheet, res.Range), err)
}

func (s *Server) appendData(_ context.Context, _ mcp.CallToolRequest, args recordArgs) (*mcp.CallToolResult, error) {
	const tool = "append_data_to_excel"
	records, err := args.records()
	if err != nil {
		return s.invalid(tool, err)
	}
	res, err := s.svc.AppendData(args.Path, args.Sheet, records)
	msg := fmt.Sprintf("appended %d records to %s from row %d", res.RowsAdded, res.Sheet, res.StartRow)
	if res.HeaderMismatch {
		msg += "; warning: record keys do not match the existing header row"
	}
	return s.respond(tool, res, msg, err)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
