package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

type macroArgs struct {
	Path      string `json:"filepath"`
	MacroName string `json:"macro_name"`
}

type convertArgs struct {
	Path       string `json:"filepath"`
	OutputPath string `json:"output_filepath"`
}

func (s *Server) registerMacroTools() {
	s.mcp.AddTool(mcp.NewTool("list_macros_in_workbook",
		mcp.WithDescription("List the Sub and Function procedures declared in the workbook's VBA project"),
		pathParam,
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args macroArgs) (*mcp.CallToolResult, error) {
		macros, err := s.svc.ListMacros(args.Path)
		return s.respond("list_macros_in_workbook", macros, fmt.Sprintf("%d macros found", len(macros)), err)
	}))

	s.mcp.AddTool(mcp.NewTool("get_macro_details",
		mcp.WithDescription("Describe one procedure, or a module, by name"),
		pathParam,
		mcp.WithString("macro_name", mcp.Required(), mcp.Description("Procedure or module name; matched case-insensitively")),
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args macroArgs) (*mcp.CallToolResult, error) {
		info, err := s.svc.GetMacroInfo(args.Path, args.MacroName)
		return s.respond("get_macro_details", info, fmt.Sprintf("details for %s", args.MacroName), err)
	}))

	s.mcp.AddTool(mcp.NewTool("has_macros",
		mcp.WithDescription("Report whether a workbook is macro-enabled or carries a VBA project"),
		pathParam,
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args macroArgs) (*mcp.CallToolResult, error) {
		ok, err := s.svc.HasMacros(args.Path)
		msg := "workbook has no macros"
		if ok {
			msg = "workbook has macros"
		}
		return s.respond("has_macros", map[string]bool{"has_macros": ok}, msg, err)
	}))

	s.mcp.AddTool(mcp.NewTool("convert_to_xlsm",
		mcp.WithDescription("Copy an .xlsx workbook to a macro-enabled .xlsm package. The source is not modified."),
		pathParam,
		mcp.WithString("output_filepath", mcp.Description("Destination path; defaults to the source with an .xlsm extension")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args convertArgs) (*mcp.CallToolResult, error) {
		out, err := s.svc.ConvertToXLSM(args.Path, args.OutputPath)
		return s.respond("convert_to_xlsm", map[string]string{"filepath": out}, fmt.Sprintf("macro-enabled workbook at %s", out), err)
	}))
}
