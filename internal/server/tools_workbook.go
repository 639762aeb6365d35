package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

type createWorkbookArgs struct {
	Path       string `json:"filepath"`
	WithMacros *bool  `json:"with_macros"`
}

type metadataArgs struct {
	Path          string `json:"filepath"`
	IncludeRanges bool   `json:"include_ranges"`
	IncludeMacros *bool  `json:"include_macros"`
}

type sheetArgs struct {
	Path  string `json:"filepath"`
	Sheet string `json:"sheet_name"`
}

type copySheetArgs struct {
	Path   string `json:"filepath"`
	Source string `json:"source_sheet"`
	Target string `json:"target_sheet"`
}

type renameSheetArgs struct {
	Path    string `json:"filepath"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

type rangeArgs struct {
	Path      string `json:"filepath"`
	Sheet     string `json:"sheet_name"`
	StartCell string `json:"start_cell"`
	EndCell   string `json:"end_cell"`
}

func (s *Server) registerWorkbookTools() {
	s.mcp.AddTool(mcp.NewTool("create_new_workbook",
		mcp.WithDescription("Create a workbook with one empty sheet. With macros the file is saved as .xlsm."),
		pathParam,
		mcp.WithBoolean("with_macros", mcp.DefaultBool(true), mcp.Description("Create a macro-enabled .xlsm package")),
	), mcp.NewTypedToolHandler(s.createWorkbook))

	s.mcp.AddTool(mcp.NewTool("get_workbook_metadata",
		mcp.WithDescription("Report file details, sheets, document properties and optionally per-sheet ranges and macros"),
		pathParam,
		mcp.WithBoolean("include_ranges", mcp.DefaultBool(false), mcp.Description("Summarize used range, table candidates, print areas and merged cells per sheet")),
		mcp.WithBoolean("include_macros", mcp.DefaultBool(true), mcp.Description("List the VBA procedures when the workbook has macros")),
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(s.workbookMetadata))
}

func (s *Server) registerSheetTools() {
	s.mcp.AddTool(mcp.NewTool("list_worksheets",
		mcp.WithDescription("List sheet names in workbook order"),
		pathParam,
		mcp.WithReadOnlyHintAnnotation(true),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args sheetArgs) (*mcp.CallToolResult, error) {
		names, err := s.svc.ListSheets(args.Path)
		return s.respond("list_worksheets", names, fmt.Sprintf("%d sheets", len(names)), err)
	}))

	s.mcp.AddTool(mcp.NewTool("create_new_worksheet",
		mcp.WithDescription("Add an empty sheet; fails if the name is taken"),
		pathParam,
		sheetParam,
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args sheetArgs) (*mcp.CallToolResult, error) {
		err := s.svc.CreateSheet(args.Path, args.Sheet)
		return s.respond("create_new_worksheet", nil, fmt.Sprintf("sheet %q created", args.Sheet), err)
	}))

	s.mcp.AddTool(mcp.NewTool("copy_worksheet",
		mcp.WithDescription("Duplicate a sheet under a new name"),
		pathParam,
		mcp.WithString("source_sheet", mcp.Required(), mcp.Description("Sheet to copy")),
		mcp.WithString("target_sheet", mcp.Required(), mcp.Description("Name of the new sheet")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args copySheetArgs) (*mcp.CallToolResult, error) {
		err := s.svc.CopySheet(args.Path, args.Source, args.Target)
		return s.respond("copy_worksheet", nil, fmt.Sprintf("sheet %q copied to %q", args.Source, args.Target), err)
	}))

	s.mcp.AddTool(mcp.NewTool("delete_worksheet",
		mcp.WithDescription("Delete a sheet; the only sheet of a workbook cannot be deleted"),
		pathParam,
		sheetParam,
		mcp.WithDestructiveHintAnnotation(true),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args sheetArgs) (*mcp.CallToolResult, error) {
		err := s.svc.DeleteSheet(args.Path, args.Sheet)
		return s.respond("delete_worksheet", nil, fmt.Sprintf("sheet %q deleted", args.Sheet), err)
	}))

	s.mcp.AddTool(mcp.NewTool("rename_worksheet",
		mcp.WithDescription("Rename a sheet"),
		pathParam,
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current sheet name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New sheet name")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args renameSheetArgs) (*mcp.CallToolResult, error) {
		err := s.svc.RenameSheet(args.Path, args.OldName, args.NewName)
		return s.respond("rename_worksheet", nil, fmt.Sprintf("sheet %q renamed to %q", args.OldName, args.NewName), err)
	}))

	s.mcp.AddTool(mcp.NewTool("merge_cells",
		mcp.WithDescription("Merge a range of cells"),
		pathParam,
		sheetParam,
		mcp.WithString("start_cell", mcp.Required(), mcp.Description("Top-left cell, or a full range such as A1:C1")),
		mcp.WithString("end_cell", mcp.Description("Bottom-right cell")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args rangeArgs) (*mcp.CallToolResult, error) {
		err := s.svc.MergeRange(args.Path, args.Sheet, args.StartCell, args.EndCell)
		return s.respond("merge_cells", nil, "cells merged", err)
	}))

	s.mcp.AddTool(mcp.NewTool("unmerge_cells",
		mcp.WithDescription("Split a merged range of cells"),
		pathParam,
		sheetParam,
		mcp.WithString("start_cell", mcp.Required(), mcp.Description("Top-left cell, or a full range such as A1:C1")),
		mcp.WithString("end_cell", mcp.Description("Bottom-right cell")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args rangeArgs) (*mcp.CallToolResult, error) {
		err := s.svc.UnmergeRange(args.Path, args.Sheet, args.StartCell, args.EndCell)
		return s.respond("unmerge_cells", nil, "cells unmerged", err)
	}))
}

func (s *Server) createWorkbook(_ context.Context, _ mcp.CallToolRequest, args createWorkbookArgs) (*mcp.CallToolResult, error) {
	withMacros := args.WithMacros == nil || *args.WithMacros
	path, err := s.svc.CreateWorkbook(args.Path, withMacros)
	data := map[string]any{"filepath": path, "with_macros": withMacros}
	return s.respond("create_new_workbook", data, fmt.Sprintf("workbook created at %s", path), err)
}

func (s *Server) workbookMetadata(_ context.Context, _ mcp.CallToolRequest, args metadataArgs) (*mcp.CallToolResult, error) {
	const tool = "get_workbook_metadata"
	info, err := s.svc.WorkbookInfo(args.Path, args.IncludeRanges)
	if err != nil {
		return s.respond(tool, nil, "", err)
	}
	if info.HasMacros && (args.IncludeMacros == nil || *args.IncludeMacros) {
		macros, err := s.svc.ListMacros(args.Path)
		if err != nil {
			// metadata is still useful without the macro list
			s.log.WithFields(logrus.Fields{"file": args.Path}).WithError(err).Warn("macros unreadable")
		}
		info.Macros = macros
	}
	return s.respond(tool, info, fmt.Sprintf("%s: %d sheets", info.FileName, len(info.SheetNames)), nil)
}
