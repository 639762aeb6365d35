package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm"
)

// styleArgs are the style fields shared by format_cell_range,
// create_named_style and conditional rule styles.
type styleArgs struct {
	Bold         bool     `json:"bold"`
	Italic       bool     `json:"italic"`
	Underline    bool     `json:"underline"`
	FontSize     *float64 `json:"font_size"`
	FontColor    string   `json:"font_color"`
	BgColor      string   `json:"bg_color"`
	BorderStyle  string   `json:"border_style"`
	BorderColor  string   `json:"border_color"`
	NumberFormat string   `json:"number_format"`
	Alignment    string   `json:"alignment"`
	WrapText     bool     `json:"wrap_text"`
	Protection   *struct {
		Locked *bool `json:"locked"`
		Hidden *bool `json:"hidden"`
	} `json:"protection"`
}

func (a styleArgs) options() xlsm.FormatOptions {
	opts := xlsm.FormatOptions{
		Bold:         a.Bold,
		Italic:       a.Italic,
		Underline:    a.Underline,
		FontSize:     a.FontSize,
		FontColor:    a.FontColor,
		BgColor:      a.BgColor,
		BorderStyle:  a.BorderStyle,
		BorderColor:  a.BorderColor,
		NumberFormat: a.NumberFormat,
		Alignment:    a.Alignment,
		WrapText:     a.WrapText,
	}
	if a.Protection != nil {
		opts.Protection = &xlsm.Protection{Locked: a.Protection.Locked, Hidden: a.Protection.Hidden}
	}
	return opts
}

// styleParams declares the styleArgs fields as tool parameters.
func styleParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithBoolean("bold", mcp.DefaultBool(false)),
		mcp.WithBoolean("italic", mcp.DefaultBool(false)),
		mcp.WithBoolean("underline", mcp.DefaultBool(false)),
		mcp.WithNumber("font_size", mcp.Description("Font size in points")),
		mcp.WithString("font_color", mcp.Description("Hex color, e.g. FF0000 or #FF0000")),
		mcp.WithString("bg_color", mcp.Description("Solid fill color in hex")),
		mcp.WithString("border_style", mcp.Enum("thin", "medium", "thick", "double", "dashed", "dotted")),
		mcp.WithString("border_color", mcp.Description("Border color in hex; defaults to black")),
		mcp.WithString("number_format", mcp.Description("Number format code, e.g. 0.00% or yyyy-mm-dd")),
		mcp.WithString("alignment", mcp.Enum("left", "center", "right", "justify", "general")),
		mcp.WithBoolean("wrap_text", mcp.DefaultBool(false)),
		mcp.WithObject("protection",
			mcp.Description("Cell protection flags"),
			mcp.Properties(map[string]any{
				"locked": map[string]any{"type": "boolean"},
				"hidden": map[string]any{"type": "boolean"},
			})),
	}
}

// styleSchema describes a styles object for conditional rules.
var styleSchema = map[string]any{
	"bold":          map[string]any{"type": "boolean"},
	"italic":        map[string]any{"type": "boolean"},
	"underline":     map[string]any{"type": "boolean"},
	"font_size":     map[string]any{"type": "number"},
	"font_color":    map[string]any{"type": "string"},
	"bg_color":      map[string]any{"type": "string"},
	"border_style":  map[string]any{"type": "string", "enum": []string{"thin", "medium", "thick", "double", "dashed", "dotted"}},
	"border_color":  map[string]any{"type": "string"},
	"number_format": map[string]any{"type": "string"},
}

type formatArgs struct {
	Path       string `json:"filepath"`
	Sheet      string `json:"sheet_name"`
	StartCell  string `json:"start_cell"`
	EndCell    string `json:"end_cell"`
	MergeCells bool   `json:"merge_cells"`
	styleArgs
}

func (a formatArgs) options() xlsm.FormatOptions {
	opts := a.styleArgs.options()
	opts.MergeCells = a.MergeCells
	return opts
}

type namedStyleArgs struct {
	Path      string `json:"filepath"`
	StyleName string `json:"style_name"`
	styleArgs
}

type applyStyleArgs struct {
	Path      string `json:"filepath"`
	Sheet     string `json:"sheet_name"`
	StartCell string `json:"start_cell"`
	EndCell   string `json:"end_cell"`
	StyleName string `json:"style_name"`
}

type removeConditionalArgs struct {
	Path      string `json:"filepath"`
	Sheet     string `json:"sheet_name"`
	CellRange string `json:"cell_range"`
}

type conditionalArgs struct {
	Path       string   `json:"filepath"`
	Sheet      string   `json:"sheet_name"`
	CellRange  string   `json:"cell_range"`
	RuleType   string   `json:"rule_type"`
	Formula    string   `json:"formula"`
	Operator   string   `json:"operator"`
	Value      any      `json:"value"`
	Value2     any      `json:"value2"`
	Text       string   `json:"text"`
	Colors     []string `json:"colors"`
	Color      string   `json:"color"`
	IconStyle  string   `json:"icon_style"`
	FillColor  string     `json:"fill_color"`
	Styles     *styleArgs `json:"styles"`
	StopIfTrue bool       `json:"stop_if_true"`
	Priority   int        `json:"priority"`
}

func (a conditionalArgs) rule() xlsm.ConditionalRule {
	rule := xlsm.ConditionalRule{
		Type:       xlsm.RuleType(a.RuleType),
		Formula:    a.Formula,
		Operator:   a.Operator,
		Value:      scalar(a.Value),
		Value2:     scalar(a.Value2),
		Text:       a.Text,
		Colors:     a.Colors,
		Color:      a.Color,
		IconStyle:  a.IconStyle,
		FillColor:  a.FillColor,
		StopIfTrue: a.StopIfTrue,
		Priority:   a.Priority,
	}
	if a.Styles != nil {
		style := a.Styles.options()
		rule.Style = &style
	}
	return rule
}

// scalar renders a JSON number or string argument as text.
func scalar(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

type columnWidthArgs struct {
	Path   string  `json:"filepath"`
	Sheet  string  `json:"sheet_name"`
	Column string  `json:"column"`
	Width  float64 `json:"width"`
}

type rowHeightArgs struct {
	Path   string  `json:"filepath"`
	Sheet  string  `json:"sheet_name"`
	Row    int     `json:"row"`
	Height float64 `json:"height"`
}

func (s *Server) registerFormatTools() {
	formatOpts := []mcp.ToolOption{
		mcp.WithDescription("Apply font, fill, border, number format, alignment and protection settings to a range"),
		pathParam,
		sheetParam,
		mcp.WithString("start_cell", mcp.Required(), mcp.Description("Top-left cell, or a full range such as A1:C10")),
		mcp.WithString("end_cell", mcp.Description("Bottom-right cell; omitted formats start_cell only")),
		mcp.WithBoolean("merge_cells", mcp.DefaultBool(false)),
	}
	s.mcp.AddTool(mcp.NewTool("format_cell_range", append(formatOpts, styleParams()...)...),
		mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args formatArgs) (*mcp.CallToolResult, error) {
			err := s.svc.FormatRange(args.Path, args.Sheet, args.StartCell, args.EndCell, args.options())
			return s.respond("format_cell_range", nil, fmt.Sprintf("formatting applied to %s", rangeLabel(args.StartCell, args.EndCell)), err)
		}))

	namedOpts := []mcp.ToolOption{
		mcp.WithDescription("Store a reusable named style in the workbook; an existing style of the same name is replaced"),
		pathParam,
		mcp.WithString("style_name", mcp.Required(), mcp.Description("Unique style name")),
	}
	s.mcp.AddTool(mcp.NewTool("create_named_style", append(namedOpts, styleParams()...)...),
		mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args namedStyleArgs) (*mcp.CallToolResult, error) {
			replaced, err := s.svc.CreateNamedStyle(args.Path, args.StyleName, args.styleArgs.options())
			msg := fmt.Sprintf("style %q created", args.StyleName)
			if replaced {
				msg = fmt.Sprintf("style %q replaced", args.StyleName)
			}
			return s.respond("create_named_style", map[string]any{"style_name": args.StyleName, "replaced": replaced}, msg, err)
		}))

	s.mcp.AddTool(mcp.NewTool("apply_named_style",
		mcp.WithDescription("Apply a style created with create_named_style to a range"),
		pathParam,
		sheetParam,
		mcp.WithString("start_cell", mcp.Required(), mcp.Description("Top-left cell, or a full range such as A1:C10")),
		mcp.WithString("end_cell", mcp.Description("Bottom-right cell")),
		mcp.WithString("style_name", mcp.Required(), mcp.Description("Name given to create_named_style")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args applyStyleArgs) (*mcp.CallToolResult, error) {
		err := s.svc.ApplyNamedStyle(args.Path, args.Sheet, args.StartCell, args.EndCell, args.StyleName)
		return s.respond("apply_named_style", nil, fmt.Sprintf("style %q applied to %s", args.StyleName, rangeLabel(args.StartCell, args.EndCell)), err)
	}))

	s.mcp.AddTool(mcp.NewTool("apply_conditional_formatting",
		mcp.WithDescription("Add a conditional formatting rule to a range"),
		pathParam,
		sheetParam,
		mcp.WithString("cell_range", mcp.Required(), mcp.Description("Target range, e.g. A1:A20")),
		mcp.WithString("rule_type", mcp.Required(),
			mcp.Enum(string(xlsm.RuleFormula), string(xlsm.RuleCellIs), string(xlsm.RuleColorScale),
				string(xlsm.RuleDataBar), string(xlsm.RuleIconSet), string(xlsm.RuleContainsText))),
		mcp.WithString("formula", mcp.Description("formula rules: expression evaluated for the top-left cell")),
		mcp.WithString("operator", mcp.Description("cell_is rules: equal, notEqual, greaterThan, lessThan, greaterThanOrEqual, lessThanOrEqual, between, notBetween")),
		mcp.WithString("value", mcp.Description("cell_is rules: comparison value, or lower bound for between")),
		mcp.WithString("value2", mcp.Description("cell_is rules: upper bound for between and notBetween")),
		mcp.WithString("text", mcp.Description("contains_text rules: text to look for")),
		mcp.WithArray("colors", mcp.Description("color_scale rules: 2 or 3 hex colors, low to high"), mcp.WithStringItems()),
		mcp.WithString("color", mcp.Description("data_bar rules: bar color in hex")),
		mcp.WithString("icon_style", mcp.Description("icon_set rules: preset such as 3Arrows or 3TrafficLights1")),
		mcp.WithString("fill_color", mcp.Description("Highlight fill for formula, cell_is and contains_text rules")),
		mcp.WithObject("styles",
			mcp.Description("Font, fill and border applied to matching cells by formula, cell_is and contains_text rules"),
			mcp.Properties(styleSchema)),
		mcp.WithBoolean("stop_if_true", mcp.DefaultBool(false)),
		mcp.WithNumber("priority", mcp.Min(0), mcp.Description("Evaluation order among the sheet's rules, 1 first; omitted appends the rule last")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args conditionalArgs) (*mcp.CallToolResult, error) {
		err := s.svc.ApplyConditionalFormat(args.Path, args.Sheet, args.CellRange, args.rule())
		return s.respond("apply_conditional_formatting", nil, fmt.Sprintf("%s rule applied to %s", args.RuleType, args.CellRange), err)
	}))

	s.mcp.AddTool(mcp.NewTool("remove_conditional_formatting",
		mcp.WithDescription("Remove the conditional formatting of a range, or of the whole sheet when no range is given"),
		pathParam,
		sheetParam,
		mcp.WithString("cell_range", mcp.Description("Range whose rules are removed, e.g. A1:A20")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args removeConditionalArgs) (*mcp.CallToolResult, error) {
		removed, err := s.svc.RemoveConditionalFormat(args.Path, args.Sheet, args.CellRange)
		target := "sheet " + args.Sheet
		if args.CellRange != "" {
			target = args.CellRange
		}
		return s.respond("remove_conditional_formatting", map[string]any{"removed": removed}, fmt.Sprintf("%d conditional format group(s) removed from %s", removed, target), err)
	}))

	s.mcp.AddTool(mcp.NewTool("clear_formatting",
		mcp.WithDescription("Reset a range to the default cell style"),
		pathParam,
		sheetParam,
		mcp.WithString("start_cell", mcp.Required(), mcp.Description("Top-left cell, or a full range")),
		mcp.WithString("end_cell", mcp.Description("Bottom-right cell")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args rangeArgs) (*mcp.CallToolResult, error) {
		err := s.svc.ClearFormatting(args.Path, args.Sheet, args.StartCell, args.EndCell)
		return s.respond("clear_formatting", nil, fmt.Sprintf("formatting cleared from %s", rangeLabel(args.StartCell, args.EndCell)), err)
	}))

	s.mcp.AddTool(mcp.NewTool("set_column_width",
		mcp.WithDescription("Set the width of one column"),
		pathParam,
		sheetParam,
		mcp.WithString("column", mcp.Required(), mcp.Description("Column letters, e.g. B")),
		mcp.WithNumber("width", mcp.Required(), mcp.Min(0), mcp.Max(255), mcp.Description("Width in characters")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args columnWidthArgs) (*mcp.CallToolResult, error) {
		err := s.svc.SetColumnWidth(args.Path, args.Sheet, args.Column, args.Width)
		return s.respond("set_column_width", nil, fmt.Sprintf("column %s width set to %v", args.Column, args.Width), err)
	}))

	s.mcp.AddTool(mcp.NewTool("set_row_height",
		mcp.WithDescription("Set the height of one row"),
		pathParam,
		sheetParam,
		mcp.WithNumber("row", mcp.Required(), mcp.Min(1), mcp.Description("1-based row number")),
		mcp.WithNumber("height", mcp.Required(), mcp.Min(0), mcp.Max(409), mcp.Description("Height in points")),
	), mcp.NewTypedToolHandler(func(_ context.Context, _ mcp.CallToolRequest, args rowHeightArgs) (*mcp.CallToolResult, error) {
		err := s.svc.SetRowHeight(args.Path, args.Sheet, args.Row, args.Height)
		return s.respond("set_row_height", nil, fmt.Sprintf("row %d height set to %v", args.Row, args.Height), err)
	}))
}

func rangeLabel(start, end string) string {
	if end == "" {
		return start
	}
	return start + ":" + end
}
