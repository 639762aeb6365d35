package xlsm

import (
	"fmt"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/address"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// borderStyles maps border style names to the document library's indices.
var borderStyles = map[string]int{
	"thin":   1,
	"medium": 2,
	"dashed": 3,
	"dotted": 4,
	"thick":  5,
	"double": 6,
}

var alignments = map[string]bool{
	"left":    true,
	"center":  true,
	"right":   true,
	"justify": true,
	"general": true,
}

// resolvedFormat is FormatOptions after validation, with colors normalized.
type resolvedFormat struct {
	FormatOptions
	fontColor   string
	bgColor     string
	borderColor string
	borderStyle int
}

func resolveFormat(opts FormatOptions) (resolvedFormat, error) {
	rf := resolvedFormat{FormatOptions: opts}
	var err error
	if opts.FontSize != nil && *opts.FontSize <= 0 {
		return rf, fmt.Errorf("%w: font size must be positive, got %v", ErrInvalidOption, *opts.FontSize)
	}
	if rf.fontColor, err = optionalColor(opts.FontColor); err != nil {
		return rf, fmt.Errorf("font color: %w", err)
	}
	if rf.bgColor, err = optionalColor(opts.BgColor); err != nil {
		return rf, fmt.Errorf("background color: %w", err)
	}
	if opts.BorderStyle != "" {
		style, ok := borderStyles[strings.ToLower(opts.BorderStyle)]
		if !ok {
			return rf, fmt.Errorf("%w: border style %q (want thin, medium, thick, double, dashed or dotted)", ErrInvalidOption, opts.BorderStyle)
		}
		rf.borderStyle = style
		rf.borderColor = "FF000000"
		if opts.BorderColor != "" {
			if rf.borderColor, err = NormalizeColor(opts.BorderColor); err != nil {
				return rf, fmt.Errorf("border color: %w", err)
			}
		}
	}
	if opts.Alignment != "" && !alignments[strings.ToLower(opts.Alignment)] {
		return rf, fmt.Errorf("%w: alignment %q (want left, center, right, justify or general)", ErrInvalidOption, opts.Alignment)
	}
	return rf, nil
}

// apply merges the requested formatting onto style.
func (rf resolvedFormat) apply(style *excelize.Style) {
	if style.Font == nil {
		style.Font = &excelize.Font{}
	}
	style.Font.Bold = rf.Bold
	style.Font.Italic = rf.Italic
	style.Font.Underline = ""
	if rf.Underline {
		style.Font.Underline = "single"
	}
	if rf.FontSize != nil {
		style.Font.Size = *rf.FontSize
	}
	if rf.fontColor != "" {
		style.Font.Color = rgb(rf.fontColor)
	}

	if rf.bgColor != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{rgb(rf.bgColor)}}
	}

	if rf.borderStyle != 0 {
		color := rgb(rf.borderColor)
		style.Border = []excelize.Border{
			{Type: "left", Color: color, Style: rf.borderStyle},
			{Type: "top", Color: color, Style: rf.borderStyle},
			{Type: "right", Color: color, Style: rf.borderStyle},
			{Type: "bottom", Color: color, Style: rf.borderStyle},
		}
	}

	if rf.NumberFormat != "" {
		numFmt := rf.NumberFormat
		style.NumFmt = 0
		style.CustomNumFmt = &numFmt
	}

	if rf.Alignment != "" || rf.WrapText {
		if style.Alignment == nil {
			style.Alignment = &excelize.Alignment{}
		}
		if rf.Alignment != "" {
			style.Alignment.Horizontal = strings.ToLower(rf.Alignment)
		}
		style.Alignment.WrapText = rf.WrapText
	}

	if rf.Protection != nil {
		if style.Protection == nil {
			style.Protection = &excelize.Protection{Locked: true}
		}
		if rf.Protection.Locked != nil {
			style.Protection.Locked = *rf.Protection.Locked
		}
		if rf.Protection.Hidden != nil {
			style.Protection.Hidden = *rf.Protection.Hidden
		}
	}
}

// styleCache derives one new style per distinct source style id.
type styleCache struct {
	f       *excelize.File
	format  resolvedFormat
	derived map[int]int
}

func (c *styleCache) styleFor(base int) (int, error) {
	if id, ok := c.derived[base]; ok {
		return id, nil
	}
	style, err := c.f.GetStyle(base)
	if err != nil {
		return 0, fmt.Errorf("read style %d: %w", base, err)
	}
	c.format.apply(style)
	id, err := c.f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	c.derived[base] = id
	return id, nil
}

// FormatRange applies font, fill, border, number format, alignment and
// protection settings to every cell from start to end, merging the range
// when requested.
func (s *Service) FormatRange(path, sheet, start, end string, opts FormatOptions) error {
	const op = "format_range"
	rf, err := resolveFormat(opts)
	if err != nil {
		return validationErr(op, err)
	}
	r, err := address.Resolve(start, end)
	if err != nil {
		return validationErr(op, err)
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return err
	}

	cache := &styleCache{f: f, format: rf, derived: make(map[int]int)}
	for row := r.Start.Row; row <= r.End.Row; row++ {
		for col := r.Start.Col; col <= r.End.Col; col++ {
			cell := address.Cell{Row: row, Col: col}.String()
			base, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return formattingErr(op, fmt.Errorf("%s!%s: %w", sheet, cell, err))
			}
			id, err := cache.styleFor(base)
			if err != nil {
				return formattingErr(op, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
				return formattingErr(op, fmt.Errorf("%s!%s: %w", sheet, cell, err))
			}
		}
	}

	if opts.MergeCells && !r.IsSingleCell() {
		if err := f.MergeCell(sheet, r.Start.String(), r.End.String()); err != nil {
			return formattingErr(op, fmt.Errorf("merge %s: %w", r, err))
		}
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": r.String(), "styles": len(cache.derived)}).Info("range formatted")
	return nil
}

// ClearFormatting resets every cell from start to end to the default style.
func (s *Service) ClearFormatting(path, sheet, start, end string) error {
	const op = "clear_formatting"
	r, err := address.Resolve(start, end)
	if err != nil {
		return validationErr(op, err)
	}
	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, r.Start.String(), r.End.String(), 0); err != nil {
		return formattingErr(op, fmt.Errorf("%s!%s: %w", sheet, r, err))
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": r.String()}).Info("formatting cleared")
	return nil
}

// SetColumnWidth sets the width of one column given by its letters.
func (s *Service) SetColumnWidth(path, sheet, column string, width float64) error {
	const op = "set_column_width"
	col, err := address.ColumnIndex(column)
	if err != nil {
		return validationErr(op, err)
	}
	if width <= 0 || width > excelize.MaxColumnWidth {
		return validationErr(op, fmt.Errorf("%w: width must be in (0, %d], got %v", ErrInvalidOption, excelize.MaxColumnWidth, width))
	}
	name, _ := address.ColumnName(col)

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, name, name, width); err != nil {
		return formattingErr(op, err)
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "column": name, "width": width}).Info("column width set")
	return nil
}

// SetRowHeight sets the height in points of one 1-based row.
func (s *Service) SetRowHeight(path, sheet string, row int, height float64) error {
	const op = "set_row_height"
	if row < 1 || row > excelize.TotalRows {
		return validationErr(op, fmt.Errorf("%w: row must be in [1, %d], got %d", ErrInvalidOption, excelize.TotalRows, row))
	}
	if height <= 0 || height > excelize.MaxRowHeight {
		return validationErr(op, fmt.Errorf("%w: height must be in (0, %d], got %v", ErrInvalidOption, excelize.MaxRowHeight, height))
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, row, height); err != nil {
		return formattingErr(op, err)
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "row": row, "height": height}).Info("row height set")
	return nil
}
