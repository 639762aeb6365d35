// Package parser provides low-level workbook access: typed cell reads, sheet
// extents, and direct reading and patching of package parts.
package parser

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellValue reads one cell as a typed value: int64 or float64 for numbers,
// bool for booleans, string for text, nil for an empty cell. With
// includeFormulas, a formula cell yields its formula text prefixed by "=".
func CellValue(f *excelize.File, sheetName, cell string, includeFormulas bool) (interface{}, error) {
	if includeFormulas {
		formula, err := f.GetCellFormula(sheetName, cell)
		if err != nil {
			return nil, err
		}
		if formula != "" {
			return "=" + strings.TrimPrefix(formula, "="), nil
		}
	}

	raw, err := f.GetCellValue(sheetName, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	cellType, err := f.GetCellType(sheetName, cell)
	if err != nil {
		return nil, err
	}
	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError, excelize.CellTypeDate:
		return raw, nil
	default:
		return parseValue(raw), nil
	}
}

// IsEmpty reports whether a value read by CellValue is an empty cell.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// parseValue attempts to parse a string value as a number.
// Returns int64 for integers, float64 for decimals, or the original string.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
