package xlsm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/address"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/parser"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// WriteResult reports what WriteData wrote.
type WriteResult struct {
	Sheet       string `json:"sheet"`
	Range       string `json:"range"`
	RowsWritten int    `json:"rows_written"`
}

// AppendResult reports what AppendData wrote.
type AppendResult struct {
	Sheet     string `json:"sheet"`
	RowsAdded int    `json:"rows_added"`
	StartRow  int    `json:"start_row"`
	// HeaderMismatch is set when the records' keys differ from the sheet's
	// existing header row. The rows are appended regardless.
	HeaderMismatch bool `json:"header_mismatch,omitempty"`
}

// ReadRange reads start..end of sheet. A single-row range yields at most one
// record keyed "Column_<Letter>". A multi-row range uses its first row as
// headers, falling back to "Column_<Letter>" for empty header cells, and
// yields one record per following row. Rows without any value are skipped.
func (s *Service) ReadRange(path, sheet, start, end string, opts ReadOptions) ([]models.Record, error) {
	const op = "read_range"
	if strings.TrimSpace(start) == "" {
		start = "A1"
	}
	r, err := address.Resolve(start, end)
	if err != nil {
		return nil, validationErr(op, err)
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return nil, err
	}
	bounds, err := parser.UsedRange(f, sheet)
	if err != nil {
		return nil, dataErr(op, err)
	}
	if err := r.CheckBounds(bounds.MaxRow, bounds.MaxCol); err != nil {
		return nil, dataErr(op, fmt.Errorf("sheet %q: %w", sheet, err))
	}
	// rows past the used range are empty and would be skipped anyway
	lastRow := min(r.End.Row, max(bounds.MaxRow, r.Start.Row))

	read := func(row, col int) (interface{}, error) {
		cell := address.Cell{Row: row, Col: col}.String()
		v, err := parser.CellValue(f, sheet, cell, opts.IncludeFormulas)
		if err != nil {
			return nil, dataErr(op, fmt.Errorf("read %s!%s: %w", sheet, cell, err))
		}
		return v, nil
	}

	records := []models.Record{}
	if r.Start.Row == r.End.Row {
		rec, hasData := models.NewRecord(), false
		for col := r.Start.Col; col <= r.End.Col; col++ {
			v, err := read(r.Start.Row, col)
			if err != nil {
				return nil, err
			}
			rec.Set(address.ColumnLabel(col), v)
			hasData = hasData || !parser.IsEmpty(v)
		}
		if hasData {
			records = append(records, rec)
		}
		return records, nil
	}

	headers := make([]string, 0, r.Cols())
	for col := r.Start.Col; col <= r.End.Col; col++ {
		v, err := read(r.Start.Row, col)
		if err != nil {
			return nil, err
		}
		if parser.IsEmpty(v) {
			headers = append(headers, address.ColumnLabel(col))
		} else {
			headers = append(headers, fmt.Sprint(v))
		}
	}

	for row := r.Start.Row + 1; row <= lastRow; row++ {
		rec, hasData := models.NewRecord(), false
		for i, header := range headers {
			v, err := read(row, r.Start.Col+i)
			if err != nil {
				return nil, err
			}
			rec.Set(header, v)
			hasData = hasData || !parser.IsEmpty(v)
		}
		if hasData {
			records = append(records, rec)
		}
	}

	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": r.String(), "records": len(records)}).Debug("range read")
	return records, nil
}

// WriteData writes a header row taken from the first record's keys at start,
// followed by one row per record. The sheet is created when missing.
func (s *Service) WriteData(path, sheet string, data []models.Record, start string) (WriteResult, error) {
	const op = "write_data"
	headers, err := recordHeaders(op, data)
	if err != nil {
		return WriteResult{}, err
	}
	if strings.TrimSpace(start) == "" {
		start = "A1"
	}
	origin, err := address.ParseCell(start)
	if err != nil {
		return WriteResult{}, validationErr(op, err)
	}
	last := address.Cell{Row: origin.Row + len(data), Col: origin.Col + len(headers) - 1}
	if last.Row > excelize.TotalRows || last.Col > excelize.MaxColumns {
		return WriteResult{}, dataErr(op, fmt.Errorf("%d rows of %d columns from %s exceed the sheet limits", len(data)+1, len(headers), origin))
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return WriteResult{}, err
	}
	defer f.Close()

	sheet, err = ensureSheet(op, f, sheet)
	if err != nil {
		return WriteResult{}, err
	}

	for j, h := range headers {
		if err := setHeader(f, sheet, address.Cell{Row: origin.Row, Col: origin.Col + j}, h); err != nil {
			return WriteResult{}, dataErr(op, err)
		}
	}
	for i, rec := range data {
		for j, h := range headers {
			v, _ := rec.Get(h)
			if err := setCell(f, sheet, address.Cell{Row: origin.Row + 1 + i, Col: origin.Col + j}, v); err != nil {
				return WriteResult{}, dataErr(op, err)
			}
		}
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return WriteResult{}, err
	}
	written := address.Range{Start: origin, End: last}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": written.String()}).Info("data written")
	return WriteResult{Sheet: sheet, Range: written.String(), RowsWritten: len(data)}, nil
}

// AppendData adds one row per record after the last non-empty row of sheet.
// An empty sheet first receives a header row from the first record's keys and
// data starts at row 2. When the records' keys equal the existing header row
// as a set, values are placed under their matching header; otherwise they are
// written in key order from column A and a mismatch warning is logged.
func (s *Service) AppendData(path, sheet string, data []models.Record) (AppendResult, error) {
	const op = "append_data"
	headers, err := recordHeaders(op, data)
	if err != nil {
		return AppendResult{}, err
	}
	if len(headers) > excelize.MaxColumns {
		return AppendResult{}, dataErr(op, fmt.Errorf("%d columns exceed the sheet limit", len(headers)))
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return AppendResult{}, err
	}
	defer f.Close()

	sheet, err = ensureSheet(op, f, sheet)
	if err != nil {
		return AppendResult{}, err
	}
	bounds, err := parser.UsedRange(f, sheet)
	if err != nil {
		return AppendResult{}, dataErr(op, err)
	}

	result := AppendResult{Sheet: sheet, RowsAdded: len(data)}
	columns := make(map[string]int, len(headers))
	for j, h := range headers {
		columns[h] = j + 1
	}

	if bounds.Empty() {
		for j, h := range headers {
			if err := setHeader(f, sheet, address.Cell{Row: 1, Col: j + 1}, h); err != nil {
				return AppendResult{}, dataErr(op, err)
			}
		}
		result.StartRow = 2
	} else {
		existing, err := headerRow(f, sheet, bounds.MaxCol)
		if err != nil {
			return AppendResult{}, dataErr(op, err)
		}
		if sameKeys(existing, headers) {
			columns = existing
		} else {
			result.HeaderMismatch = true
			s.log.WithFields(logrus.Fields{
				"file":     path,
				"sheet":    sheet,
				"existing": sortedKeys(existing),
				"new":      headers,
			}).Warn("appended records do not match the existing header row")
		}
		result.StartRow = bounds.MaxRow + 1
	}

	if result.StartRow+len(data)-1 > excelize.TotalRows {
		return AppendResult{}, dataErr(op, fmt.Errorf("appending %d rows from row %d exceeds the sheet limit", len(data), result.StartRow))
	}

	for i, rec := range data {
		for _, h := range headers {
			v, _ := rec.Get(h)
			if err := setCell(f, sheet, address.Cell{Row: result.StartRow + i, Col: columns[h]}, v); err != nil {
				return AppendResult{}, dataErr(op, err)
			}
		}
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return AppendResult{}, err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "rows": len(data), "start_row": result.StartRow}).Info("data appended")
	return result, nil
}

// recordHeaders returns the first record's keys, failing on empty input.
func recordHeaders(op string, data []models.Record) ([]string, error) {
	if len(data) == 0 || data[0] == nil {
		return nil, dataErr(op, ErrEmptyData)
	}
	headers := models.RecordKeys(data[0])
	if len(headers) == 0 {
		return nil, dataErr(op, fmt.Errorf("%w: first record has no keys", ErrEmptyData))
	}
	for i, rec := range data {
		if rec == nil {
			return nil, validationErr(op, fmt.Errorf("record %d is null", i))
		}
	}
	return headers, nil
}

// ensureSheet resolves sheet, creating it when missing.
func ensureSheet(op string, f *excelize.File, sheet string) (string, error) {
	if name, ok := findSheet(f, sheet); ok {
		return name, nil
	}
	if err := ValidateSheetName(sheet); err != nil {
		return "", validationErr(op, err)
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return "", sheetErr(op, err)
	}
	return sheet, nil
}

// headerRow maps the non-empty cells of row 1 to their column numbers.
func headerRow(f *excelize.File, sheet string, maxCol int) (map[string]int, error) {
	headers := make(map[string]int, maxCol)
	for col := 1; col <= maxCol; col++ {
		v, err := parser.CellValue(f, sheet, address.Cell{Row: 1, Col: col}.String(), false)
		if err != nil {
			return nil, err
		}
		if !parser.IsEmpty(v) {
			if _, dup := headers[fmt.Sprint(v)]; !dup {
				headers[fmt.Sprint(v)] = col
			}
		}
	}
	return headers, nil
}

func sameKeys(existing map[string]int, headers []string) bool {
	if len(existing) != len(headers) {
		return false
	}
	for _, h := range headers {
		if _, ok := existing[h]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// setHeader writes a header key as literal text, even when it starts with "=".
func setHeader(f *excelize.File, sheet string, cell address.Cell, key string) error {
	return f.SetCellStr(sheet, cell.String(), key)
}

// setCell writes v to cell. Strings starting with "=" become formulas; maps
// and slices are stored as JSON text.
func setCell(f *excelize.File, sheet string, cell address.Cell, v interface{}) error {
	name := cell.String()
	switch val := v.(type) {
	case string:
		if len(val) > 1 && val[0] == '=' {
			return f.SetCellFormula(sheet, name, val[1:])
		}
		return f.SetCellValue(sheet, name, val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return f.SetCellValue(sheet, name, i)
		}
		fv, err := val.Float64()
		if err != nil {
			return f.SetCellValue(sheet, name, val.String())
		}
		return f.SetCellValue(sheet, name, fv)
	case map[string]interface{}, []interface{}, models.Record:
		text, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("encode value for %s: %w", name, err)
		}
		return f.SetCellValue(sheet, name, string(text))
	default:
		return f.SetCellValue(sheet, name, val)
	}
}
