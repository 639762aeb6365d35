package xlsm

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/address"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// maxSheetNameLength is the longest sheet name spreadsheet applications accept.
const maxSheetNameLength = 31

// ValidateSheetName rejects empty names, names over 31 characters and names
// containing any of / \ ? * [ ] :.
func ValidateSheetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidSheetName)
	}
	if utf8.RuneCountInString(name) > maxSheetNameLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSheetName, name, maxSheetNameLength)
	}
	if i := strings.IndexAny(name, `/\?*[]:`); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidSheetName, name, name[i])
	}
	return nil
}

// findSheet returns the stored name of sheet, matching exactly first and then
// case-insensitively, as spreadsheet applications treat sheet names.
func findSheet(f *excelize.File, sheet string) (string, bool) {
	names := f.GetSheetList()
	for _, name := range names {
		if name == sheet {
			return name, true
		}
	}
	for _, name := range names {
		if strings.EqualFold(name, sheet) {
			return name, true
		}
	}
	return "", false
}

// requireSheet resolves sheet or fails with a sheet error.
func requireSheet(op string, f *excelize.File, sheet string) (string, error) {
	name, ok := findSheet(f, sheet)
	if !ok {
		return "", sheetErr(op, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet))
	}
	return name, nil
}

// ListSheets returns the sheet names in workbook order.
func (s *Service) ListSheets(path string) ([]string, error) {
	f, err := s.openWorkbook("list_sheets", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// CreateSheet adds an empty sheet. It fails if the name is taken.
func (s *Service) CreateSheet(path, sheet string) error {
	const op = "create_sheet"
	if err := ValidateSheetName(sheet); err != nil {
		return validationErr(op, err)
	}
	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, ok := findSheet(f, sheet); ok {
		return sheetErr(op, fmt.Errorf("%w: %q", ErrSheetExists, sheet))
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return sheetErr(op, err)
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet}).Info("sheet created")
	return nil
}

// CopySheet duplicates source into a new sheet named target.
func (s *Service) CopySheet(path, source, target string) error {
	const op = "copy_sheet"
	if err := ValidateSheetName(target); err != nil {
		return validationErr(op, err)
	}
	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	source, err = requireSheet(op, f, source)
	if err != nil {
		return err
	}
	if _, ok := findSheet(f, target); ok {
		return sheetErr(op, fmt.Errorf("%w: %q", ErrSheetExists, target))
	}

	from, err := f.GetSheetIndex(source)
	if err != nil {
		return sheetErr(op, err)
	}
	to, err := f.NewSheet(target)
	if err != nil {
		return sheetErr(op, err)
	}
	if err := f.CopySheet(from, to); err != nil {
		return sheetErr(op, fmt.Errorf("copy %q to %q: %w", source, target, err))
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "source": source, "target": target}).Info("sheet copied")
	return nil
}

// DeleteSheet removes a sheet. The only sheet of a workbook cannot be deleted.
func (s *Service) DeleteSheet(path, sheet string) error {
	const op = "delete_sheet"
	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return err
	}
	if len(f.GetSheetList()) == 1 {
		return sheetErr(op, fmt.Errorf("%w: %q", ErrLastSheet, sheet))
	}
	if err := f.DeleteSheet(sheet); err != nil {
		return sheetErr(op, err)
	}
	if _, ok := findSheet(f, sheet); ok {
		return sheetErr(op, fmt.Errorf("sheet %q was not removed", sheet))
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet}).Info("sheet deleted")
	return nil
}

// RenameSheet renames oldName to newName.
func (s *Service) RenameSheet(path, oldName, newName string) error {
	const op = "rename_sheet"
	if err := ValidateSheetName(newName); err != nil {
		return validationErr(op, err)
	}
	f, err := s.openWorkbook(op, path)
	if err != nil {
		return err
	}
	defer f.Close()

	oldName, err = requireSheet(op, f, oldName)
	if err != nil {
		return err
	}
	if existing, ok := findSheet(f, newName); ok && existing != oldName {
		return sheetErr(op, fmt.Errorf("%w: %q", ErrSheetExists, newName))
	}
	if err := f.SetSheetName(oldName, newName); err != nil {
		return sheetErr(op, err)
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "from": oldName, "to": newName}).Info("sheet renamed")
	return nil
}

// MergeRange merges the cells from start to end.
func (s *Service) MergeRange(path, sheet, start, end string) error {
	return s.mergeOp("merge_range", path, sheet, start, end, (*excelize.File).MergeCell)
}

// UnmergeRange splits a merged range from start to end.
func (s *Service) UnmergeRange(path, sheet, start, end string) error {
	return s.mergeOp("unmerge_range", path, sheet, start, end, (*excelize.File).UnmergeCell)
}

func (s *Service) mergeOp(op, path, sheet, start, end string, apply func(*excelize.File, string, string, string) error) error {
	r, err := address.Resolve(start, end)
	if err != nil {
		return validationErr(op, err)
	}
	if r.IsSingleCell() {
		return validationErr(op, errors.New("range must span more than one cell"))
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
	if err := apply(f, sheet, r.Start.String(), r.End.String()); err != nil {
		return formattingErr(op, fmt.Errorf("%s %s: %w", sheet, r, err))
	}
	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": r.String()}).Info(op)
	return nil
}
