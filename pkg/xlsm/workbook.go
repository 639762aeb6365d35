package xlsm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/parser"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ErrFileExists indicates a create call targeting an existing file.
var ErrFileExists = errors.New("file already exists")

// workbookExts are the package extensions the service opens.
var workbookExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
	".xlam": true,
}

// macroExts are the extensions whose packages are macro-capable by definition.
var macroExts = map[string]bool{
	".xlsm": true,
	".xltm": true,
	".xlam": true,
}

// Service implements the workbook tools. Each call opens the file, performs
// one action, saves when it mutates, and closes the file again.
type Service struct {
	log *logrus.Logger
}

// New returns a Service logging to logger. A nil logger discards output.
func New(logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Service{log: logger}
}

// openWorkbook validates path and opens it. Callers must Close the file.
func (s *Service) openWorkbook(op, path string) (*excelize.File, error) {
	if err := checkWorkbookPath(op, path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, workbookErr(op, fmt.Errorf("open %s: %w", path, err))
	}
	return f, nil
}

// saveWorkbook commits f to its own path.
func (s *Service) saveWorkbook(op string, f *excelize.File) error {
	if err := f.Save(); err != nil {
		return workbookErr(op, fmt.Errorf("save %s: %w", f.Path, err))
	}
	s.log.WithField("file", f.Path).Debug("workbook saved")
	return nil
}

func checkWorkbookPath(op, path string) error {
	if strings.TrimSpace(path) == "" {
		return validationErr(op, errors.New("file path is required"))
	}
	if !workbookExts[strings.ToLower(filepath.Ext(path))] {
		return validationErr(op, fmt.Errorf("%w: %s", ErrInvalidFormat, filepath.Ext(path)))
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return workbookErr(op, fmt.Errorf("%w: %s", ErrFileNotFound, path))
	}
	if err != nil {
		return workbookErr(op, err)
	}
	if info.IsDir() {
		return workbookErr(op, fmt.Errorf("%s is a directory", path))
	}
	return nil
}

// CreateWorkbook writes a new single-sheet workbook and returns its path.
// With withMacros the extension becomes .xlsm and the package declares a
// placeholder VBA project.
func (s *Service) CreateWorkbook(path string, withMacros bool) (string, error) {
	const op = "create_workbook"
	if strings.TrimSpace(path) == "" {
		return "", validationErr(op, errors.New("file path is required"))
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case withMacros:
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsm"
	case ext == "":
		path += ".xlsx"
	case !workbookExts[ext]:
		return "", validationErr(op, fmt.Errorf("%w: %s", ErrInvalidFormat, ext))
	}

	if _, err := os.Stat(path); err == nil {
		return "", workbookErr(op, fmt.Errorf("%w: %s", ErrFileExists, path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", workbookErr(op, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if withMacros {
		codeName := "ThisWorkbook"
		if err := f.SetWorkbookProps(&excelize.WorkbookPropsOptions{CodeName: &codeName}); err != nil {
			return "", workbookErr(op, err)
		}
		if err := f.AddVBAProject(parser.PlaceholderProject()); err != nil {
			return "", macroErr(op, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return "", workbookErr(op, fmt.Errorf("save %s: %w", path, err))
	}
	if withMacros {
		if err := parser.EnableMacros(path); err != nil {
			return "", macroErr(op, fmt.Errorf("%w: %v", ErrConversion, err))
		}
	}

	s.log.WithFields(logrus.Fields{"file": path, "macros": withMacros}).Info("workbook created")
	return path, nil
}

// WorkbookInfo reports file metadata, sheets and document properties. With
// includeRanges each sheet is summarized with its used range, table
// candidates, print areas and merged ranges.
func (s *Service) WorkbookInfo(path string, includeRanges bool) (*models.WorkbookInfo, error) {
	const op = "get_workbook_info"
	f, err := s.openWorkbook(op, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, workbookErr(op, err)
	}
	hasMacros, err := s.HasMacros(path)
	if err != nil {
		return nil, err
	}

	info := &models.WorkbookInfo{
		Path:        path,
		FileName:    filepath.Base(path),
		Size:        stat.Size(),
		Modified:    stat.ModTime(),
		HasMacros:   hasMacros,
		SheetNames:  f.GetSheetList(),
		ActiveSheet: f.GetSheetName(f.GetActiveSheetIndex()),
	}

	if props, err := f.GetDocProps(); err == nil {
		info.Properties = &models.DocProperties{
			Title:          props.Title,
			Subject:        props.Subject,
			Creator:        props.Creator,
			Keywords:       props.Keywords,
			Description:    props.Description,
			LastModifiedBy: props.LastModifiedBy,
			Category:       props.Category,
			Created:        props.Created,
			Modified:       props.Modified,
		}
	} else {
		s.log.WithError(err).WithField("file", path).Warn("document properties unreadable")
	}

	if !includeRanges {
		return info, nil
	}

	printAreas := parser.ExtractPrintAreas(f)
	for _, sheetName := range info.SheetNames {
		sheet, err := summarizeSheet(f, sheetName)
		if err != nil {
			return nil, workbookErr(op, fmt.Errorf("sheet %q: %w", sheetName, err))
		}
		sheet.PrintAreas = printAreas[sheetName]
		info.Sheets = append(info.Sheets, sheet)
	}
	return info, nil
}

func summarizeSheet(f *excelize.File, sheetName string) (models.SheetInfo, error) {
	bounds, err := parser.UsedRange(f, sheetName)
	if err != nil {
		return models.SheetInfo{}, err
	}
	tables, err := parser.DetectTables(f, sheetName, parser.DefaultTableParams())
	if err != nil {
		return models.SheetInfo{}, err
	}
	merges, err := f.GetMergeCells(sheetName, true)
	if err != nil {
		return models.SheetInfo{}, err
	}

	sheet := models.SheetInfo{
		Name:            sheetName,
		UsedRange:       bounds.String(),
		MaxRow:          bounds.MaxRow,
		MaxColumn:       bounds.MaxCol,
		TableCandidates: tables,
	}
	for _, mc := range merges {
		sheet.MergedRanges = append(sheet.MergedRanges, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}
	return sheet, nil
}
