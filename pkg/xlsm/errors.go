package xlsm

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the file extension is not a supported spreadsheet package.
var ErrInvalidFormat = errors.New("unsupported workbook format")

// ErrSheetNotFound indicates a sheet name that is not in the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrSheetExists indicates a sheet name that is already taken.
var ErrSheetExists = errors.New("sheet already exists")

// ErrLastSheet indicates an attempt to delete the only sheet of a workbook.
var ErrLastSheet = errors.New("cannot delete the only sheet in the workbook")

// ErrInvalidSheetName indicates a sheet name that spreadsheet applications reject.
var ErrInvalidSheetName = errors.New("invalid sheet name")

// ErrEmptyData indicates a write or append without records.
var ErrEmptyData = errors.New("no data to write")

// ErrInvalidColor indicates a color that is not 6 or 8 hex digits.
var ErrInvalidColor = errors.New("invalid color")

// ErrInvalidOption indicates an unsupported formatting or rule parameter.
var ErrInvalidOption = errors.New("invalid option")

// ErrNamedStyleNotFound indicates a style name that CreateNamedStyle never stored.
var ErrNamedStyleNotFound = errors.New("named style not found")

// ErrCorruptPackage indicates a file that is not a readable zip package.
var ErrCorruptPackage = errors.New("corrupt or non-zip package")

// ErrConversion indicates a failure while patching package parts.
var ErrConversion = errors.New("macro conversion failed")

// ErrNoMacros indicates a workbook without a VBA project.
var ErrNoMacros = errors.New("workbook contains no macros")

// ErrMacroNotFound indicates a macro name that is not declared in the project.
var ErrMacroNotFound = errors.New("macro not found")

// Category tags the kind of failure reported to callers.
type Category string

const (
	// CategoryValidation marks malformed caller input.
	CategoryValidation Category = "ValidationError"
	// CategoryWorkbook marks open, save and metadata failures.
	CategoryWorkbook Category = "WorkbookError"
	// CategorySheet marks sheet existence and uniqueness violations.
	CategorySheet Category = "SheetError"
	// CategoryData marks read and write content failures.
	CategoryData Category = "DataError"
	// CategoryMacro marks macro listing, inspection and conversion failures.
	CategoryMacro Category = "MacroError"
	// CategoryFormatting marks style application failures.
	CategoryFormatting Category = "FormattingError"
	// CategoryUnexpected marks anything not raised through Error.
	CategoryUnexpected Category = "UnexpectedError"
)

// Error is the single failure type returned by Service operations.
type Error struct {
	Category Category
	Op       string // tool-level operation, e.g. "read_range"
	Err      error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error.
func NewError(category Category, op string, err error) *Error {
	return &Error{
		Category: category,
		Op:       op,
		Err:      err,
	}
}

// CategoryOf returns the category carried by err, or CategoryUnexpected.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryUnexpected
}

func validationErr(op string, err error) error { return NewError(CategoryValidation, op, err) }
func workbookErr(op string, err error) error   { return NewError(CategoryWorkbook, op, err) }
func sheetErr(op string, err error) error      { return NewError(CategorySheet, op, err) }
func dataErr(op string, err error) error       { return NewError(CategoryData, op, err) }
func macroErr(op string, err error) error      { return NewError(CategoryMacro, op, err) }
func formattingErr(op string, err error) error { return NewError(CategoryFormatting, op, err) }

// categorize keeps an existing category and wraps anything else with fallback.
func categorize(fallback Category, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(fallback, op, err)
}
