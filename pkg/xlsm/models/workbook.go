package models

import "time"

// WorkbookInfo is the metadata reported for a workbook file.
type WorkbookInfo struct {
	// Path is the workbook path as given.
	Path string `json:"filepath"`
	// FileName is the file name (no directory).
	FileName string `json:"filename"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// Modified is the file modification time.
	Modified time.Time `json:"modified"`
	// HasMacros reports whether the package carries a VBA project.
	HasMacros bool `json:"has_macros"`
	// SheetNames lists sheets in workbook order.
	SheetNames []string `json:"sheet_names"`
	// ActiveSheet is the sheet selected when the file was saved.
	ActiveSheet string `json:"active_sheet"`
	// Sheets holds per-sheet summaries, present when ranges were requested.
	Sheets []SheetInfo `json:"sheets,omitempty"`
	// Properties holds core document properties.
	Properties *DocProperties `json:"properties,omitempty"`
	// Macros lists the VBA procedures, when requested.
	Macros []Macro `json:"macros,omitempty"`
}

// DocProperties mirrors the core document properties of a package.
type DocProperties struct {
	Title          string `json:"title,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Creator        string `json:"creator,omitempty"`
	Keywords       string `json:"keywords,omitempty"`
	Description    string `json:"description,omitempty"`
	LastModifiedBy string `json:"last_modified_by,omitempty"`
	Category       string `json:"category,omitempty"`
	Created        string `json:"created,omitempty"`
	Modified       string `json:"modified,omitempty"`
}
