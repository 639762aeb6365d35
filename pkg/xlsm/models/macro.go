package models

// MacroType classifies a discovered VBA declaration.
type MacroType string

const (
	// MacroModule is a whole VBA module.
	MacroModule MacroType = "Module"
	// MacroSub is a Sub procedure.
	MacroSub MacroType = "Sub"
	// MacroFunction is a Function procedure.
	MacroFunction MacroType = "Function"
)

// Macro describes one VBA declaration found in a workbook.
type Macro struct {
	// Name is the procedure or module name.
	Name string `json:"name"`
	// Type is Module, Sub or Function.
	Type MacroType `json:"type"`
	// Module is the source module file name, e.g. "Module1.bas".
	Module string `json:"module"`
}

// MacroInfo is a Macro with a description and the start of its source.
type MacroInfo struct {
	Macro
	// Description is a short human-readable summary.
	Description string `json:"description"`
	// Code is the declaration and up to a few following source lines.
	Code string `json:"code,omitempty"`
}
