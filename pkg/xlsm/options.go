// Package xlsm reads, writes and formats xlsx/xlsm workbooks, inspects their
// VBA projects and converts macro-free packages into macro-enabled ones.
package xlsm

// ReadOptions configures range reads.
type ReadOptions struct {
	// IncludeFormulas returns "=<formula>" for formula cells instead of their cached values.
	IncludeFormulas bool
}

// Protection holds cell protection flags. Nil fields keep the current setting.
type Protection struct {
	Locked *bool `json:"locked,omitempty"`
	Hidden *bool `json:"hidden,omitempty"`
}

// FormatOptions describes the styling applied by FormatRange, stored by
// CreateNamedStyle and used as a conditional rule style.
// Zero values leave the corresponding aspect of each cell unchanged, except
// the font flags, which are always written.
type FormatOptions struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
	// FontSize in points. Nil keeps the current size.
	FontSize *float64 `json:"font_size,omitempty"`
	// FontColor as 6 or 8 hex digits, optionally prefixed with '#'.
	FontColor string `json:"font_color,omitempty"`
	// BgColor sets a solid fill.
	BgColor string `json:"bg_color,omitempty"`
	// BorderStyle is one of thin, medium, thick, double, dashed, dotted.
	BorderStyle string `json:"border_style,omitempty"`
	// BorderColor defaults to black when a border style is given.
	BorderColor string `json:"border_color,omitempty"`
	// NumberFormat is a custom number format code such as "0.00%".
	NumberFormat string `json:"number_format,omitempty"`
	// Alignment is one of left, center, right, justify, general.
	Alignment string `json:"alignment,omitempty"`
	WrapText  bool   `json:"wrap_text,omitempty"`
	// MergeCells merges the range when it spans more than one cell. Only
	// FormatRange honors it.
	MergeCells bool        `json:"merge_cells,omitempty"`
	Protection *Protection `json:"protection,omitempty"`
}

// RuleType names a conditional formatting rule kind.
type RuleType string

const (
	RuleFormula      RuleType = "formula"
	RuleCellIs       RuleType = "cell_is"
	RuleColorScale   RuleType = "color_scale"
	RuleDataBar      RuleType = "data_bar"
	RuleIconSet      RuleType = "icon_set"
	RuleContainsText RuleType = "contains_text"
)

// ConditionalRule describes one conditional formatting rule. Only the fields
// relevant to Type are read.
type ConditionalRule struct {
	Type RuleType
	// Formula is required by formula rules.
	Formula string
	// Operator and Value are required by cell_is rules; Value2 is the upper
	// bound for between and notBetween.
	Operator string
	Value    string
	Value2   string
	// Text is required by contains_text rules.
	Text string
	// Colors are the color scale stops, low to high.
	Colors []string
	// Color is the data bar color.
	Color string
	// IconStyle is the icon set preset, e.g. "3Arrows".
	IconStyle string
	// FillColor highlights matching cells for formula, cell_is and contains_text.
	FillColor string
	// Style is the full differential style for formula, cell_is and
	// contains_text rules. FillColor, when also set, overrides its fill.
	Style      *FormatOptions
	StopIfTrue bool
	// Priority places the rule among the sheet's rules, 1 being evaluated
	// first. Zero appends it after the existing rules.
	Priority int
}

// Defaults used when a rule omits its optional parameters.
var (
	DefaultColorScale   = []string{"FFFF0000", "FFFFFF00", "FF00FF00"}
	DefaultDataBarColor = "FF638EC6"
	DefaultIconStyle    = "3Arrows"
	DefaultHighlight    = "FFFFFF00"
)
