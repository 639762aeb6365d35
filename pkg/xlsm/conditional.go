package xlsm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/address"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/parser"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// cellIsOperators maps rule operators to the document library's criteria.
var cellIsOperators = map[string]string{
	"equal":              "==",
	"notequal":           "!=",
	"greaterthan":        ">",
	"lessthan":           "<",
	"greaterthanorequal": ">=",
	"lessthanorequal":    "<=",
	"between":            "between",
	"notbetween":         "not between",
}

// iconStyles lists the icon set presets spreadsheet applications know.
var iconStyles = map[string]bool{
	"3Arrows": true, "3ArrowsGray": true, "3Flags": true, "3Signs": true,
	"3Symbols": true, "3Symbols2": true, "3TrafficLights1": true, "3TrafficLights2": true,
	"4Arrows": true, "4ArrowsGray": true, "4Rating": true, "4RedToBlack": true,
	"4TrafficLights": true, "5Arrows": true, "5ArrowsGray": true, "5Quarters": true,
	"5Rating": true,
}

// conditionalPlan is a validated rule ready to be written.
type conditionalPlan struct {
	opts excelize.ConditionalFormatOptions
	// highlight is the ARGB fill for rules that style matching cells.
	highlight string
	// style is the caller's differential style, if any.
	style *resolvedFormat
}

func planRule(rule ConditionalRule) (conditionalPlan, error) {
	plan := conditionalPlan{opts: excelize.ConditionalFormatOptions{StopIfTrue: rule.StopIfTrue}}
	if rule.Priority < 0 {
		return plan, fmt.Errorf("%w: priority must not be negative, got %d", ErrInvalidOption, rule.Priority)
	}
	highlight := func() error {
		color := rule.FillColor
		if rule.Style != nil {
			if rule.Style.MergeCells {
				return fmt.Errorf("%w: rule styles cannot merge cells", ErrInvalidOption)
			}
			rf, err := resolveFormat(*rule.Style)
			if err != nil {
				return fmt.Errorf("rule style: %w", err)
			}
			plan.style = &rf
			if strings.TrimSpace(color) == "" {
				return nil
			}
		}
		if strings.TrimSpace(color) == "" {
			color = DefaultHighlight
		}
		c, err := NormalizeColor(color)
		if err != nil {
			return fmt.Errorf("fill color: %w", err)
		}
		plan.highlight = c
		return nil
	}

	switch RuleType(strings.ToLower(string(rule.Type))) {
	case "":
		return plan, fmt.Errorf("%w: rule type is required", ErrInvalidOption)

	case RuleFormula:
		formula := strings.TrimPrefix(strings.TrimSpace(rule.Formula), "=")
		if formula == "" {
			return plan, fmt.Errorf("%w: formula rules need a formula", ErrInvalidOption)
		}
		plan.opts.Type = "formula"
		plan.opts.Criteria = formula
		return plan, highlight()

	case RuleCellIs:
		criteria, ok := cellIsOperators[strings.ToLower(strings.ReplaceAll(rule.Operator, "_", ""))]
		if !ok {
			return plan, fmt.Errorf("%w: cell_is operator %q", ErrInvalidOption, rule.Operator)
		}
		if strings.TrimSpace(rule.Value) == "" {
			return plan, fmt.Errorf("%w: cell_is rules need a value", ErrInvalidOption)
		}
		plan.opts.Type = "cell"
		plan.opts.Criteria = criteria
		if criteria == "between" || criteria == "not between" {
			if strings.TrimSpace(rule.Value2) == "" {
				return plan, fmt.Errorf("%w: %s needs value2", ErrInvalidOption, rule.Operator)
			}
			plan.opts.MinValue = operand(rule.Value)
			plan.opts.MaxValue = operand(rule.Value2)
		} else {
			plan.opts.Value = operand(rule.Value)
		}
		return plan, highlight()

	case RuleContainsText:
		if rule.Text == "" {
			return plan, fmt.Errorf("%w: contains_text rules need text", ErrInvalidOption)
		}
		plan.opts.Type = "text"
		plan.opts.Criteria = "containing"
		plan.opts.Value = rule.Text
		return plan, highlight()

	case RuleColorScale:
		colors := rule.Colors
		if len(colors) < 2 {
			colors = DefaultColorScale
		}
		if len(colors) > 3 {
			return plan, fmt.Errorf("%w: color scales take 2 or 3 colors, got %d", ErrInvalidOption, len(colors))
		}
		stops := make([]string, len(colors))
		for i, c := range colors {
			argb, err := NormalizeColor(c)
			if err != nil {
				return plan, fmt.Errorf("color scale stop %d: %w", i+1, err)
			}
			stops[i] = rgb(argb)
		}
		plan.opts.Criteria = "="
		plan.opts.MinType, plan.opts.MinColor = "min", stops[0]
		plan.opts.MaxType, plan.opts.MaxColor = "max", stops[len(stops)-1]
		if len(stops) == 3 {
			plan.opts.Type = "3_color_scale"
			plan.opts.MidType, plan.opts.MidValue, plan.opts.MidColor = "percentile", "50", stops[1]
		} else {
			plan.opts.Type = "2_color_scale"
		}
		return plan, nil

	case RuleDataBar:
		color := rule.Color
		if strings.TrimSpace(color) == "" {
			color = DefaultDataBarColor
		}
		argb, err := NormalizeColor(color)
		if err != nil {
			return plan, fmt.Errorf("data bar color: %w", err)
		}
		plan.opts.Type = "data_bar"
		plan.opts.Criteria = "="
		plan.opts.MinType, plan.opts.MaxType = "min", "max"
		plan.opts.BarColor = rgb(argb)
		return plan, nil

	case RuleIconSet:
		style := rule.IconStyle
		if style == "" {
			style = DefaultIconStyle
		}
		if !iconStyles[style] {
			return plan, fmt.Errorf("%w: icon style %q", ErrInvalidOption, style)
		}
		plan.opts.Type = "icon_set"
		plan.opts.IconStyle = style
		return plan, nil
	}
	return plan, fmt.Errorf("%w: rule type %q", ErrInvalidOption, rule.Type)
}

// differentialStyle builds the style applied to matching cells, or nil for
// rules that draw their own visuals.
func (p conditionalPlan) differentialStyle() *excelize.Style {
	if p.style == nil && p.highlight == "" {
		return nil
	}
	style := &excelize.Style{}
	if p.style != nil {
		p.style.apply(style)
		if font := style.Font; !font.Bold && !font.Italic && font.Underline == "" && font.Size == 0 && font.Color == "" {
			style.Font = nil
		}
	}
	if p.highlight != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{rgb(p.highlight)}}
	}
	return style
}

// operand renders a cell_is bound as a formula operand: numbers and
// formulas pass through, anything else becomes a quoted string.
func operand(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "=") {
		return v[1:]
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) > 1 {
		return v
	}
	return strconv.Quote(v)
}

// ApplyConditionalFormat adds rule to rangeRef ("A1:C10" or a single cell) of sheet.
func (s *Service) ApplyConditionalFormat(path, sheet, rangeRef string, rule ConditionalRule) error {
	const op = "apply_conditional_formatting"
	plan, err := planRule(rule)
	if err != nil {
		return validationErr(op, err)
	}
	r, err := address.ParseRange(rangeRef)
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

	if style := plan.differentialStyle(); style != nil {
		id, err := f.NewConditionalStyle(style)
		if err != nil {
			return formattingErr(op, fmt.Errorf("create rule style: %w", err))
		}
		plan.opts.Format = &id
	}
	if err := f.SetConditionalFormat(sheet, r.String(), []excelize.ConditionalFormatOptions{plan.opts}); err != nil {
		if errors.Is(err, excelize.ErrParameterInvalid) {
			err = fmt.Errorf("%w: %s rule rejected: %v", ErrInvalidOption, rule.Type, err)
		}
		return formattingErr(op, err)
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	if rule.Priority > 0 {
		if err := parser.SetRulePriority(path, sheet, r.String(), rule.Priority); err != nil {
			return formattingErr(op, fmt.Errorf("set priority %d: %w", rule.Priority, err))
		}
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": r.String(), "rule": plan.opts.Type, "priority": rule.Priority}).Info("conditional format applied")
	return nil
}

// RemoveConditionalFormat deletes the conditional formatting stored for
// rangeRef on sheet, or all of the sheet's conditional formatting when
// rangeRef is empty. It returns the number of rule groups removed.
func (s *Service) RemoveConditionalFormat(path, sheet, rangeRef string) (int, error) {
	const op = "remove_conditional_formatting"
	var target *address.Range
	if strings.TrimSpace(rangeRef) != "" {
		r, err := address.ParseRange(rangeRef)
		if err != nil {
			return 0, validationErr(op, err)
		}
		target = &r
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheet, err = requireSheet(op, f, sheet)
	if err != nil {
		return 0, err
	}

	removed := 0
	for {
		formats, err := f.GetConditionalFormats(sheet)
		if err != nil {
			return 0, formattingErr(op, err)
		}
		ref, ok := ruleGroup(formats, target)
		if !ok {
			break
		}
		// Each call drops one group; a range can hold several.
		if err := f.UnsetConditionalFormat(sheet, ref); err != nil {
			return 0, formattingErr(op, err)
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": rangeRef, "groups": removed}).Info("conditional formatting removed")
	return removed, nil
}

// ruleGroup picks a stored range to remove: any when target is nil, otherwise
// one covering exactly target.
func ruleGroup(formats map[string][]excelize.ConditionalFormatOptions, target *address.Range) (string, bool) {
	for ref := range formats {
		if target == nil {
			return ref, true
		}
		if r, err := address.ParseRange(ref); err == nil && r == *target {
			return ref, true
		}
	}
	return "", false
}
