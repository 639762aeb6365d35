package xlsm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/address"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// namedStylePrefix marks the custom document properties holding named style
// definitions.
const namedStylePrefix = "xlsm-mcp.style."

// CreateNamedStyle stores opts under name so ApplyNamedStyle can reuse it on
// any sheet of the workbook. A style of the same name is replaced; the result
// reports whether one existed.
func (s *Service) CreateNamedStyle(path, name string, opts FormatOptions) (bool, error) {
	const op = "create_named_style"
	name = strings.TrimSpace(name)
	if name == "" {
		return false, validationErr(op, errors.New("style name is required"))
	}
	if opts.MergeCells {
		return false, validationErr(op, fmt.Errorf("%w: named styles cannot merge cells", ErrInvalidOption))
	}
	rf, err := resolveFormat(opts)
	if err != nil {
		return false, validationErr(op, err)
	}
	def, err := json.Marshal(opts)
	if err != nil {
		return false, formattingErr(op, fmt.Errorf("encode style %q: %w", name, err))
	}

	f, err := s.openWorkbook(op, path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	styles, err := namedStyles(f)
	if err != nil {
		return false, formattingErr(op, err)
	}
	_, replaced := styles[name]

	// Fails on formats the document library rejects.
	style := &excelize.Style{}
	rf.apply(style)
	if _, err := f.NewStyle(style); err != nil {
		return false, formattingErr(op, fmt.Errorf("style %q: %w", name, err))
	}
	if err := f.SetCustomProps(excelize.CustomProperty{Name: namedStylePrefix + name, Value: string(def)}); err != nil {
		return false, formattingErr(op, fmt.Errorf("store style %q: %w", name, err))
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return false, err
	}
	s.log.WithFields(logrus.Fields{"file": path, "style": name, "replaced": replaced}).Info("named style created")
	return replaced, nil
}

// ApplyNamedStyle sets every cell from start to end to the style stored
// under name, replacing the cells' previous formatting.
func (s *Service) ApplyNamedStyle(path, sheet, start, end, name string) error {
	const op = "apply_named_style"
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErr(op, errors.New("style name is required"))
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
	opts, err := lookupNamedStyle(op, f, name)
	if err != nil {
		return categorize(CategoryFormatting, op, err)
	}
	rf, err := resolveFormat(opts)
	if err != nil {
		return formattingErr(op, fmt.Errorf("stored style %q: %w", name, err))
	}
	style := &excelize.Style{}
	rf.apply(style)
	id, err := f.NewStyle(style)
	if err != nil {
		return formattingErr(op, fmt.Errorf("style %q: %w", name, err))
	}
	if err := f.SetCellStyle(sheet, r.Start.String(), r.End.String(), id); err != nil {
		return formattingErr(op, fmt.Errorf("%s!%s: %w", sheet, r, err))
	}

	if err := s.saveWorkbook(op, f); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"file": path, "sheet": sheet, "range": r.String(), "style": name}).Info("named style applied")
	return nil
}

// lookupNamedStyle returns the definition stored under name. An unknown name
// is a validation failure; unreadable definitions are returned as they are.
func lookupNamedStyle(op string, f *excelize.File, name string) (FormatOptions, error) {
	styles, err := namedStyles(f)
	if err != nil {
		return FormatOptions{}, err
	}
	opts, ok := styles[name]
	if !ok {
		known := make([]string, 0, len(styles))
		for n := range styles {
			known = append(known, n)
		}
		sort.Strings(known)
		return FormatOptions{}, validationErr(op, fmt.Errorf("%w: %q (defined: %s)", ErrNamedStyleNotFound, name, strings.Join(known, ", ")))
	}
	return opts, nil
}

// namedStyles decodes every named style definition of f.
func namedStyles(f *excelize.File) (map[string]FormatOptions, error) {
	props, err := f.GetCustomProps()
	if err != nil {
		return nil, fmt.Errorf("read custom properties: %w", err)
	}
	styles := make(map[string]FormatOptions)
	for _, p := range props {
		name, ok := strings.CutPrefix(p.Name, namedStylePrefix)
		if !ok {
			continue
		}
		def, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("named style %q: unexpected %T definition", name, p.Value)
		}
		var opts FormatOptions
		if err := json.Unmarshal([]byte(def), &opts); err != nil {
			return nil, fmt.Errorf("named style %q: %w", name, err)
		}
		styles[name] = opts
	}
	return styles, nil
}
