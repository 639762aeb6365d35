package xlsm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/parser"
	"github.com/sirupsen/logrus"
)

// procedureRe matches a Sub or Function declaration at the start of a line.
var procedureRe = regexp.MustCompile(`(?mi)^[ \t]*(?:(?:Public|Private|Friend)[ \t]+)?(?:Static[ \t]+)?(Sub|Function)[ \t]+(\w+)`)

// maxExcerptLines caps the source returned by GetMacroInfo.
const maxExcerptLines = 40

type procedure struct {
	macro models.Macro
	// start is the byte offset of the declaration line in the module source.
	start int
	mod   *parser.VBAModule
}

// HasMacros reports whether the workbook at path is macro-capable. Macro
// extensions are by definition; other packages are checked for a VBA project
// entry.
func (s *Service) HasMacros(path string) (bool, error) {
	const op = "has_macros"
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, macroErr(op, fmt.Errorf("%w: %s", ErrFileNotFound, path))
		}
		return false, macroErr(op, err)
	}
	if macroExts[strings.ToLower(filepath.Ext(path))] {
		return true, nil
	}
	ok, err := parser.HasVBAProject(path)
	if err != nil {
		return false, macroErr(op, fmt.Errorf("%w: %v", ErrCorruptPackage, err))
	}
	return ok, nil
}

// loadModules decodes the VBA modules of path. A package without a project,
// or with the placeholder written by macro enabling, yields no modules.
func (s *Service) loadModules(op, path string) ([]parser.VBAModule, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, macroErr(op, fmt.Errorf("%w: %s", ErrFileNotFound, path))
		}
		return nil, macroErr(op, err)
	}
	project, err := parser.ReadVBAProject(path)
	if err != nil {
		return nil, macroErr(op, fmt.Errorf("%w: %v", ErrCorruptPackage, err))
	}
	if project == nil || parser.IsPlaceholderProject(project) {
		return nil, nil
	}
	modules, err := parser.ReadVBAModules(project)
	if err != nil {
		return nil, macroErr(op, fmt.Errorf("decode VBA project: %w", err))
	}
	return modules, nil
}

func findProcedures(modules []parser.VBAModule) []procedure {
	var procs []procedure
	for i := range modules {
		mod := &modules[i]
		for _, m := range procedureRe.FindAllStringSubmatchIndex(mod.Source, -1) {
			kind := models.MacroSub
			if strings.EqualFold(mod.Source[m[2]:m[3]], "Function") {
				kind = models.MacroFunction
			}
			procs = append(procs, procedure{
				macro: models.Macro{Name: mod.Source[m[4]:m[5]], Type: kind, Module: mod.FileName()},
				start: m[0],
				mod:   mod,
			})
		}
	}
	return procs
}

// ListMacros returns every Sub and Function declared in the workbook's VBA
// project, in module order.
func (s *Service) ListMacros(path string) ([]models.Macro, error) {
	modules, err := s.loadModules("list_macros", path)
	if err != nil {
		return nil, err
	}
	macros := []models.Macro{}
	for _, p := range findProcedures(modules) {
		macros = append(macros, p.macro)
	}
	s.log.WithFields(logrus.Fields{"file": path, "modules": len(modules), "macros": len(macros)}).Debug("macros listed")
	return macros, nil
}

// GetMacroInfo describes the procedure called name, or failing that the
// module called name. Names match case-insensitively.
func (s *Service) GetMacroInfo(path, name string) (*models.MacroInfo, error) {
	const op = "get_macro_info"
	if strings.TrimSpace(name) == "" {
		return nil, validationErr(op, errors.New("macro name is required"))
	}
	modules, err := s.loadModules(op, path)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, macroErr(op, fmt.Errorf("%w: %s", ErrNoMacros, path))
	}

	for _, p := range findProcedures(modules) {
		if !strings.EqualFold(p.macro.Name, name) {
			continue
		}
		code := excerpt(p.mod.Source[p.start:], p.macro.Type)
		return &models.MacroInfo{
			Macro:       p.macro,
			Description: describe(p.macro, leadingComments(p.mod.Source[:p.start])),
			Code:        code,
		}, nil
	}

	for _, mod := range modules {
		if strings.EqualFold(mod.Name, name) {
			macro := models.Macro{Name: mod.Name, Type: models.MacroModule, Module: mod.FileName()}
			return &models.MacroInfo{
				Macro:       macro,
				Description: describe(macro, ""),
				Code:        excerpt(mod.Source, models.MacroModule),
			}, nil
		}
	}
	return nil, macroErr(op, fmt.Errorf("%w: %q", ErrMacroNotFound, name))
}

func describe(m models.Macro, comments string) string {
	desc := fmt.Sprintf("%s %s in %s", m.Type, m.Name, m.Module)
	if comments != "" {
		desc += ": " + comments
	}
	return desc
}

// leadingComments returns the comment block directly above the last line of src.
func leadingComments(src string) string {
	lines := strings.Split(strings.TrimRight(src, "\r\n"), "\n")
	var block []string
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "'") {
			break
		}
		block = append([]string{strings.TrimSpace(strings.TrimLeft(line, "'"))}, block...)
	}
	return strings.TrimSpace(strings.Join(block, " "))
}

// excerpt returns src up to and including the matching End line, capped at
// maxExcerptLines.
func excerpt(src string, kind models.MacroType) string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	end := "End " + string(kind)
	var out []string
	for _, line := range lines {
		if len(out) == maxExcerptLines {
			out = append(out, "' ...")
			break
		}
		out = append(out, line)
		if kind != models.MacroModule && strings.EqualFold(strings.TrimSpace(line), end) {
			break
		}
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
