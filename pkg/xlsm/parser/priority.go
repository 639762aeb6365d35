package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// PartWorkbookRels is the relationship part that maps sheet ids to worksheet parts.
const PartWorkbookRels = "xl/_rels/workbook.xml.rels"

// ErrRuleNotFound indicates a range without conditional formatting rules.
var ErrRuleNotFound = errors.New("conditional formatting rule not found")

// SetRulePriority moves the last conditional formatting rule stored for sqref
// on sheet to the given priority, 1 being evaluated first. The sheet's other
// rules keep their relative order and are renumbered around it. Priorities
// past the last rule put it last.
func SetRulePriority(path, sheet, sqref string, priority int) error {
	if priority < 1 {
		return fmt.Errorf("priority must be at least 1, got %d", priority)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	part, err := SheetPart(zr, sheet)
	if err != nil {
		return err
	}
	raw, err := readZipFile(zr, part)
	if err != nil {
		return fmt.Errorf("read %s: %w", part, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: %s", ErrPartNotFound, part)
	}
	patched, err := PatchRulePriority(raw, sqref, priority)
	if err != nil {
		return err
	}
	return rewriteArchive(path, zr, map[string][]byte{part: patched})
}

// PatchRulePriority renumbers the cfRule priorities of a worksheet part so the
// last rule on sqref lands at priority.
func PatchRulePriority(data []byte, sqref string, priority int) ([]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.ValidateInput = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse worksheet: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "worksheet" {
		return nil, errors.New("parse worksheet: missing worksheet element")
	}

	var rules []*etree.Element
	var target *etree.Element
	for _, cf := range root.SelectElements("conditionalFormatting") {
		for _, rule := range cf.SelectElements("cfRule") {
			rules = append(rules, rule)
			if strings.EqualFold(cf.SelectAttrValue("sqref", ""), sqref) {
				target = rule
			}
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, sqref)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rulePriority(rules[i]) < rulePriority(rules[j])
	})
	ordered := make([]*etree.Element, 0, len(rules))
	for _, rule := range rules {
		if rule != target {
			ordered = append(ordered, rule)
		}
	}
	pos := min(priority-1, len(ordered))
	ordered = slices.Insert(ordered, pos, target)
	for i, rule := range ordered {
		rule.CreateAttr("priority", strconv.Itoa(i+1))
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write worksheet: %w", err)
	}
	return out, nil
}

// rulePriority reads the priority attribute; rules without one sort last.
func rulePriority(rule *etree.Element) int {
	p, err := strconv.Atoi(rule.SelectAttrValue("priority", ""))
	if err != nil {
		return math.MaxInt
	}
	return p
}

// SheetPart resolves the worksheet part name of sheet through the workbook
// part and its relationships.
func SheetPart(zr *zip.Reader, sheet string) (string, error) {
	workbook, err := readZipFile(zr, PartWorkbook)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", PartWorkbook, err)
	}
	if workbook == nil {
		return "", fmt.Errorf("%w: %s", ErrPartNotFound, PartWorkbook)
	}
	rels, err := readZipFile(zr, PartWorkbookRels)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", PartWorkbookRels, err)
	}
	if rels == nil {
		return "", fmt.Errorf("%w: %s", ErrPartNotFound, PartWorkbookRels)
	}

	wb := etree.NewDocument()
	if err := wb.ReadFromBytes(workbook); err != nil {
		return "", fmt.Errorf("parse %s: %w", PartWorkbook, err)
	}
	var id string
	for _, s := range wb.FindElements("//sheets/sheet") {
		if s.SelectAttrValue("name", "") == sheet {
			id = s.SelectAttrValue("r:id", "")
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("%w: sheet %q", ErrPartNotFound, sheet)
	}

	rd := etree.NewDocument()
	if err := rd.ReadFromBytes(rels); err != nil {
		return "", fmt.Errorf("parse %s: %w", PartWorkbookRels, err)
	}
	for _, rel := range rd.FindElements("//Relationship") {
		if rel.SelectAttrValue("Id", "") != id {
			continue
		}
		target := rel.SelectAttrValue("Target", "")
		if strings.HasPrefix(target, "/") {
			return strings.TrimPrefix(target, "/"), nil
		}
		return path.Join("xl", target), nil
	}
	return "", fmt.Errorf("%w: relationship %s", ErrPartNotFound, id)
}
