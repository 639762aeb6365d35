package parser

import (
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/address"
	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/models"
	"github.com/xuri/excelize/v2"
)

// ExtractPrintAreas returns the print areas of a workbook keyed by sheet name.
func ExtractPrintAreas(f *excelize.File) map[string][]models.PrintArea {
	result := make(map[string][]models.PrintArea)
	for _, dn := range f.GetDefinedName() {
		if !strings.EqualFold(dn.Name, "_xlnm.Print_Area") {
			continue
		}
		sheetName, areas := parsePrintAreaReference(dn.RefersTo)
		if sheetName != "" && len(areas) > 0 {
			result[sheetName] = append(result[sheetName], areas...)
		}
	}
	return result
}

// parsePrintAreaReference parses 'Sheet Name'!$A$1:$D$10,'Sheet Name'!$F$1:$G$4.
func parsePrintAreaReference(ref string) (string, []models.PrintArea) {
	var sheetName string
	var areas []models.PrintArea
	for _, part := range strings.Split(ref, ",") {
		idx := strings.LastIndex(part, "!")
		if idx < 0 {
			continue
		}
		if sheetName == "" {
			sheetName = strings.ReplaceAll(strings.Trim(strings.TrimSpace(part[:idx]), "'"), "''", "'")
		}
		if area, ok := parseRangeToArea(part[idx+1:]); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

// parseRangeToArea parses an absolute range like $A$1:$D$10.
func parseRangeToArea(rangeStr string) (models.PrintArea, bool) {
	r, err := address.ParseRange(strings.ReplaceAll(rangeStr, "$", ""))
	if err != nil {
		return models.PrintArea{}, false
	}
	return models.PrintArea{
		R1: r.Start.Row,
		C1: r.Start.Col,
		R2: r.End.Row,
		C2: r.End.Col,
	}, true
}
