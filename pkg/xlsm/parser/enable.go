package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

// Content types involved in macro enablement.
const (
	ContentTypeVBAProject = "application/vnd.ms-office.vbaProject"
	ContentTypeSheetMain  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ContentTypeMacroMain  = "application/vnd.ms-excel.sheet.macroEnabled.main+xml"
)

// vbaPlaceholder is a bare compound-file signature followed by zero padding.
// It marks the package as carrying a VBA project but holds no modules.
var vbaPlaceholder = []byte{
	0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// EnableMacros patches the package at path in place so that it declares a VBA
// project: content types gain the vbaProject override and bin default, the
// placeholder project part is added when missing, and workbookPr gains a code
// name. The archive is rewritten to a temporary file and renamed over path.
// Running it on an already patched package changes nothing of substance.
func EnableMacros(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	contentTypes, err := readZipFile(zr, PartContentTypes)
	if err != nil {
		return fmt.Errorf("read %s: %w", PartContentTypes, err)
	}
	if contentTypes == nil {
		return fmt.Errorf("%w: %s", ErrPartNotFound, PartContentTypes)
	}
	workbook, err := readZipFile(zr, PartWorkbook)
	if err != nil {
		return fmt.Errorf("read %s: %w", PartWorkbook, err)
	}
	if workbook == nil {
		return fmt.Errorf("%w: %s", ErrPartNotFound, PartWorkbook)
	}

	patched := make(map[string][]byte, 3)
	if patched[PartContentTypes], err = PatchContentTypes(contentTypes); err != nil {
		return err
	}
	if patched[PartWorkbook], err = PatchWorkbook(workbook); err != nil {
		return err
	}
	if findVBAProject(zr) == nil {
		patched[PartVBAProject] = vbaPlaceholder
	}

	return rewriteArchive(path, zr, patched)
}

// PatchContentTypes ensures [Content_Types].xml declares the VBA project part.
func PatchContentTypes(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.ValidateInput = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PartContentTypes, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Types" {
		return nil, fmt.Errorf("parse %s: missing Types element", PartContentTypes)
	}

	hasProject := false
	for _, o := range root.SelectElements("Override") {
		partName := o.SelectAttrValue("PartName", "")
		if strings.Contains(partName, "vbaProject") {
			hasProject = true
		}
		if strings.EqualFold(partName, "/"+PartWorkbook) && o.SelectAttrValue("ContentType", "") == ContentTypeSheetMain {
			o.CreateAttr("ContentType", ContentTypeMacroMain)
		}
	}
	if !hasProject {
		o := root.CreateElement("Override")
		o.CreateAttr("PartName", "/"+PartVBAProject)
		o.CreateAttr("ContentType", ContentTypeVBAProject)
	}

	hasBin := false
	for _, d := range root.SelectElements("Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), "bin") {
			hasBin = true
			break
		}
	}
	if !hasBin {
		d := etree.NewElement("Default")
		d.CreateAttr("Extension", "bin")
		d.CreateAttr("ContentType", ContentTypeVBAProject)
		root.InsertChildAt(0, d)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", PartContentTypes, err)
	}
	return out, nil
}

// PatchWorkbook ensures xl/workbook.xml carries workbookPr with a code name and
// macros not suppressed. An existing code name is kept.
func PatchWorkbook(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.ValidateInput = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PartWorkbook, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "workbook" {
		return nil, fmt.Errorf("parse %s: missing workbook element", PartWorkbook)
	}

	pr := root.SelectElement("workbookPr")
	if pr == nil {
		tag := "workbookPr"
		if root.Space != "" {
			tag = root.Space + ":" + tag
		}
		pr = etree.NewElement(tag)
		root.InsertChildAt(workbookPrIndex(root), pr)
	}
	if pr.SelectAttr("codeName") == nil {
		pr.CreateAttr("codeName", "ThisWorkbook")
	}
	pr.CreateAttr("vbaSuppressed", "0")

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", PartWorkbook, err)
	}
	return out, nil
}

// workbookPrIndex returns the child position after fileVersion and fileSharing,
// where workbookPr belongs in a workbook part.
func workbookPrIndex(root *etree.Element) int {
	for _, c := range root.ChildElements() {
		if c.Tag != "fileVersion" && c.Tag != "fileSharing" {
			return c.Index()
		}
	}
	return len(root.Child)
}

// rewriteArchive writes every entry of zr to a temporary file next to path,
// substituting the parts in patched (and appending those zr lacks), then
// renames the result over path.
func rewriteArchive(path string, zr *zip.Reader, patched map[string][]byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".xlsm-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if info, statErr := os.Stat(path); statErr == nil {
		if err = tmp.Chmod(info.Mode().Perm()); err != nil {
			return err
		}
	}

	zw := zip.NewWriter(tmp)
	written := make(map[string]bool, len(patched))
	for _, f := range zr.File {
		data, ok := patched[f.Name]
		if !ok {
			if err = zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err = writeZipEntry(zw, f.Name, data); err != nil {
			return err
		}
		written[f.Name] = true
	}
	for _, name := range []string{PartContentTypes, PartWorkbook, PartVBAProject} {
		data, ok := patched[name]
		if !ok || written[name] {
			continue
		}
		if err = writeZipEntry(zw, name, data); err != nil {
			return err
		}
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
