package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
)

// Fixed part names inside a spreadsheet package.
const (
	PartContentTypes = "[Content_Types].xml"
	PartWorkbook     = "xl/workbook.xml"
	PartVBAProject   = "xl/vbaProject.bin"
)

// ErrPartNotFound indicates a package part that is required but absent.
var ErrPartNotFound = errors.New("package part not found")

// CheckPackage opens and closes a zip reader over path.
func CheckPackage(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	return r.Close()
}

// HasVBAProject reports whether any entry of the package at path names a VBA project.
func HasVBAProject(path string) (bool, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false, err
	}
	defer r.Close()
	return findVBAProject(&r.Reader) != nil, nil
}

// ReadVBAProject returns the raw VBA project part, or nil when the package has none.
func ReadVBAProject(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f := findVBAProject(&r.Reader)
	if f == nil {
		return nil, nil
	}
	return readZipEntry(f)
}

// PlaceholderProject returns a copy of the stub VBA project written by EnableMacros.
func PlaceholderProject() []byte {
	return bytes.Clone(vbaPlaceholder)
}

// IsPlaceholderProject reports whether data is the stub written by EnableMacros.
func IsPlaceholderProject(data []byte) bool {
	return bytes.Equal(data, vbaPlaceholder)
}

func findVBAProject(r *zip.Reader) *zip.File {
	for _, f := range r.File {
		if f.Name == PartVBAProject {
			return f
		}
	}
	for _, f := range r.File {
		if strings.Contains(f.Name, "vbaProject") {
			return f
		}
	}
	return nil
}

// readZipFile returns the content of the named entry, or nil when absent.
func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			return readZipEntry(f)
		}
	}
	return nil, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
