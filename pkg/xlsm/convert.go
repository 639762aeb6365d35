package xlsm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/orlando2019/xlsm-mcp-server/pkg/xlsm/parser"
	"github.com/sirupsen/logrus"
)

// ConvertToXLSM copies the .xlsx package src to dst and patches the copy so
// spreadsheet applications open it as macro-enabled. An empty dst defaults to
// src with an .xlsm extension; any other dst must end in .xlsm. A src that is already macro-capable is
// returned unchanged. The source is never modified.
func (s *Service) ConvertToXLSM(src, dst string) (string, error) {
	const op = "convert_to_xlsm"
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", macroErr(op, fmt.Errorf("%w: %s", ErrFileNotFound, src))
		}
		return "", macroErr(op, err)
	}
	ext := strings.ToLower(filepath.Ext(src))
	if macroExts[ext] {
		s.log.WithField("file", src).Info("workbook is already macro-enabled")
		return src, nil
	}
	if ext != ".xlsx" {
		return "", macroErr(op, fmt.Errorf("%w: %s is not an .xlsx workbook", ErrInvalidFormat, src))
	}
	if err := parser.CheckPackage(src); err != nil {
		return "", macroErr(op, fmt.Errorf("%w: %v", ErrCorruptPackage, err))
	}

	if strings.TrimSpace(dst) == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".xlsm"
	}
	if !strings.EqualFold(filepath.Ext(dst), ".xlsm") {
		return "", validationErr(op, fmt.Errorf("%w: destination %s must have an .xlsm extension", ErrInvalidFormat, dst))
	}
	if same, err := samePath(src, dst); err != nil {
		return "", macroErr(op, err)
	} else if same {
		return "", validationErr(op, fmt.Errorf("destination %s is the source file", dst))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", macroErr(op, fmt.Errorf("create destination directory: %w", err))
	}
	if err := checkWritable(dst); err != nil {
		return "", macroErr(op, err)
	}

	if err := copyFile(src, dst); err != nil {
		return "", macroErr(op, fmt.Errorf("%w: copy: %v", ErrConversion, err))
	}
	if err := parser.EnableMacros(dst); err != nil {
		return "", macroErr(op, fmt.Errorf("%w: %v", ErrConversion, err))
	}

	s.log.WithFields(logrus.Fields{"source": src, "destination": dst}).Info("workbook converted to xlsm")
	return dst, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// checkWritable refuses an existing path that cannot be opened for writing.
func checkWritable(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("destination %s is a directory", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("destination %s is not writable: %w", path, err)
	}
	return f.Close()
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
