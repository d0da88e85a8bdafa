package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var (
	ErrNoData        = errors.New("no data to export")
	ErrUnknownFormat = errors.New("unknown export format")
)

// Table is a rectangular report. Row cells may be nil for empty cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// Sealer encrypts written files at rest.
type Sealer interface {
	Configured() bool
	Encrypt(plain []byte) ([]byte, error)
}

type Writer struct {
	Dir      string
	Formats  []string
	FontPath string
	Sealer   Sealer
}

func NewWriter(dir string, formats []string, fontPath string, sealer Sealer) *Writer {
	if len(formats) == 0 {
		formats = []string{FormatXLSX}
	}
	return &Writer{Dir: dir, Formats: formats, FontPath: fontPath, Sealer: sealer}
}

// Write stores table once per configured format as <Dir>/<baseName>.<format>
// and returns the written paths. An empty table writes nothing and returns
// ErrNoData.
func (w *Writer) Write(table Table, baseName string) ([]string, error) {
	if len(table.Rows) == 0 {
		return nil, ErrNoData
	}
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for _, format := range w.Formats {
		path := filepath.Join(dir, baseName+"."+format)
		var err error
		switch strings.ToLower(format) {
		case FormatXLSX:
			err = writeXLSX(table, path)
		case FormatPDF:
			err = writePDF(table, path, w.FontPath)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownFormat, format)
		}
		if err != nil {
			return paths, err
		}
		if path, err = w.seal(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) seal(path string) (string, error) {
	if w.Sealer == nil || !w.Sealer.Configured() {
		return path, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	encrypted, err := w.Sealer.Encrypt(data)
	if err != nil {
		return "", err
	}
	encryptedPath := path + ".enc"
	if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return encryptedPath, nil
}

func cellText(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
