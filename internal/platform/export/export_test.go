package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:   "Attendance",
		Headers: []string{"ID", "FIO", "Late (min)", "Status"},
		Rows: [][]any{
			{1, "Ivan Petrov", 15, "Present"},
			{2, "Anna Ivanova", nil, "Absent"},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil, "", nil)

	paths, err := w.Write(sampleTable(), "report")
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if len(paths) != 1 || paths[0] != filepath.Join(dir, "report.xlsx") {
		t.Fatalf("unexpected paths %v", paths)
	}

	f, err := excelize.OpenFile(paths[0])
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "FIO" || rows[1][1] != "Ivan Petrov" || rows[1][2] != "15" {
		t.Fatalf("unexpected content %v", rows)
	}
	if rows[2][3] != "Absent" || rows[2][2] != "" {
		t.Fatalf("expected blank metric for absent row, got %v", rows[2])
	}
}

func TestWriteEmptyTableWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{FormatXLSX, FormatPDF}, "", nil)

	table := sampleTable()
	table.Rows = nil
	paths, err := w.Write(table, "empty")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no paths, got %v", paths)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files, found %d", len(entries))
	}
}

func TestWritePDF(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, []string{FormatPDF}, "", nil)

	paths, err := w.Write(sampleTable(), "report")
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	w := NewWriter(t.TempDir(), []string{"csv"}, "", nil)
	if _, err := w.Write(sampleTable(), "report"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

type reverseSealer struct{}

func (reverseSealer) Configured() bool { return true }

func (reverseSealer) Encrypt(plain []byte) ([]byte, error) {
	out := make([]byte, len(plain))
	for i, b := range plain {
		out[len(plain)-1-i] = b
	}
	return out, nil
}

func TestWriteSealsFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil, "", reverseSealer{})

	paths, err := w.Write(sampleTable(), "report")
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if paths[0] != filepath.Join(dir, "report.xlsx.enc") {
		t.Fatalf("unexpected sealed path %v", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.xlsx")); !os.IsNotExist(err) {
		t.Fatal("expected plain file to be removed")
	}
}
