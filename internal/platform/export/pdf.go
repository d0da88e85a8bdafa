package export

import (
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
)

func writePDF(table Table, path, fontPath string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	family := "Helvetica"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", fontPath)
		pdf.AddUTF8Font(family, "B", fontPath)
		translate = func(s string) string { return s }
	}

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(max(len(table.Headers), 1))

	header := func() {
		pdf.SetFont(family, "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range table.Headers {
			pdf.CellFormat(colWidth, pdfRowHeight, translate(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 8)
	}

	pdf.SetHeaderFunc(func() {
		if table.Title != "" {
			pdf.SetFont(family, "B", 12)
			pdf.CellFormat(0, 10, translate(table.Title), "", 1, "L", false, 0, "")
		}
		header()
	})
	pdf.AddPage()

	for _, row := range table.Rows {
		for i := range table.Headers {
			var value any
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, pdfRowHeight, translate(cellText(value)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.OutputFileAndClose(path)
}
