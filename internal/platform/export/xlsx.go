package export

import (
	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

func writeXLSX(table Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headers := make([]any, len(table.Headers))
	for i, header := range table.Headers {
		headers[i] = header
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return err
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	if len(table.Headers) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
			return err
		}
		lastCol, err := excelize.ColumnNumberToName(len(table.Headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
			return err
		}
		if err := f.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
