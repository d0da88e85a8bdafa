package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"attendance/internal/domain/attendance"
	"attendance/internal/platform/export"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

type column struct {
	header string
	value  func(Row) any
}

var (
	colID         = column{"ID", func(r Row) any { return r.Worker.PIN }}
	colFIO        = column{"FIO", func(r Row) any { return r.Worker.FullName() }}
	colDepartment = column{"Department", func(r Row) any { return r.Worker.DepartmentName() }}
	colDate       = column{"Date", func(r Row) any { return formatDate(r.Day.Date) }}
	colWeekday    = column{"Day of the week", func(r Row) any { return r.Day.Weekday() }}
	colFirstIn    = column{"First in", func(r Row) any { return formatClock(r.Day.FirstIn) }}
	colLastOut    = column{"Last out", func(r Row) any { return formatClock(r.Day.LastOut) }}
	colLate       = column{"Late (min)", func(r Row) any { return r.Day.Lateness.Cell() }}
	colOverwork   = column{"Overwork (min)", func(r Row) any { return r.Day.Overwork.Cell() }}
	colStatus     = column{"Status", func(r Row) any { return r.Day.Status }}
	colTimeline   = column{"Actual attendance", func(r Row) any { return r.Day.Timeline() }}
	colActualMin  = column{"Actual Time (minutes)", func(r Row) any { return r.Day.Actual.Cell() }}
	colActualHrs  = column{"Actual Time (hours)", func(r Row) any { return hours(r.Day.Actual) }}
	colTxCount    = column{"Transaction count", func(r Row) any { return r.Day.TransactionCount }}
	colEntryIn    = column{"EntryIN", func(r Row) any { return r.Day.EntryIn }}
	colEntryOut   = column{"EntryOut", func(r Row) any { return r.Day.EntryOut }}
)

func columnsFor(variant Variant, schedule attendance.Schedule) []column {
	switch variant {
	case VariantOverview:
		return []column{colID, colFIO, colDepartment, colDate, colWeekday, colFirstIn, colLastOut, colLate, colOverwork, colStatus}
	case VariantTimeline:
		return []column{colID, colFIO, colDepartment, colDate, colWeekday, colTimeline, colActualMin, colActualHrs, colTxCount, colLate, colOverwork, colStatus}
	case VariantDetailed:
		planned := column{"Supposed time (min)", func(Row) any { return schedule.PlannedMinutes }}
		return []column{colID, colFIO, colDate, colFirstIn, colLastOut, colEntryIn, colEntryOut, colDepartment, colWeekday, planned, colLate, colOverwork, colStatus}
	}
	return nil
}

func buildTable(title string, columns []column, rows []Row) export.Table {
	table := export.Table{
		Title:   title,
		Headers: make([]string, len(columns)),
		Rows:    make([][]any, 0, len(rows)),
	}
	for i, col := range columns {
		table.Headers[i] = col.header
	}
	for _, row := range rows {
		cells := make([]any, len(columns))
		for i, col := range columns {
			cells[i] = col.value(row)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func hours(m attendance.Minutes) any {
	minutes, ok := m.Value()
	if !ok {
		return nil
	}
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2).InexactFloat64()
}
