package device

import (
	"bytes"
	"encoding/json"
	"time"

	"attendance/internal/domain/attendance"
)

const timestampLayout = "2006-01-02 15:04:05"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type personPayload struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	DeptName string `json:"deptName"`
}

type pagePayload[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

type transactionPayload struct {
	DevName   string `json:"devName"`
	EventTime string `json:"eventTime"`
}

type summaryPayload struct {
	FirstInTime string `json:"firstInTime"`
	LastOutTime string `json:"lastOutTime"`
	Name        string `json:"name"`
	LastName    string `json:"lastName"`
	DeptCode    string `json:"deptCode"`
}

// TransactionPage is one page of a worker's scans. Total is the count the
// device reports, which can exceed len(Transactions) when paging truncates.
type TransactionPage struct {
	Transactions []attendance.Transaction
	Total        int
}

// DaySummary is one row of the first-in/last-out endpoint. LastOut is nil
// when the device has no second scan for the day.
type DaySummary struct {
	Date     time.Time
	FirstIn  *time.Time
	LastOut  *time.Time
	Name     string
	LastName string
	DeptCode string
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
