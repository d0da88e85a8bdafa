package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidatorPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/runs?limit=500&offset=10", nil)
	v := NewValidator()
	page := v.Page(req.URL.Query(), 20, 100)
	if page.Limit != 100 || page.Offset != 10 || v.HasIssues() {
		t.Fatalf("unexpected page %+v issues %v", page, v.Issues())
	}

	req = httptest.NewRequest(http.MethodGet, "/runs?limit=-1&offset=x", nil)
	v = NewValidator()
	page = v.Page(req.URL.Query(), 20, 100)
	if page.Limit != 20 || page.Offset != 0 {
		t.Fatalf("expected defaults, got %+v", page)
	}
	issues := v.Issues()
	if len(issues) != 2 || issues[0].Field != "limit" || issues[1].Field != "offset" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got, err := ParseDate("2025-08-01", loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Location() != loc || got.Day() != 1 {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("01.08.2025", loc); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
	if got, err := ParseDate("", loc); err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for empty input, got %v %v", got, err)
	}
}

func TestValidatorCollectsIssues(t *testing.T) {
	v := NewValidator()
	v.PINs("pins", []int{1, 0})
	v.Enum("status", "done", "queued", "completed")
	v.Enum("variant", "Timeline", "overview", "timeline")
	start, end := v.DateRange("startDate", "", "endDate", "2025-13-01", time.UTC, true)
	if !start.IsZero() || !end.IsZero() {
		t.Fatal("expected no dates parsed")
	}

	issues := v.Issues()
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %+v", issues)
	}
	if issues[0].Field != "endDate" || issues[3].Field != "status" {
		t.Fatalf("expected issues sorted by field, got %+v", issues)
	}
	if issues[3].Reason != "must be one of queued, completed" {
		t.Fatalf("unexpected enum reason %q", issues[3].Reason)
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected rejection, got %d", rec.Code)
	}
}

func TestValidatorDateRange(t *testing.T) {
	v := NewValidator()
	v.DateRange("startDate", "2025-08-28", "endDate", "2025-08-01", time.UTC, false)
	if len(v.Issues()) != 2 {
		t.Fatalf("expected both fields flagged, got %+v", v.Issues())
	}

	v = NewValidator()
	start, end := v.DateRange("startDate", "", "endDate", "", time.UTC, false)
	if v.HasIssues() || !start.IsZero() || !end.IsZero() {
		t.Fatalf("optional blank range should pass, got %+v", v.Issues())
	}

	v = NewValidator()
	start, end = v.DateRange("startDate", "2025-08-01", "endDate", "2025-08-01", time.UTC, true)
	if v.HasIssues() || !start.Equal(end) {
		t.Fatalf("expected single-day range, got %v %v %+v", start, end, v.Issues())
	}
	if NewValidator().HasIssues() {
		t.Fatal("fresh validator should have no issues")
	}
}
