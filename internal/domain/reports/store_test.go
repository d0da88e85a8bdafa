package reports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"attendance/internal/platform/db"
)

func exerciseRunStore(t *testing.T, store RunStore) {
	t.Helper()
	ctx := context.Background()

	first, err := store.CreateRun(ctx, VariantOverview, map[string]any{"variant": "overview"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" || first.Status != RunQueued || first.StartedAt.IsZero() {
		t.Fatalf("unexpected created run: %+v", first)
	}

	time.Sleep(2 * time.Millisecond)
	second, err := store.CreateRun(ctx, VariantDetailed, nil)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := store.UpdateRunStatus(ctx, first.ID, RunRunning); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := store.CompleteRun(ctx, first.ID, RunCompleted, map[string]any{
		"records": 3,
		"files":   []string{"/tmp/overall_attendance_report.xlsx"},
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := store.GetRun(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != RunCompleted || got.CompletedAt == nil || !got.Finished() {
		t.Fatalf("expected completed run, got %+v", got)
	}
	if files := got.Files(); len(files) != 1 || files[0] != "/tmp/overall_attendance_report.xlsx" {
		t.Fatalf("unexpected files %v", files)
	}

	runs, err := store.ListRuns(ctx, RunFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	runs, err = store.ListRuns(ctx, RunFilter{Status: RunCompleted}, 10, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != first.ID {
		t.Fatalf("unexpected filtered runs %+v", runs)
	}

	total, err := store.CountRuns(ctx, RunFilter{Variant: string(VariantDetailed)})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 detailed run, got %d", total)
	}

	runs, err = store.ListRuns(ctx, RunFilter{}, 1, 1)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != first.ID {
		t.Fatalf("unexpected page %+v", runs)
	}

	if _, err := store.GetRun(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.CompleteRun(ctx, "00000000-0000-0000-0000-000000000000", RunFailed, nil); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on complete, got %v", err)
	}
}

func TestMemoryRunStore(t *testing.T) {
	exerciseRunStore(t, NewMemoryRunStore())
}

func TestMemoryRunStoreReturnsCopies(t *testing.T) {
	store := NewMemoryRunStore()
	run, err := store.CreateRun(context.Background(), VariantTimeline, map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	run.Details["a"] = 2

	got, err := store.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Details["a"] != 1 {
		t.Fatalf("stored details were mutated: %v", got.Details)
	}
}

func TestSQLRunStore(t *testing.T) {
	h, err := db.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer h.Close()
	exerciseRunStore(t, NewSQLRunStore(h.SQL))
}

func TestPGRunStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	h, err := db.Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer h.Close()
	if _, err := h.Pool.Exec(context.Background(), "TRUNCATE report_runs"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseRunStore(t, NewPGRunStore(h.Pool))
}
