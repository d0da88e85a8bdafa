package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"attendance/internal/domain/reports"
	"attendance/internal/platform/export"
)

type stubGenerator struct {
	result reports.Result
	err    error
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, req reports.Request) (reports.Result, error) {
	g.calls++
	if g.err != nil {
		return reports.Result{}, g.err
	}
	res := g.result
	res.Variant = req.Variant
	return res, nil
}

type stubExporter struct {
	written []string
}

func (e *stubExporter) Write(table export.Table, baseName string) ([]string, error) {
	if len(table.Rows) == 0 {
		return nil, export.ErrNoData
	}
	path := "/out/" + baseName + ".xlsx"
	e.written = append(e.written, path)
	return []string{path}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultWithRows(n int) reports.Result {
	res := reports.Result{BaseName: "overall_attendance_report", PinsScanned: 5, PinsSkipped: 1}
	for i := 0; i < n; i++ {
		res.Rows = append(res.Rows, reports.Row{})
		res.Table.Rows = append(res.Table.Rows, []any{i})
	}
	return res
}

func TestRunNowRecordsCompletedRun(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	exp := &stubExporter{}
	svc := New(&stubGenerator{result: resultWithRows(2)}, exp, runs, 4, quietLogger())

	out, err := svc.RunNow(context.Background(), reports.Request{Variant: reports.VariantOverview})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Status != reports.RunCompleted || len(out.Files) != 1 || out.Result.Records() != 2 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	run, err := runs.GetRun(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != reports.RunCompleted || run.CompletedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Details["records"] != 2 || run.Details["pinsSkipped"] != 1 {
		t.Fatalf("unexpected details: %v", run.Details)
	}
	if files := run.Files(); len(files) != 1 || files[0] != "/out/overall_attendance_report.xlsx" {
		t.Fatalf("unexpected files: %v", files)
	}
}

func TestRunNowNoData(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	svc := New(&stubGenerator{result: resultWithRows(0)}, &stubExporter{}, runs, 4, quietLogger())

	out, err := svc.RunNow(context.Background(), reports.Request{Variant: reports.VariantTimeline})
	if !errors.Is(err, export.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	run, _ := runs.GetRun(context.Background(), out.RunID)
	if run.Status != reports.RunNoData {
		t.Fatalf("expected no_data status, got %s", run.Status)
	}
}

func TestRunNowFailure(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	svc := New(&stubGenerator{err: reports.ErrInvalidRange}, &stubExporter{}, runs, 4, quietLogger())

	out, err := svc.RunNow(context.Background(), reports.Request{Variant: reports.VariantDetailed})
	if !errors.Is(err, reports.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	run, _ := runs.GetRun(context.Background(), out.RunID)
	if run.Status != reports.RunFailed || run.Details["error"] == nil {
		t.Fatalf("expected failed run with error detail, got %+v", run)
	}
}

func TestRunNowRecordsCancelledRun(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	svc := New(&stubGenerator{err: context.Canceled}, &stubExporter{}, runs, 4, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.RunNow(ctx, reports.Request{Variant: reports.VariantOverview})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	run, _ := runs.GetRun(context.Background(), out.RunID)
	if run.Status != reports.RunFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
}

func TestEnqueueRunsInBackground(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	svc := New(&stubGenerator{result: resultWithRows(1)}, &stubExporter{}, runs, 4, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	run, err := svc.Enqueue(ctx, reports.Request{Variant: reports.VariantOverview})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := runs.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if got.Finished() {
			if got.Status != reports.RunCompleted {
				t.Fatalf("expected completed, got %s", got.Status)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
}

func TestEnqueueQueueFull(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	gen := &stubGenerator{result: resultWithRows(1)}
	svc := New(gen, &stubExporter{}, runs, 1, quietLogger())

	if _, err := svc.Enqueue(context.Background(), reports.Request{Variant: reports.VariantOverview}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	run, err := svc.Enqueue(context.Background(), reports.Request{Variant: reports.VariantOverview})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	got, _ := runs.GetRun(context.Background(), run.ID)
	if got.Status != reports.RunFailed {
		t.Fatalf("expected rejected run to be failed, got %s", got.Status)
	}
	if gen.calls != 0 {
		t.Fatalf("worker was not started, generator should not run")
	}
}

type recordingNotifier struct {
	runs []reports.Run
}

func (n *recordingNotifier) RunFinished(_ context.Context, run reports.Run) error {
	n.runs = append(n.runs, run)
	return errors.New("smtp unavailable")
}

func TestRunNowNotifiesFinishedRun(t *testing.T) {
	runs := reports.NewMemoryRunStore()
	notifier := &recordingNotifier{}
	svc := New(&stubGenerator{}, &stubExporter{}, runs, 1, quietLogger())
	svc.Notifier = notifier

	out, err := svc.RunNow(context.Background(), reports.Request{Variant: reports.VariantOverview})
	if !errors.Is(err, export.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if len(notifier.runs) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.runs))
	}
	got := notifier.runs[0]
	if got.ID != out.RunID || got.Status != reports.RunNoData || got.Variant != reports.VariantOverview {
		t.Fatalf("unexpected notification %+v", got)
	}
}

type sequenceGenerator struct {
	cells []string
	calls int
}

func (g *sequenceGenerator) Generate(_ context.Context, req reports.Request) (reports.Result, error) {
	cell := g.cells[g.calls%len(g.cells)]
	g.calls++
	res := reports.Result{Variant: req.Variant, BaseName: "overall_attendance_report"}
	res.Rows = []reports.Row{{}}
	res.Table = export.Table{Headers: []string{"Worker"}, Rows: [][]any{{cell}}}
	return res, nil
}

func waitFinished(t *testing.T, runs reports.RunStore, id string) reports.Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := runs.GetRun(context.Background(), id)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if got.Finished() {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish in time", id)
	return reports.Run{}
}

func firstCell(t *testing.T, path string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	value, err := f.GetCellValue("Report", "A2")
	if err != nil {
		t.Fatalf("read A2: %v", err)
	}
	return value
}

func TestQueuedRunsKeepTheirOwnOutput(t *testing.T) {
	dir := t.TempDir()
	runs := reports.NewMemoryRunStore()
	gen := &sequenceGenerator{cells: []string{"first-run", "second-run"}}
	svc := New(gen, export.NewWriter(dir, []string{export.FormatXLSX}, "", nil), runs, 4, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	first, err := svc.Enqueue(ctx, reports.Request{Variant: reports.VariantOverview})
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	firstRun := waitFinished(t, runs, first.ID)
	second, err := svc.Enqueue(ctx, reports.Request{Variant: reports.VariantOverview})
	if err != nil {
		t.Fatalf("enqueue second: %v", err)
	}
	secondRun := waitFinished(t, runs, second.ID)

	firstFiles, secondFiles := firstRun.Files(), secondRun.Files()
	if len(firstFiles) != 1 || len(secondFiles) != 1 || firstFiles[0] == secondFiles[0] {
		t.Fatalf("expected distinct files per run, got %v and %v", firstFiles, secondFiles)
	}
	if filepath.Dir(firstFiles[0]) != dir {
		t.Fatalf("expected output in %s, got %s", dir, firstFiles[0])
	}
	if !strings.HasPrefix(filepath.Base(firstFiles[0]), "overall_attendance_report_") {
		t.Fatalf("expected run suffix on base name, got %s", firstFiles[0])
	}
	if got := firstCell(t, firstFiles[0]); got != "first-run" {
		t.Fatalf("first run's file holds %q", got)
	}
	if got := firstCell(t, secondFiles[0]); got != "second-run" {
		t.Fatalf("second run's file holds %q", got)
	}
}

func TestRunNowKeepsPlainOutputName(t *testing.T) {
	dir := t.TempDir()
	gen := &sequenceGenerator{cells: []string{"only"}}
	svc := New(gen, export.NewWriter(dir, []string{export.FormatXLSX}, "", nil), reports.NewMemoryRunStore(), 1, quietLogger())

	out, err := svc.RunNow(context.Background(), reports.Request{Variant: reports.VariantOverview})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := filepath.Join(dir, "overall_attendance_report.xlsx")
	if len(out.Files) != 1 || out.Files[0] != want {
		t.Fatalf("expected %s, got %v", want, out.Files)
	}
}
