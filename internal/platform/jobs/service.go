package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"attendance/internal/domain/reports"
	"attendance/internal/platform/export"
)

var ErrQueueFull = errors.New("report queue is full")

type Generator interface {
	Generate(ctx context.Context, req reports.Request) (reports.Result, error)
}

type Exporter interface {
	Write(table export.Table, baseName string) ([]string, error)
}

// Notifier is told about every run that reaches a final status.
type Notifier interface {
	RunFinished(ctx context.Context, run reports.Run) error
}

// Service executes report runs one at a time and records each of them in
// the run history.
type Service struct {
	Generator Generator
	Exporter  Exporter
	Runs      reports.RunStore
	Notifier  Notifier
	Logger    *slog.Logger
	queue     chan job
}

type job struct {
	RunID   string
	Request reports.Request
	// Queued runs write under a run-specific name so earlier downloads keep
	// pointing at their own output.
	PerRunOutput bool
}

// Outcome is what a finished run produced.
type Outcome struct {
	RunID  string
	Status string
	Result reports.Result
	Files  []string
}

func New(gen Generator, exp Exporter, runs reports.RunStore, queueSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Service{
		Generator: gen,
		Exporter:  exp,
		Runs:      runs,
		Logger:    logger.With("component", "jobs"),
		queue:     make(chan job, queueSize),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Enqueue records a queued run and hands it to the worker. When the queue is
// full the run is marked failed and ErrQueueFull is returned.
func (s *Service) Enqueue(ctx context.Context, req reports.Request) (reports.Run, error) {
	run, err := s.Runs.CreateRun(ctx, req.Variant, req.Params())
	if err != nil {
		return reports.Run{}, err
	}
	select {
	case s.queue <- job{RunID: run.ID, Request: req, PerRunOutput: true}:
		return run, nil
	default:
		s.Logger.Warn("report queue full", "runId", run.ID, "variant", req.Variant)
		details := req.Params()
		details["error"] = ErrQueueFull.Error()
		if err := s.Runs.CompleteRun(ctx, run.ID, reports.RunFailed, details); err != nil {
			s.Logger.Warn("report run update failed", "runId", run.ID, "err", err)
		}
		return run, ErrQueueFull
	}
}

// RunNow executes req on the caller's goroutine.
func (s *Service) RunNow(ctx context.Context, req reports.Request) (Outcome, error) {
	runID := ""
	run, err := s.Runs.CreateRun(ctx, req.Variant, req.Params())
	if err != nil {
		s.Logger.Warn("report run insert failed", "err", err)
	} else {
		runID = run.ID
	}
	return s.runJob(ctx, job{RunID: runID, Request: req})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil && !errors.Is(err, export.ErrNoData) {
				s.Logger.Warn("report run failed", "runId", j.RunID, "variant", j.Request.Variant, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (Outcome, error) {
	started := time.Now().UTC()
	out := Outcome{RunID: j.RunID}
	if j.RunID != "" {
		if err := s.Runs.UpdateRunStatus(ctx, j.RunID, reports.RunRunning); err != nil {
			s.Logger.Warn("report run update failed", "runId", j.RunID, "err", err)
		}
	}

	details := j.Request.Params()
	res, err := s.Generator.Generate(ctx, j.Request)
	if err == nil {
		out.Result = res
		details["records"] = res.Records()
		details["pinsScanned"] = res.PinsScanned
		details["pinsSkipped"] = res.PinsSkipped
		details["daysSkipped"] = res.DaysSkipped
		out.Files, err = s.Exporter.Write(res.Table, outputName(res.BaseName, j))
		details["files"] = out.Files
	}

	switch {
	case err == nil:
		out.Status = reports.RunCompleted
	case errors.Is(err, export.ErrNoData):
		out.Status = reports.RunNoData
	default:
		out.Status = reports.RunFailed
		details["error"] = err.Error()
	}

	if j.RunID != "" {
		// record the outcome even when ctx was the reason the run ended
		if updErr := s.Runs.CompleteRun(context.WithoutCancel(ctx), j.RunID, out.Status, details); updErr != nil {
			s.Logger.Warn("report run update failed", "runId", j.RunID, "err", updErr)
		}
	}
	s.notify(context.WithoutCancel(ctx), reports.Run{
		ID:        j.RunID,
		Variant:   j.Request.Variant,
		Status:    out.Status,
		Details:   details,
		StartedAt: started,
	})
	return out, err
}

// outputName is baseName, suffixed with the run ID prefix for queued runs.
func outputName(baseName string, j job) string {
	if !j.PerRunOutput || j.RunID == "" {
		return baseName
	}
	id := strings.ReplaceAll(j.RunID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return baseName + "_" + id
}

func (s *Service) notify(ctx context.Context, run reports.Run) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.RunFinished(ctx, run); err != nil {
		s.Logger.Warn("report run notification failed", "runId", run.ID, "err", err)
	}
}
