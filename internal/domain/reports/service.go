package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"attendance/internal/domain/attendance"
	"attendance/internal/platform/config"
	"attendance/internal/platform/device"
)

// DeviceAPI is the part of the device client the aggregator needs.
type DeviceAPI interface {
	GetPerson(ctx context.Context, pin int) (attendance.Worker, error)
	GetTransactions(ctx context.Context, pin int, start, end time.Time, pageSize int) (device.TransactionPage, error)
	GetFirstInLastOut(ctx context.Context, pin, pageSize int) ([]device.DaySummary, error)
}

type Settings struct {
	PINStart            int
	MaxWorkers          int
	NumberOfDays        int
	TransactionPageSize int
	Location            *time.Location
}

// Service sweeps workers and days one device call at a time.
type Service struct {
	Device   DeviceAPI
	Schedule attendance.Schedule
	Matcher  attendance.DirectionMatcher
	Settings Settings
	Logger   *slog.Logger
}

func NewService(api DeviceAPI, cfg config.Config, logger *slog.Logger) (*Service, error) {
	schedule, err := attendance.NewSchedule(cfg.PlannedStartTime, cfg.PlannedEndTime, cfg.PlannedWorkMinutes, cfg.LunchBreakMinutes)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Device:   api,
		Schedule: schedule,
		Matcher:  attendance.DirectionMatcher{Entry: cfg.EntryPatterns, Exit: cfg.ExitPatterns},
		Settings: Settings{
			PINStart:            cfg.PINStart,
			MaxWorkers:          cfg.MaxWorkers,
			NumberOfDays:        cfg.NumberOfDays,
			TransactionPageSize: cfg.TransactionPageSize,
			Location:            loc,
		},
		Logger: logger.With("component", "reports"),
	}, nil
}

// Generate runs one report. Per-worker and per-day device failures are
// logged and skipped; only cancellation of ctx or an invalid request ends
// the run early, and then no rows are returned.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	res := Result{Variant: req.Variant}
	pins := s.pins(req.PINs)

	var err error
	switch req.Variant {
	case VariantOverview:
		res.BaseName = "overall_attendance_report"
		err = s.overview(ctx, pins, &res)
	case VariantTimeline:
		res.BaseName = "daily_timeline_attendance_report"
		err = s.timeline(ctx, pins, &res)
	case VariantDetailed:
		err = s.detailed(ctx, pins, req.StartDate, req.EndDate, &res)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownVariant, req.Variant)
	}
	if err != nil {
		return Result{}, err
	}

	res.Table = buildTable(tableTitle(res.BaseName), columnsFor(req.Variant, s.Schedule), res.Rows)
	s.Logger.Info("report generated",
		"variant", req.Variant,
		"records", len(res.Rows),
		"pinsScanned", res.PinsScanned,
		"pinsSkipped", res.PinsSkipped,
		"daysSkipped", res.DaysSkipped,
	)
	return res, nil
}

func (s *Service) pins(requested []int) []int {
	if len(requested) == 0 {
		pins := make([]int, 0, max(s.Settings.MaxWorkers-s.Settings.PINStart, 0))
		for pin := s.Settings.PINStart; pin < s.Settings.MaxWorkers; pin++ {
			pins = append(pins, pin)
		}
		return pins
	}
	seen := make(map[int]bool, len(requested))
	pins := make([]int, 0, len(requested))
	for _, pin := range requested {
		if pin > 0 && !seen[pin] {
			seen[pin] = true
			pins = append(pins, pin)
		}
	}
	sort.Ints(pins)
	return pins
}

// worker fetches the identity for pin. ok is false when the pin must be
// skipped; err is only set when the run itself must stop.
func (s *Service) worker(ctx context.Context, pin int, res *Result) (attendance.Worker, bool, error) {
	res.PinsScanned++
	worker, err := s.Device.GetPerson(ctx, pin)
	if err == nil {
		s.Logger.Info("fetching attendance", "pin", pin, "worker", worker.FullName())
		return worker, true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return attendance.Worker{}, false, ctxErr
	}
	res.PinsSkipped++
	if errors.Is(err, device.ErrNotFound) {
		s.Logger.Info("worker not found, skipping", "pin", pin)
	} else {
		s.Logger.Warn("worker lookup failed, skipping", "pin", pin, "err", err)
	}
	return attendance.Worker{}, false, nil
}

func (s *Service) summaries(ctx context.Context, pin int) ([]device.DaySummary, error) {
	days, err := s.Device.GetFirstInLastOut(ctx, pin, s.Settings.NumberOfDays)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (s *Service) overview(ctx context.Context, pins []int, res *Result) error {
	for _, pin := range pins {
		worker, ok, err := s.worker(ctx, pin, res)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		days, err := s.summaries(ctx, pin)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			res.PinsSkipped++
			s.Logger.Warn("attendance summary unavailable, skipping", "pin", pin, "err", err)
			continue
		}
		for _, summary := range days {
			res.Rows = append(res.Rows, Row{
				Worker: worker,
				Day:    attendance.ComputeFromSummary(summary.Date, summary.FirstIn, summary.LastOut, s.Schedule),
			})
		}
	}
	return nil
}

func (s *Service) timeline(ctx context.Context, pins []int, res *Result) error {
	for _, pin := range pins {
		worker, ok, err := s.worker(ctx, pin, res)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		days, err := s.summaries(ctx, pin)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			res.PinsSkipped++
			s.Logger.Warn("attendance summary unavailable, skipping", "pin", pin, "err", err)
			continue
		}
		if len(days) == 0 {
			s.Logger.Info("no attendance records", "pin", pin)
			res.Rows = append(res.Rows, Row{Worker: worker, Day: attendance.AbsentDay(time.Time{})})
			continue
		}

		s.Logger.Info("processing active days", "pin", pin, "days", len(days))
		var last time.Time
		for _, summary := range days {
			if summary.Date.Equal(last) {
				continue
			}
			last = summary.Date

			page, err := s.Device.GetTransactions(ctx, pin, summary.Date, summary.Date, s.Settings.TransactionPageSize)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.DaysSkipped++
				s.Logger.Warn("transactions unavailable, skipping day", "pin", pin, "date", formatDate(summary.Date), "err", err)
				continue
			}
			events := attendance.OnDay(page.Transactions, summary.Date)
			day := attendance.Compute(summary.Date, events, s.Schedule, s.Matcher)
			// Total counts the whole query window, so it only stands for this
			// day when the page carried no scans from other days.
			if len(events) == len(page.Transactions) && page.Total > day.TransactionCount {
				day.TransactionCount = page.Total
			}
			res.Rows = append(res.Rows, Row{Worker: worker, Day: day})
		}
	}
	return nil
}

func (s *Service) detailed(ctx context.Context, pins []int, start, end time.Time, res *Result) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	loc := s.Settings.Location
	if loc == nil {
		loc = time.Local
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	if end.Before(start) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRange, formatDate(end), formatDate(start))
	}

	var workers []attendance.Worker
	for _, pin := range pins {
		worker, ok, err := s.worker(ctx, pin, res)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		workers = append(workers, worker)

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			s.Logger.Debug("processing day", "pin", pin, "date", formatDate(day))
			page, err := s.Device.GetTransactions(ctx, pin, day, day.AddDate(0, 0, 1), s.Settings.TransactionPageSize)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.DaysSkipped++
				s.Logger.Warn("transactions unavailable, skipping day", "pin", pin, "date", formatDate(day), "err", err)
				continue
			}
			events := attendance.OnDay(page.Transactions, day)
			if len(events) == 0 {
				s.Logger.Debug("no records, absent", "pin", pin, "date", formatDate(day))
			}
			res.Rows = append(res.Rows, Row{Worker: worker, Day: attendance.Compute(day, events, s.Schedule, s.Matcher)})
		}
	}

	res.BaseName = detailedBaseName(workers, len(pins), start, end)
	return nil
}

func detailedBaseName(workers []attendance.Worker, requested int, start, end time.Time) string {
	span := formatDate(start) + "_to_" + formatDate(end)
	if requested != 1 || len(workers) != 1 {
		return "Report_" + span
	}
	w := workers[0]
	first := w.FirstName
	if first == "" {
		first = "user"
	}
	last := w.LastName
	if last == "" {
		last = fmt.Sprint(w.PIN)
	}
	return "Report_" + sanitizeFileName(first+"_"+last) + "_" + span
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")

func sanitizeFileName(name string) string {
	return strings.Trim(fileNameReplacer.Replace(strings.TrimSpace(name)), "_")
}

func tableTitle(baseName string) string {
	return strings.ReplaceAll(baseName, "_", " ")
}
