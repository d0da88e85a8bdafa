package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"attendance/internal/domain/reports"
	"attendance/internal/platform/config"
	"attendance/internal/platform/crypto"
	"attendance/internal/platform/db"
	"attendance/internal/platform/device"
	"attendance/internal/platform/email"
	"attendance/internal/platform/export"
	"attendance/internal/platform/jobs"
	"attendance/internal/platform/metrics"
)

// App holds the components shared by the CLI and the HTTP server.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *db.Handle
	Metrics  *metrics.Collector
	Device   *device.Client
	Reports  *reports.Service
	Runs     reports.RunStore
	Sealer   *crypto.Service
	Exporter *export.Writer
	Jobs     *jobs.Service
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	collector := metrics.New()
	client, err := device.FromConfig(cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("device client: %w", err)
	}
	svc, err := reports.NewService(client, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("report service: %w", err)
	}
	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, err
	}

	handle, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       handle,
		Metrics:  collector,
		Device:   client,
		Reports:  svc,
		Runs:     RunStore(handle),
		Sealer:   sealer,
		Exporter: export.NewWriter(cfg.OutputDir, cfg.OutputFormats, cfg.PDFFontPath, sealer),
	}
	app.Jobs = jobs.New(app.Reports, app.Exporter, app.Runs, cfg.JobQueueSize, logger)
	if cfg.SMTPHost != "" && cfg.NotifyEmail != "" {
		app.Jobs.Notifier = email.NewRunNotifier(cfg)
	}
	if slices.Contains(cfg.OutputFormats, export.FormatPDF) && cfg.PDFFontPath == "" {
		logger.Warn("PDF_FONT_PATH is not set; PDF output uses a Latin-1 core font and non-Latin names print as '?'")
	}
	logger.Debug("run history ready", "backend", handle.Kind)
	return app, nil
}

// RunStore picks the run history implementation for an open database.
func RunStore(handle *db.Handle) reports.RunStore {
	switch {
	case handle != nil && handle.Pool != nil:
		return reports.NewPGRunStore(handle.Pool)
	case handle != nil && handle.SQL != nil:
		return reports.NewSQLRunStore(handle.SQL)
	}
	return reports.NewMemoryRunStore()
}

// Request builds the report request described by the configuration. Only
// the detailed variant reads REPORT_PINS and the date range; the others
// sweep the configured PIN range.
func (a *App) Request(variant reports.Variant) (reports.Request, error) {
	req := reports.Request{Variant: variant}
	if variant != reports.VariantDetailed {
		return req, nil
	}
	pins, err := a.Config.PINs()
	if err != nil {
		return reports.Request{}, err
	}
	req.PINs = pins
	if a.Config.ReportStartDate != "" || a.Config.ReportEndDate != "" {
		if req.StartDate, req.EndDate, err = a.Config.DateRange(); err != nil {
			return reports.Request{}, err
		}
	}
	return req, nil
}

func (a *App) Close() {
	a.DB.Close()
}
