package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"attendance/internal/app/reporting"
	"attendance/internal/auth"
	"attendance/internal/domain/reports"
	"attendance/internal/platform/config"
	"attendance/internal/platform/export"
	"attendance/internal/platform/logging"
	"attendance/internal/platform/prompt"
)

const usage = `usage: report [overview|timeline|detailed]
       report hash-password <password>`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	if len(args) > 0 && args[0] == "hash-password" {
		return hashPassword(args[1:], stdout)
	}
	if len(args) > 1 {
		fmt.Fprintln(stdout, usage)
		return 2
	}

	cfg := config.Load()
	if len(args) == 1 {
		cfg.ReportVariant = args[0]
	}
	logger := logging.New(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}
	variant, err := reports.ParseVariant(cfg.ReportVariant)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		fmt.Fprintln(stdout, usage)
		return 2
	}

	app, err := reporting.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return 1
	}
	defer app.Close()

	req, err := app.Request(variant)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}
	if cfg.ReportInteractive && variant == reports.VariantDetailed {
		if req, err = askDetailed(req, stdin, stdout, cfg); err != nil {
			logger.Error("reading input failed", "err", err)
			return 1
		}
	}

	logger.Info("starting report", "variant", variant)
	out, err := app.Jobs.RunNow(ctx, req)
	return report(stdout, logger, out.Result.Records(), out.Files, err)
}

func askDetailed(req reports.Request, stdin io.Reader, stdout io.Writer, cfg config.Config) (reports.Request, error) {
	loc, err := cfg.Location()
	if err != nil {
		return req, err
	}
	p := prompt.New(stdin, stdout, loc)
	pin, err := p.PIN()
	if err != nil {
		return req, err
	}
	start, end, err := p.DateRange()
	if err != nil {
		return req, err
	}
	req.PINs = []int{pin}
	req.StartDate, req.EndDate = start, end
	return req, nil
}

func report(stdout io.Writer, logger *slog.Logger, records int, files []string, err error) int {
	switch {
	case err == nil:
		fmt.Fprintf(stdout, "Successfully generated %d records\n", records)
		for _, path := range files {
			fmt.Fprintf(stdout, "Report successfully saved as: %s\n", path)
		}
		logger.Info("report finished", "records", records, "files", files)
		return 0
	case errors.Is(err, export.ErrNoData):
		fmt.Fprintln(stdout, "No data was generated for the report.")
		return 0
	case errors.Is(err, context.Canceled):
		logger.Warn("report cancelled")
		return 130
	}
	logger.Error("report failed", "err", err)
	return 1
}

func hashPassword(args []string, stdout io.Writer) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(stdout, usage)
		return 2
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		fmt.Fprintf(stdout, "hash failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, hash)
	return 0
}
