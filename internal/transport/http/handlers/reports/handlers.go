package reportshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"attendance/internal/auth"
	"attendance/internal/domain/reports"
	"attendance/internal/platform/jobs"
	"attendance/internal/transport/http/api"
	"attendance/internal/transport/http/middleware"
	"attendance/internal/transport/http/shared"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, req reports.Request) (reports.Run, error)
}

type Decrypter interface {
	Configured() bool
	Decrypt(sealed []byte) ([]byte, error)
}

type Handler struct {
	Jobs     Enqueuer
	Runs     reports.RunStore
	Sealer   Decrypter
	Location *time.Location
}

func NewHandler(queue Enqueuer, runs reports.RunStore, sealer Decrypter, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{Jobs: queue, Runs: runs, Sealer: sealer, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.With(middleware.RateLimit(30, time.Minute, nil)).Post("/{variant}", h.handleCreateRun)
		r.Get("/runs", h.handleListRuns)
		r.Get("/runs/{id}", h.handleGetRun)
		r.Get("/runs/{id}/file", h.handleDownload)
	})
}

type createRunRequest struct {
	PINs      []int  `json:"pins"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type createRunResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	variant, err := reports.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "unknown_variant", err.Error(), requestID)
		return
	}

	var payload createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.PINs("pins", payload.PINs)
	req := reports.Request{Variant: variant, PINs: payload.PINs}
	req.StartDate, req.EndDate = v.DateRange("startDate", payload.StartDate, "endDate", payload.EndDate,
		h.Location, variant == reports.VariantDetailed)
	if v.Reject(w, requestID) {
		return
	}

	run, err := h.Jobs.Enqueue(r.Context(), req)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		api.Fail(w, http.StatusServiceUnavailable, "queue_full", "too many report runs queued, retry later", requestID)
		return
	case err != nil:
		slog.Error("report enqueue failed", "variant", variant, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "enqueue_failed", "failed to queue report", requestID)
		return
	}
	api.Accepted(w, createRunResponse{RunID: run.ID, Status: run.Status}, requestID)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter := reports.RunFilter{
		Variant: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("variant"))),
		Status:  strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
	}

	v := shared.NewValidator()
	page := v.Page(r.URL.Query(), 20, 100)
	v.Enum("variant", filter.Variant, string(reports.VariantOverview), string(reports.VariantTimeline), string(reports.VariantDetailed))
	v.Enum("status", filter.Status, reports.RunQueued, reports.RunRunning, reports.RunCompleted, reports.RunFailed, reports.RunNoData)
	if v.Reject(w, requestID) {
		return
	}

	runs, err := h.Runs.ListRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		slog.Error("list report runs failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "list_failed", "failed to list report runs", requestID)
		return
	}
	total, err := h.Runs.CountRuns(r.Context(), filter)
	if err != nil {
		slog.Error("count report runs failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "list_failed", "failed to list report runs", requestID)
		return
	}
	api.Success(w, api.Page{Items: runs, Total: total, Limit: page.Limit, Offset: page.Offset}, requestID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	if !run.Finished() {
		api.Fail(w, http.StatusConflict, "run_not_finished", "report run is still in progress", requestID)
		return
	}

	path := pickFile(run.Files(), r.URL.Query().Get("format"))
	if path == "" {
		api.Fail(w, http.StatusNotFound, "file_not_found", "report run produced no file", requestID)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("report file unreadable", "runId", run.ID, "path", path, "err", err)
		api.Fail(w, http.StatusNotFound, "file_not_found", "report file is no longer available", requestID)
		return
	}
	name := filepath.Base(path)
	if sealed, ok := strings.CutSuffix(name, ".enc"); ok {
		if h.Sealer == nil || !h.Sealer.Configured() {
			api.Fail(w, http.StatusInternalServerError, "decrypt_failed", "report file is sealed and no key is configured", requestID)
			return
		}
		if data, err = h.Sealer.Decrypt(data); err != nil {
			slog.Error("report file decrypt failed", "runId", run.ID, "err", err)
			api.Fail(w, http.StatusInternalServerError, "decrypt_failed", "failed to open report file", requestID)
			return
		}
		name = sealed
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	modified := run.StartedAt
	if run.CompletedAt != nil {
		modified = *run.CompletedAt
	}
	http.ServeContent(w, r, name, modified, bytes.NewReader(data))
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (reports.Run, bool) {
	requestID := middleware.GetRequestID(r.Context())
	run, err := h.Runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, reports.ErrRunNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "report run not found", requestID)
		return reports.Run{}, false
	}
	if err != nil {
		slog.Error("get report run failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "lookup_failed", "failed to load report run", requestID)
		return reports.Run{}, false
	}
	return run, true
}

// pickFile returns the first file, or the first one of the requested format.
func pickFile(files []string, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, f := range files {
		if format == "" || strings.HasSuffix(strings.TrimSuffix(f, ".enc"), "."+format) {
			return f
		}
	}
	return ""
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
