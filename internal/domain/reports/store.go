package reports

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunNoData    = "no_data"
)

// Run is one entry of the report run history.
type Run struct {
	ID          string         `json:"id"`
	Variant     Variant        `json:"variant"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
}

// Finished reports whether the run reached a terminal status.
func (r Run) Finished() bool {
	switch r.Status {
	case RunCompleted, RunFailed, RunNoData:
		return true
	}
	return false
}

// Files returns the output paths recorded for the run.
func (r Run) Files() []string {
	switch files := r.Details["files"].(type) {
	case []string:
		return files
	case []any:
		out := make([]string, 0, len(files))
		for _, f := range files {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

type RunFilter struct {
	Variant string
	Status  string
}

type RunStore interface {
	CreateRun(ctx context.Context, variant Variant, details map[string]any) (Run, error)
	UpdateRunStatus(ctx context.Context, id, status string) error
	CompleteRun(ctx context.Context, id, status string, details map[string]any) error
	ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error)
	CountRuns(ctx context.Context, filter RunFilter) (int, error)
	GetRun(ctx context.Context, id string) (Run, error)
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRunStore keeps run history in the Postgres report_runs table.
type PGRunStore struct {
	DB Querier
}

func NewPGRunStore(db Querier) *PGRunStore {
	return &PGRunStore{DB: db}
}

func (s *PGRunStore) CreateRun(ctx context.Context, variant Variant, details map[string]any) (Run, error) {
	run := Run{ID: uuid.NewString(), Variant: variant, Status: RunQueued, Details: cloneDetails(details)}
	detailsJSON := encodeDetails(details)
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO report_runs (id, variant, status, details_json)
    VALUES ($1,$2,$3,$4)
    RETURNING started_at
  `, run.ID, string(variant), run.Status, detailsJSON).Scan(&run.StartedAt); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *PGRunStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE report_runs SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PGRunStore) CompleteRun(ctx context.Context, id, status string, details map[string]any) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE report_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, encodeDetails(details), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PGRunStore) ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error) {
	query, args := buildRunsBaseQuery(filter, pgPlaceholder)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanPGRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PGRunStore) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	query, args := buildRunsBaseQuery(filter, pgPlaceholder)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM ("+query+") runs", args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *PGRunStore) GetRun(ctx context.Context, id string) (Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Run{}, ErrRunNotFound
	}
	run, err := scanPGRun(s.DB.QueryRow(ctx, `
    SELECT id, variant, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at
    FROM report_runs
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

func scanPGRun(row pgx.Row) (Run, error) {
	var (
		run        Run
		variant    string
		detailsRaw []byte
	)
	if err := row.Scan(&run.ID, &variant, &run.Status, &detailsRaw, &run.StartedAt, &run.CompletedAt); err != nil {
		return Run{}, err
	}
	run.Variant = Variant(variant)
	run.Details = decodeDetails(detailsRaw)
	return run, nil
}

func pgPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func buildRunsBaseQuery(filter RunFilter, placeholder func(int) string) (string, []any) {
	query := `
    SELECT id, variant, status, details_json, started_at, completed_at
    FROM report_runs
    WHERE 1 = 1
  `
	var args []any

	if value := strings.TrimSpace(filter.Variant); value != "" {
		args = append(args, value)
		query += " AND variant = " + placeholder(len(args))
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		args = append(args, value)
		query += " AND status = " + placeholder(len(args))
	}

	return query, args
}

func encodeDetails(details map[string]any) []byte {
	if details == nil {
		return []byte("{}")
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func decodeDetails(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	details := map[string]any{}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{
			"raw": string(raw),
		}
	}
	return details
}
