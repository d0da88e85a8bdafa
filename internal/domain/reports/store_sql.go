package reports

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// timestamps are stored as fixed-width UTC text so they sort lexically.
const sqlTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLRunStore keeps run history in a database/sql handle, used with the
// embedded SQLite driver.
type SQLRunStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewSQLRunStore(db *sql.DB) *SQLRunStore {
	return &SQLRunStore{DB: db, Now: time.Now}
}

func (s *SQLRunStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *SQLRunStore) CreateRun(ctx context.Context, variant Variant, details map[string]any) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Variant:   variant,
		Status:    RunQueued,
		Details:   cloneDetails(details),
		StartedAt: s.now(),
	}
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO report_runs (id, variant, status, details_json, started_at)
    VALUES (?,?,?,?,?)
  `, run.ID, string(variant), run.Status, string(encodeDetails(details)), run.StartedAt.Format(sqlTimeLayout))
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *SQLRunStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	res, err := s.DB.ExecContext(ctx, "UPDATE report_runs SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLRunStore) CompleteRun(ctx context.Context, id, status string, details map[string]any) error {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE report_runs
    SET status = ?, details_json = ?, completed_at = ?
    WHERE id = ?
  `, status, string(encodeDetails(details)), s.now().Format(sqlTimeLayout), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLRunStore) ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error) {
	query, args := buildRunsBaseQuery(filter, sqlitePlaceholder)
	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanSQLRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLRunStore) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	query, args := buildRunsBaseQuery(filter, sqlitePlaceholder)
	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(1) FROM ("+query+") runs", args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *SQLRunStore) GetRun(ctx context.Context, id string) (Run, error) {
	run, err := scanSQLRun(s.DB.QueryRowContext(ctx, `
    SELECT id, variant, status, details_json, started_at, completed_at
    FROM report_runs
    WHERE id = ?
  `, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLRun(row rowScanner) (Run, error) {
	var (
		run         Run
		variant     string
		detailsRaw  sql.NullString
		startedAt   string
		completedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &variant, &run.Status, &detailsRaw, &startedAt, &completedAt); err != nil {
		return Run{}, err
	}
	run.Variant = Variant(variant)
	run.Details = decodeDetails([]byte(detailsRaw.String))

	var err error
	if run.StartedAt, err = time.Parse(sqlTimeLayout, startedAt); err != nil {
		return Run{}, err
	}
	if completedAt.Valid && completedAt.String != "" {
		completed, err := time.Parse(sqlTimeLayout, completedAt.String)
		if err != nil {
			return Run{}, err
		}
		run.CompletedAt = &completed
	}
	return run, nil
}

func sqlitePlaceholder(int) string {
	return "?"
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}
