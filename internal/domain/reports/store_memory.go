package reports

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRunStore is the run history used when no database is configured.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]Run
	Now  func() time.Time
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: map[string]Run{}, Now: time.Now}
}

func (s *MemoryRunStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *MemoryRunStore) CreateRun(_ context.Context, variant Variant, details map[string]any) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Variant:   variant,
		Status:    RunQueued,
		Details:   cloneDetails(details),
		StartedAt: s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		s.runs = map[string]Run{}
	}
	s.runs[run.ID] = run
	return copyRun(run), nil
}

func (s *MemoryRunStore) UpdateRunStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	s.runs[id] = run
	return nil
}

func (s *MemoryRunStore) CompleteRun(_ context.Context, id, status string, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	completed := s.now()
	run.Status = status
	run.Details = cloneDetails(details)
	run.CompletedAt = &completed
	s.runs[id] = run
	return nil
}

func (s *MemoryRunStore) ListRuns(_ context.Context, filter RunFilter, limit, offset int) ([]Run, error) {
	matched := s.matching(filter)
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })

	out := []Run{}
	for i := offset; i < len(matched) && (limit <= 0 || len(out) < limit); i++ {
		out = append(out, copyRun(matched[i]))
	}
	return out, nil
}

func (s *MemoryRunStore) CountRuns(_ context.Context, filter RunFilter) (int, error) {
	return len(s.matching(filter)), nil
}

func (s *MemoryRunStore) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return copyRun(run), nil
}

func (s *MemoryRunStore) matching(filter RunFilter) []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Run
	for _, run := range s.runs {
		if filter.Variant != "" && string(run.Variant) != filter.Variant {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, run)
	}
	return out
}

func copyRun(run Run) Run {
	run.Details = cloneDetails(run.Details)
	if run.CompletedAt != nil {
		completed := *run.CompletedAt
		run.CompletedAt = &completed
	}
	return run
}

func cloneDetails(details map[string]any) map[string]any {
	if details == nil {
		return map[string]any{}
	}
	return maps.Clone(details)
}
