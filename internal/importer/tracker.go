package importer

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

// Tracker remembers the latest snapshot of recent runs so the admin API can
// report on background imports.
type Tracker struct {
	mu    sync.RWMutex
	runs  map[string]Progress
	limit int

	wg conc.WaitGroup
}

func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = 50
	}
	return &Tracker{runs: make(map[string]Progress), limit: limit}
}

func (t *Tracker) Observe(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[p.RunID] = p
	t.evictLocked()
}

func (t *Tracker) Get(id string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.runs[id]
	return p, ok
}

// List returns every tracked run, newest first.
func (t *Tracker) List() []Progress {
	t.mu.RLock()
	out := make([]Progress, 0, len(t.runs))
	for _, p := range t.runs {
		out = append(out, p)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// evictLocked drops the oldest finished runs once over capacity.
func (t *Tracker) evictLocked() {
	for len(t.runs) > t.limit {
		var (
			oldestID string
			found    bool
			oldest   Progress
		)
		for id, p := range t.runs {
			if p.IsRunning {
				continue
			}
			if !found || p.StartedAt.Before(oldest.StartedAt) {
				oldestID, oldest, found = id, p, true
			}
		}
		if !found {
			return
		}
		delete(t.runs, oldestID)
	}
}

// Start validates req synchronously, then runs the import in the
// background on ctx. The returned snapshot carries the run id. Every
// snapshot is recorded and then forwarded to obs.
func (t *Tracker) Start(ctx context.Context, o *Orchestrator, req Request, obs Observer) (Progress, error) {
	if err := Validate(req, o.now()); err != nil {
		return Progress{}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	initial := Progress{
		RunID:      req.RunID,
		Kind:       req.Kind,
		StartYear:  req.StartYear,
		EndYear:    req.EndYear,
		TotalYears: req.Years(),
		IsRunning:  true,
		StartedAt:  o.now(),
	}
	t.Observe(initial)

	t.wg.Go(func() {
		_, _ = o.run(ctx, req, initial.StartedAt, func(p Progress) {
			t.Observe(p)
			if obs != nil {
				obs(p)
			}
		})
	})
	return initial, nil
}

// Wait blocks until every run started by Start has returned. Cancel the
// runs' context first to stop them after their current year.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
