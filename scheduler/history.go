package scheduler

import (
	"context"
	"sync"

	"github.com/tienminhktvn/dataops-project/dag"
)

// Store persists run snapshots. database.RunStore implements it.
type Store interface {
	SaveRun(ctx context.Context, snap dag.RunSnapshot) error
	GetRun(ctx context.Context, id string) (dag.RunSnapshot, error)
	ListRuns(ctx context.Context, pipelineID string, limit int) ([]dag.RunSnapshot, error)
}

// history keeps the latest runs, newest first.
type history struct {
	mu   sync.RWMutex
	size int
	runs []*dag.PipelineRun
}

func newHistory(size int) *history {
	return &history{size: size}
}

func (h *history) add(run *dag.PipelineRun) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append([]*dag.PipelineRun{run}, h.runs...)
	if h.size > 0 && len(h.runs) > h.size {
		h.runs = h.runs[:h.size]
	}
}

func (h *history) get(id string) (*dag.PipelineRun, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.runs {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

func (h *history) list(limit int) []dag.RunSnapshot {
	h.mu.RLock()
	runs := h.runs
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	runs = append([]*dag.PipelineRun(nil), runs...)
	h.mu.RUnlock()

	out := make([]dag.RunSnapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Snapshot())
	}
	return out
}

func (h *history) last() (*dag.PipelineRun, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.runs) == 0 {
		return nil, false
	}
	return h.runs[0], true
}
