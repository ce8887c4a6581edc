package orchestrator

import (
	"sort"
	"sync"

	"github.com/yairfalse/kartta/types"
)

// maxTrackedJobs bounds the tracker so daemon mode does not accumulate
// job records forever. Oldest terminal jobs are evicted first.
const maxTrackedJobs = 256

// Tracker keeps discovery jobs for status polling. Jobs are mutated only
// through update; readers always get copies.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*types.DiscoveryJob
	max  int
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*types.DiscoveryJob), max: maxTrackedJobs}
}

func (t *Tracker) add(job *types.DiscoveryJob) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[job.ID] = job
	t.evictLocked()
}

// evictLocked drops the oldest terminal jobs while the tracker is over
// its cap. Running jobs are never evicted.
func (t *Tracker) evictLocked() {
	for len(t.jobs) > t.max {
		var oldest *types.DiscoveryJob
		for _, job := range t.jobs {
			if !job.Status.Terminal() {
				continue
			}
			if oldest == nil || job.StartedAt.Before(oldest.StartedAt) {
				oldest = job
			}
		}
		if oldest == nil {
			return
		}
		delete(t.jobs, oldest.ID)
	}
}

func (t *Tracker) update(id string, fn func(*types.DiscoveryJob)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		fn(job)
	}
}

// Get returns a copy of the job so callers cannot race the orchestrator.
func (t *Tracker) Get(id string) (types.DiscoveryJob, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return types.DiscoveryJob{}, false
	}
	return *job, true
}

// List returns copies of all jobs ordered by start time, newest first.
func (t *Tracker) List() []types.DiscoveryJob {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.DiscoveryJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
