package pipeline

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState is the state of one (item, stage) job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobDone
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobRunning:
		return "running"
	case JobDone:
		return "done"
	case JobFailed:
		return "failed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// Job is a snapshot of one (item, stage) entry.
type Job struct {
	ID       uuid.UUID
	ItemID   string
	Stage    Stage
	State    JobState
	Err      error // set when State is JobFailed
	Started  time.Time
	Finished time.Time
}

type jobKey struct {
	itemID string
	stage  Stage
}

// Registry tracks job states per (item, stage) and holds at most one run per
// item. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	jobs  map[jobKey]*Job
	byID  map[uuid.UUID]jobKey
	items map[string]bool
	now   func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:  make(map[jobKey]*Job),
		byID:  make(map[uuid.UUID]jobKey),
		items: make(map[string]bool),
		now:   time.Now,
	}
}

// TryAcquire reserves itemID for one run. It returns ErrItemBusy when another
// run holds it. The returned release func is idempotent.
func (r *Registry) TryAcquire(itemID string) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[itemID] {
		return nil, fmt.Errorf("%s: %w", itemID, ErrItemBusy)
	}
	r.items[itemID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.items, itemID)
			r.mu.Unlock()
		})
	}, nil
}

// Begin moves (itemID, stage) to running under a fresh job id.
// Idle, done and failed jobs may all be restarted.
func (r *Registry) Begin(itemID string, stage Stage) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := jobKey{itemID, stage}
	if j, ok := r.jobs[k]; ok {
		if j.State == JobRunning {
			return uuid.Nil, fmt.Errorf("%s %s: %w", itemID, stage, ErrItemBusy)
		}
		delete(r.byID, j.ID)
	}

	id := uuid.New()
	r.jobs[k] = &Job{ID: id, ItemID: itemID, Stage: stage, State: JobRunning, Started: r.now()}
	r.byID[id] = k
	return id, nil
}

// End records the outcome of a running job: done when err is nil, failed
// otherwise. Unknown or finished job ids are ignored.
func (r *Registry) End(id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.byID[id]
	if !ok {
		return
	}
	j := r.jobs[k]
	if j.State != JobRunning {
		return
	}
	j.Finished = r.now()
	if err != nil {
		j.State = JobFailed
		j.Err = err
		return
	}
	j.State = JobDone
}

// Get returns the job for (itemID, stage); a stage never begun is JobIdle.
func (r *Registry) Get(itemID string, stage Stage) Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[jobKey{itemID, stage}]; ok {
		return *j
	}
	return Job{ItemID: itemID, Stage: stage, State: JobIdle}
}

// Jobs returns every recorded job ordered by item id, then stage.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	slices.SortFunc(out, func(a, b Job) int {
		if c := cmp.Compare(a.ItemID, b.ItemID); c != 0 {
			return c
		}
		return cmp.Compare(a.Stage, b.Stage)
	})
	return out
}
