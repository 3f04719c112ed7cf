package store

import (
	"errors"
	"sort"
	"sync"

	"job-mailbox/internal/models"
)

// ErrNotFound is returned for lookups and mutations against unknown job ids.
var ErrNotFound = errors.New("job not found")

// Table is the authoritative in-memory job table. All mutation goes through
// its methods under a single mutex; reads hand out deep copies so callers
// never share a record's log slice with the table.
type Table struct {
	mu     sync.RWMutex
	nextID int64
	jobs   map[int64]*models.JobRecord
}

// NewTable creates an empty table. Ids start at 1 and are never reused.
func NewTable() *Table {
	return &Table{jobs: make(map[int64]*models.JobRecord)}
}

// Create allocates the next id under the table lock and stores the record
// returned by build. Handing the id to build lets callers seed fields that
// mention it (such as the creation log entry) without a second write.
func (t *Table) Create(build func(id int64) models.JobRecord) models.JobRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	rec := build(t.nextID)
	rec.ID = t.nextID
	t.jobs[rec.ID] = clonePtr(rec)
	return cloneValue(t.jobs[rec.ID])
}

// Get returns a snapshot copy of the record.
func (t *Table) Get(id int64) (models.JobRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return models.JobRecord{}, ErrNotFound
	}
	return cloneValue(job), nil
}

// List returns snapshot copies of every record in ascending id order.
func (t *Table) List() []models.JobRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.JobRecord, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, cloneValue(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update runs mutate against the live record under the table lock. If mutate
// returns an error the record is left as mutate left it, so mutate must only
// touch the record after deciding to proceed.
func (t *Table) Update(id int64, mutate func(job *models.JobRecord) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return ErrNotFound
	}
	return mutate(job)
}

// TryClaim atomically moves the job from PENDING to RUNNING. It returns
// false when the job exists but is not PENDING, so of two racing workers
// exactly one wins.
func (t *Table) TryClaim(id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status != models.StatusPending {
		return false, nil
	}
	job.Status = models.StatusRunning
	return true, nil
}

func clonePtr(rec models.JobRecord) *models.JobRecord {
	cp := rec
	cp.Log = append([]models.LogEntry(nil), rec.Log...)
	return &cp
}

func cloneValue(rec *models.JobRecord) models.JobRecord {
	cp := *rec
	cp.Log = append([]models.LogEntry(nil), rec.Log...)
	return cp
}
