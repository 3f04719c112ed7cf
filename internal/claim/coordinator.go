// Package claim answers the worker's "is there unclaimed work" poll.
package claim

import (
	"job-mailbox/internal/models"
	"job-mailbox/internal/store"
)

// Coordinator selects which pending job a polling worker sees next.
type Coordinator struct {
	table *store.Table
}

func New(table *store.Table) *Coordinator {
	return &Coordinator{table: table}
}

// PollPending returns a snapshot of the PENDING job with the smallest id,
// or nil when none exists. It is a peek: repeated calls neither lock nor
// remove the job. Ownership is taken separately through the claim primitive,
// which is where two workers racing on the same view are serialized.
func (c *Coordinator) PollPending() *models.JobRecord {
	for _, job := range c.table.List() {
		if job.Status == models.StatusPending {
			cp := job
			return &cp
		}
	}
	return nil
}

// PendingDepth counts jobs currently waiting for a worker.
func (c *Coordinator) PendingDepth() int {
	n := 0
	for _, job := range c.table.List() {
		if job.Status == models.StatusPending {
			n++
		}
	}
	return n
}
