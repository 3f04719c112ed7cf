// Package logagg owns each job's append-only event log and the progress
// counters derived from it.
package logagg

import (
	"time"

	"job-mailbox/internal/models"
	"job-mailbox/internal/progress"
	"job-mailbox/internal/store"
)

// Aggregator is the only writer of a job's log and unit counters.
type Aggregator struct {
	table *store.Table
}

func New(table *store.Table) *Aggregator {
	return &Aggregator{table: table}
}

// Append records one event verbatim, preserving arrival order. A zero
// timestamp is replaced with the server clock. Progress-level messages that
// parse overwrite both counters with no bounds check against prior values;
// a message that does not parse is still appended and the counters keep
// their previous values. Returns store.ErrNotFound for unknown ids.
func (a *Aggregator) Append(id int64, message, level string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return a.table.Update(id, func(job *models.JobRecord) error {
		job.Log = append(job.Log, models.LogEntry{
			Message:   message,
			Level:     level,
			Timestamp: ts,
		})
		if level == models.LevelProgress {
			if completed, total, ok := progress.Parse(message); ok {
				job.CompletedUnits = completed
				job.TotalUnits = total
			}
		}
		return nil
	})
}
