// Package lifecycle enforces job status writes and the claim primitive.
package lifecycle

import (
	"errors"
	"fmt"

	"job-mailbox/internal/models"
	"job-mailbox/internal/store"
)

var (
	// ErrUnknownStatus rejects status values outside the lifecycle enum.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrIllegalTransition is only returned in strict mode.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// Engine applies status writes to the job table.
//
// In the default (permissive) mode any known status value is accepted at any
// time, matching the observed behavior of the protocol this replaces. With
// Strict set, terminal states are frozen and RUNNING/COMPLETED/FAILED must be
// reached in order.
type Engine struct {
	table  *store.Table
	strict bool
}

func New(table *store.Table, strict bool) *Engine {
	return &Engine{table: table, strict: strict}
}

// SetStatus applies the supplied fields to the record, leaving omitted
// fields untouched (last writer wins per field, not per record). Returns
// store.ErrNotFound for unknown ids.
func (e *Engine) SetStatus(id int64, up models.StatusUpdate) error {
	if up.Status != nil && !models.ValidStatus(*up.Status) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, *up.Status)
	}
	return e.table.Update(id, func(job *models.JobRecord) error {
		if up.Status != nil && e.strict {
			if err := checkTransition(job.Status, *up.Status); err != nil {
				return err
			}
		}
		if up.Status != nil {
			job.Status = *up.Status
		}
		if up.Summary != nil {
			job.Summary = *up.Summary
		}
		if up.ResultPayloadRef != nil {
			job.ResultPayloadRef = *up.ResultPayloadRef
		}
		return nil
	})
}

// TryClaim atomically transitions the job from PENDING to RUNNING. Exactly
// one of any number of racing callers observes true; a claim against a job
// that is already RUNNING or terminal returns false rather than restarting
// it.
func (e *Engine) TryClaim(id int64) (bool, error) {
	return e.table.TryClaim(id)
}

func checkTransition(from, to string) error {
	if from == to {
		return nil
	}
	if models.Terminal(from) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	switch to {
	case models.StatusRunning:
		if from != models.StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
		}
	case models.StatusCompleted, models.StatusFailed:
		if from != models.StatusRunning {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
		}
	case models.StatusPending:
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
