// Package submit validates and admits new work into the mailbox.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"job-mailbox/internal/models"
	"job-mailbox/internal/payload"
	"job-mailbox/internal/store"
)

// ErrInvalidInput rejects malformed submissions.
var ErrInvalidInput = errors.New("invalid submission")

// Gateway allocates ids and payload slots for incoming jobs.
type Gateway struct {
	table    *store.Table
	payloads payload.Store
}

func New(table *store.Table, payloads payload.Store) *Gateway {
	return &Gateway{table: table, payloads: payloads}
}

// Submit stores the input blob and creates the PENDING record with a single
// seed log entry. The payload is stored first so the record never points at
// a missing blob; ids are allocated under the table lock and never reused.
func (g *Gateway) Submit(ctx context.Context, data []byte, fileName string, delaySeconds float64) (models.JobRecord, error) {
	if len(data) == 0 {
		return models.JobRecord{}, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	if delaySeconds <= 0 {
		return models.JobRecord{}, fmt.Errorf("%w: delaySeconds must be positive", ErrInvalidInput)
	}

	ref, err := g.payloads.Put(ctx, data)
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("store payload: %w", err)
	}

	now := time.Now().UTC()
	rec := g.table.Create(func(id int64) models.JobRecord {
		return models.JobRecord{
			PayloadRef:   ref,
			FileName:     fileName,
			DelaySeconds: delaySeconds,
			Status:       models.StatusPending,
			Log: []models.LogEntry{{
				Message:   fmt.Sprintf("Job %d created. Waiting for a worker to connect...", id),
				Level:     models.LevelInfo,
				Timestamp: now,
			}},
			CreatedAt: now,
		}
	})
	return rec, nil
}
