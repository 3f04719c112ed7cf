// Package worker drives the detached processing loop: poll, claim, fetch,
// process, report back.
package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"job-mailbox/internal/models"
	"job-mailbox/internal/telemetry"
)

// Handler processes one claimed job's payload. report publishes progress as
// completed/total unit counts; it may be called any number of times. The
// returned bytes become the result payload and the string the job summary.
type Handler func(ctx context.Context, job models.JobRecord, data []byte, report func(completed, total int)) ([]byte, string, error)

// Runner owns the polling loop for a single worker process.
type Runner struct {
	client         *Client
	handlers       map[string]Handler
	defaultHandler Handler
	pollInterval   time.Duration
	log            *logrus.Entry
}

func NewRunner(client *Client, pollInterval time.Duration, log *logrus.Entry) *Runner {
	r := &Runner{
		client:       client,
		handlers:     make(map[string]Handler),
		pollInterval: pollInterval,
		log:          log,
	}
	r.defaultHandler = SimulatedHandler
	return r
}

// RegisterHandler binds a handler to a file extension such as ".csv".
func (r *Runner) RegisterHandler(ext string, handler Handler) {
	if ext == "" || handler == nil {
		return
	}
	r.handlers[strings.ToLower(ext)] = handler
}

// Run polls until the context is cancelled. Errors from individual jobs are
// reported to the mailbox and logged, never fatal to the loop.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		worked, err := r.RunOnce(ctx)
		if err != nil {
			r.log.WithError(err).Warn("poll cycle failed")
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// RunOnce performs a single poll cycle and processes at most one job.
// It returns true when a job was claimed and driven to a terminal state.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	job, err := r.client.PollPending(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	claimed, err := r.client.Claim(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Another worker observed the same pending job first.
		return false, nil
	}

	r.log.WithFields(logrus.Fields{"job": job.ID, "file": job.FileName}).Info("claimed job")
	r.process(ctx, *job)
	return true, nil
}

func (r *Runner) process(ctx context.Context, job models.JobRecord) {
	_ = r.client.AppendLog(ctx, job.ID, "Worker claimed job. Downloading input...", models.LevelInfo)

	data, err := r.client.FetchPayload(ctx, job.PayloadRef)
	if err != nil {
		r.fail(ctx, job.ID, fmt.Errorf("fetch input payload: %w", err))
		return
	}

	handler := r.handlerFor(job.FileName)
	output, summary, err := handler(ctx, job, data, func(completed, total int) {
		_ = r.client.AppendLog(ctx, job.ID, fmt.Sprintf("Progress: %d/%d", completed, total), models.LevelProgress)
	})
	if err != nil {
		r.fail(ctx, job.ID, err)
		return
	}

	ref, err := r.client.UploadPayload(ctx, output)
	if err != nil {
		r.fail(ctx, job.ID, fmt.Errorf("upload result payload: %w", err))
		return
	}

	_ = r.client.AppendLog(ctx, job.ID, summary, models.LevelSummary)
	completed := models.StatusCompleted
	if err := r.client.SetStatus(ctx, job.ID, models.StatusUpdate{
		Status:           &completed,
		Summary:          &summary,
		ResultPayloadRef: &ref,
	}); err != nil {
		r.log.WithError(err).WithField("job", job.ID).Error("report completion")
		return
	}
	telemetry.WorkerProcessed.Inc()
	r.log.WithField("job", job.ID).Info("job completed")
}

func (r *Runner) fail(ctx context.Context, id int64, cause error) {
	telemetry.WorkerErrors.Inc()
	r.log.WithError(cause).WithField("job", id).Error("job failed")
	_ = r.client.AppendLog(ctx, id, cause.Error(), models.LevelError)
	failed := models.StatusFailed
	summary := cause.Error()
	if err := r.client.SetStatus(ctx, id, models.StatusUpdate{
		Status:  &failed,
		Summary: &summary,
	}); err != nil {
		r.log.WithError(err).WithField("job", id).Error("report failure")
	}
}

func (r *Runner) handlerFor(fileName string) Handler {
	if h, ok := r.handlers[strings.ToLower(filepath.Ext(fileName))]; ok {
		return h
	}
	return r.defaultHandler
}
