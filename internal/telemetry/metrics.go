package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	SubmissionCounter = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_jobs_submitted_total", Help: "Jobs admitted by the submission gateway"})
	SubmissionRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_submissions_rejected_total", Help: "Submissions rejected by the rate limiter"})
	ClaimCounter      = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_jobs_claimed_total", Help: "Successful PENDING to RUNNING claims"})
	ClaimConflicts    = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_claim_conflicts_total", Help: "Claims that lost the race or targeted a non-pending job"})
	LogAppendCounter  = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_log_appends_total", Help: "Log entries appended across all jobs"})
	JobsCompleted     = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_jobs_completed_total", Help: "Jobs that reached COMPLETED"})
	JobsFailed        = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_jobs_failed_total", Help: "Jobs that reached FAILED"})
	PendingGauge      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "mailbox_jobs_pending", Help: "Jobs currently waiting for a worker"})
	WorkerProcessed   = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_worker_jobs_processed_total", Help: "Jobs the worker finished successfully"})
	WorkerErrors      = prometheus.NewCounter(prometheus.CounterOpts{Name: "mailbox_worker_jobs_errored_total", Help: "Jobs the worker reported as failed"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionCounter,
			SubmissionRejects,
			ClaimCounter,
			ClaimConflicts,
			LogAppendCounter,
			JobsCompleted,
			JobsFailed,
			PendingGauge,
			WorkerProcessed,
			WorkerErrors,
		)
	})
	return promhttp.Handler()
}
