package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"job-mailbox/internal/archive"
	"job-mailbox/internal/claim"
	"job-mailbox/internal/config"
	"job-mailbox/internal/lifecycle"
	"job-mailbox/internal/logagg"
	"job-mailbox/internal/models"
	"job-mailbox/internal/payload"
	"job-mailbox/internal/ratelimit"
	"job-mailbox/internal/store"
	"job-mailbox/internal/submit"
	"job-mailbox/internal/telemetry"
)

// Server wires HTTP handlers for the mailbox boundary operations. Transport
// concerns live here; the packages underneath never see HTTP.
type Server struct {
	cfg      config.Config
	table    *store.Table
	payloads payload.Store
	gateway  *submit.Gateway
	engine   *lifecycle.Engine
	pending  *claim.Coordinator
	logs     *logagg.Aggregator
	limiter  *ratelimit.TokenBucket
	archive  *archive.Archive
	log      *logrus.Entry
}

// New constructs the API server around a single job table and payload store.
// limiter and arch may be nil, disabling rate limiting and archiving.
func New(cfg config.Config, table *store.Table, payloads payload.Store, limiter *ratelimit.TokenBucket, arch *archive.Archive, log *logrus.Entry) *Server {
	return &Server{
		cfg:      cfg,
		table:    table,
		payloads: payloads,
		gateway:  submit.New(table, payloads),
		engine:   lifecycle.New(table, cfg.StrictLifecycle),
		pending:  claim.New(table),
		logs:     logagg.New(table),
		limiter:  limiter,
		archive:  arch,
		log:      log,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/metrics", telemetry.Handler())

	r.Post("/api/jobs", s.handleSubmit)
	r.Get("/api/jobs/pending", s.handlePollPending)
	r.Get("/api/jobs/{id}", s.handleGetJob)
	r.Post("/api/jobs/{id}/claim", s.handleClaim)
	r.Post("/api/jobs/{id}/logs", s.handleAppendLog)
	r.Post("/api/jobs/{id}/status", s.handleSetStatus)
	r.Post("/api/payloads", s.handleUploadPayload)
	r.Get("/api/payloads/{ref}", s.handleGetPayload)
	return r
}

type submitRequest struct {
	FileName     string  `json:"fileName"`
	DelaySeconds float64 `json:"delaySeconds"`
	Payload      string  `json:"payload"` // base64
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "payload is not valid base64")
		return
	}

	if s.limiter != nil {
		allowed, _, err := s.limiter.Allow(r.Context(), submitterFromRequest(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rate limit error")
			return
		}
		if !allowed {
			telemetry.SubmissionRejects.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
	}

	job, err := s.gateway.Submit(r.Context(), data, req.FileName, req.DelaySeconds)
	if err != nil {
		if errors.Is(err, submit.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.WithError(err).Error("submit failed")
		writeError(w, http.StatusInternalServerError, "submission failed")
		return
	}

	telemetry.SubmissionCounter.Inc()
	telemetry.PendingGauge.Set(float64(s.pending.PendingDepth()))
	s.log.WithFields(logrus.Fields{"job": job.ID, "file": job.FileName}).Info("job submitted")
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.table.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type pendingResponse struct {
	Job *models.JobRecord `json:"job"`
}

// handlePollPending always answers 200: an empty mailbox is {"job": null},
// never an error, so workers can tell "no work yet" from a broken lookup.
func (s *Server) handlePollPending(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pendingResponse{Job: s.pending.PollPending()})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	claimed, err := s.engine.TryClaim(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if claimed {
		telemetry.ClaimCounter.Inc()
	} else {
		telemetry.ClaimConflicts.Inc()
	}
	telemetry.PendingGauge.Set(float64(s.pending.PendingDepth()))
	writeJSON(w, http.StatusOK, map[string]bool{"claimed": claimed})
}

type logRequest struct {
	Message   string     `json:"message"`
	Level     string     `json:"level"`
	Timestamp *time.Time `json:"timestamp"`
}

func (s *Server) handleAppendLog(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var ts time.Time
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	if err := s.logs.Append(id, req.Message, req.Level, ts); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	telemetry.LogAppendCounter.Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type statusRequest struct {
	Status           *string `json:"status"`
	Summary          *string `json:"summary"`
	ResultPayloadRef *string `json:"resultPayloadRef"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	err = s.engine.SetStatus(id, models.StatusUpdate{
		Status:           req.Status,
		Summary:          req.Summary,
		ResultPayloadRef: req.ResultPayloadRef,
	})
	switch {
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "status update failed")
		return
	}

	if req.Status != nil && models.Terminal(*req.Status) {
		if *req.Status == models.StatusCompleted {
			telemetry.JobsCompleted.Inc()
		} else {
			telemetry.JobsFailed.Inc()
		}
		s.archiveTerminal(r, id)
	}
	telemetry.PendingGauge.Set(float64(s.pending.PendingDepth()))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// archiveTerminal copies the final record to Postgres. Best effort: the
// worker's status update must not fail because retention storage is down.
func (s *Server) archiveTerminal(r *http.Request, id int64) {
	if s.archive == nil {
		return
	}
	job, err := s.table.Get(id)
	if err != nil {
		return
	}
	if err := s.archive.Save(r.Context(), job); err != nil {
		s.log.WithError(err).WithField("job", id).Warn("archive terminal job")
	}
}

type uploadRequest struct {
	Data string `json:"data"` // base64
}

func (s *Server) handleUploadPayload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "data is not valid base64")
		return
	}
	ref, err := s.payloads.Put(r.Context(), data)
	if err != nil {
		s.log.WithError(err).Error("store payload")
		writeError(w, http.StatusInternalServerError, "store payload failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	data, err := s.payloads.Get(r.Context(), ref)
	if err != nil {
		if errors.Is(err, payload.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payload not found")
			return
		}
		s.log.WithError(err).Error("fetch payload")
		writeError(w, http.StatusInternalServerError, "fetch payload failed")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func jobID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func submitterFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Client-ID"); v != "" {
		return v
	}
	return "default"
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
