package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"job-mailbox/internal/config"
	"job-mailbox/internal/models"
	"job-mailbox/internal/payload"
	"job-mailbox/internal/store"
)

func newTestServer(t *testing.T, strict bool) *httptest.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Config{StrictLifecycle: strict}
	s := New(cfg, store.NewTable(), payload.NewMemory(), nil, nil, logger.WithField("service", "test"))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func submitJob(t *testing.T, ts *httptest.Server, data []byte) models.JobRecord {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/jobs", map[string]any{
		"fileName":     "input.csv",
		"delaySeconds": 0.5,
		"payload":      base64.StdEncoding.EncodeToString(data),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status %d", resp.StatusCode)
	}
	var job models.JobRecord
	decodeJSON(t, resp, &job)
	return job
}

func TestSubmitAndGet(t *testing.T) {
	ts := newTestServer(t, false)
	job := submitJob(t, ts, []byte("a,b\n1,2\n"))

	if job.Status != models.StatusPending || len(job.Log) != 1 {
		t.Fatalf("unexpected submitted record: %+v", job)
	}

	resp, err := http.Get(fmt.Sprintf("%s/api/jobs/%d", ts.URL, job.ID))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	var got models.JobRecord
	decodeJSON(t, resp, &got)
	if got.ID != job.ID || got.PayloadRef != job.PayloadRef {
		t.Fatalf("get mismatch: %+v", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	ts := newTestServer(t, false)

	// Empty payload.
	resp := postJSON(t, ts.URL+"/api/jobs", map[string]any{
		"fileName": "f.csv", "delaySeconds": 1, "payload": "",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty payload: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Non-positive delay.
	resp = postJSON(t, ts.URL+"/api/jobs", map[string]any{
		"fileName": "f.csv", "delaySeconds": 0,
		"payload": base64.StdEncoding.EncodeToString([]byte("x")),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero delay: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bad base64.
	resp = postJSON(t, ts.URL+"/api/jobs", map[string]any{
		"fileName": "f.csv", "delaySeconds": 1, "payload": "!!not-base64!!",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad base64: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPollPendingEmptyAndOldest(t *testing.T) {
	ts := newTestServer(t, false)

	var out struct {
		Job *models.JobRecord `json:"job"`
	}
	resp, _ := http.Get(ts.URL + "/api/jobs/pending")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending status %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &out)
	if out.Job != nil {
		t.Fatalf("expected null job got %+v", out.Job)
	}

	first := submitJob(t, ts, []byte("one"))
	submitJob(t, ts, []byte("two"))

	resp, _ = http.Get(ts.URL + "/api/jobs/pending")
	decodeJSON(t, resp, &out)
	if out.Job == nil || out.Job.ID != first.ID {
		t.Fatalf("expected oldest job %d got %+v", first.ID, out.Job)
	}
}

func TestClaimFirstWinnerOnly(t *testing.T) {
	ts := newTestServer(t, false)
	job := submitJob(t, ts, []byte("one"))

	var out struct {
		Claimed bool `json:"claimed"`
	}
	resp := postJSON(t, fmt.Sprintf("%s/api/jobs/%d/claim", ts.URL, job.ID), nil)
	decodeJSON(t, resp, &out)
	if !out.Claimed {
		t.Fatal("first claim should win")
	}
	resp = postJSON(t, fmt.Sprintf("%s/api/jobs/%d/claim", ts.URL, job.ID), nil)
	decodeJSON(t, resp, &out)
	if out.Claimed {
		t.Fatal("second claim should lose")
	}
}

func TestLogAppendAndProgress(t *testing.T) {
	ts := newTestServer(t, false)
	job := submitJob(t, ts, []byte("one\ntwo\n"))
	logsURL := fmt.Sprintf("%s/api/jobs/%d/logs", ts.URL, job.ID)

	resp := postJSON(t, logsURL, map[string]any{"message": "Progress: 7/20", "level": "progress"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, logsURL, map[string]any{"message": "Progress: oops", "level": "progress"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(fmt.Sprintf("%s/api/jobs/%d", ts.URL, job.ID))
	var got models.JobRecord
	decodeJSON(t, resp, &got)
	if got.CompletedUnits != 7 || got.TotalUnits != 20 {
		t.Fatalf("counters = %d/%d, want 7/20", got.CompletedUnits, got.TotalUnits)
	}
	// seed entry + two appends
	if len(got.Log) != 3 {
		t.Fatalf("log length %d, want 3", len(got.Log))
	}
}

func TestStatusUpdateAndTerminalRecord(t *testing.T) {
	ts := newTestServer(t, false)
	job := submitJob(t, ts, []byte("one"))

	// Upload a result blob first.
	resp := postJSON(t, ts.URL+"/api/payloads", map[string]string{
		"data": base64.StdEncoding.EncodeToString([]byte("result-bytes")),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status %d", resp.StatusCode)
	}
	var uploaded struct {
		Ref string `json:"ref"`
	}
	decodeJSON(t, resp, &uploaded)

	resp = postJSON(t, fmt.Sprintf("%s/api/jobs/%d/status", ts.URL, job.ID), map[string]any{
		"status": models.StatusCompleted, "summary": "done", "resultPayloadRef": uploaded.Ref,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status update %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(fmt.Sprintf("%s/api/jobs/%d", ts.URL, job.ID))
	var got models.JobRecord
	decodeJSON(t, resp, &got)
	if got.Status != models.StatusCompleted || got.Summary != "done" || got.ResultPayloadRef != uploaded.Ref {
		t.Fatalf("unexpected terminal record: %+v", got)
	}
	if len(got.Log) != 1 {
		t.Fatalf("log entries lost: %+v", got.Log)
	}

	// Result blob round-trips.
	resp, _ = http.Get(ts.URL + "/api/payloads/" + uploaded.Ref)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "result-bytes" {
		t.Fatalf("payload mismatch: %q", body)
	}
}

func TestStatusRejectsUnknownValue(t *testing.T) {
	ts := newTestServer(t, false)
	job := submitJob(t, ts, []byte("one"))

	resp := postJSON(t, fmt.Sprintf("%s/api/jobs/%d/status", ts.URL, job.ID), map[string]any{
		"status": "EXPLODED",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStrictModeConflict(t *testing.T) {
	ts := newTestServer(t, true)
	job := submitJob(t, ts, []byte("one"))

	resp := postJSON(t, fmt.Sprintf("%s/api/jobs/%d/status", ts.URL, job.ID), map[string]any{
		"status": models.StatusCompleted,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnknownIDsReturn404(t *testing.T) {
	ts := newTestServer(t, false)

	for _, req := range []func() *http.Response{
		func() *http.Response { r, _ := http.Get(ts.URL + "/api/jobs/999"); return r },
		func() *http.Response { r, _ := http.Get(ts.URL + "/api/jobs/abc"); return r },
		func() *http.Response {
			return postJSON(t, ts.URL+"/api/jobs/999/logs", map[string]any{"message": "m", "level": "info"})
		},
		func() *http.Response {
			return postJSON(t, ts.URL+"/api/jobs/999/status", map[string]any{"status": models.StatusRunning})
		},
		func() *http.Response { return postJSON(t, ts.URL+"/api/jobs/999/claim", nil) },
		func() *http.Response { r, _ := http.Get(ts.URL + "/api/payloads/missing"); return r },
	} {
		resp := req()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 got %d", resp.StatusCode)
		}
		resp.Body.Close()
	}
}
