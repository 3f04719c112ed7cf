package worker

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"job-mailbox/internal/models"
)

// Client talks to the mailbox API on behalf of a detached worker. The worker
// has no inbound network access, so every interaction is an outbound call
// from here.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

// PollPending peeks at the oldest pending job. nil means the mailbox is
// empty, which is not an error.
func (c *Client) PollPending(ctx context.Context) (*models.JobRecord, error) {
	var out struct {
		Job *models.JobRecord `json:"job"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/jobs/pending")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("poll pending: %s", resp.Status())
	}
	return out.Job, nil
}

// Claim attempts the PENDING to RUNNING transition. false means another
// worker won or the job already moved on.
func (c *Client) Claim(ctx context.Context, id int64) (bool, error) {
	var out struct {
		Claimed bool `json:"claimed"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Post(fmt.Sprintf("/api/jobs/%d/claim", id))
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, fmt.Errorf("claim job %d: %s", id, resp.Status())
	}
	return out.Claimed, nil
}

// FetchPayload downloads a blob by reference.
func (c *Client) FetchPayload(ctx context.Context, ref string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/api/payloads/" + ref)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch payload %s: %s", ref, resp.Status())
	}
	return resp.Body(), nil
}

// UploadPayload stores a result blob and returns its reference.
func (c *Client) UploadPayload(ctx context.Context, data []byte) (string, error) {
	var out struct {
		Ref string `json:"ref"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"data": base64.StdEncoding.EncodeToString(data)}).
		SetResult(&out).
		Post("/api/payloads")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload payload: %s", resp.Status())
	}
	return out.Ref, nil
}

// AppendLog pushes one log line, timestamped with the worker clock.
func (c *Client) AppendLog(ctx context.Context, id int64, message, level string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{
			"message":   message,
			"level":     level,
			"timestamp": time.Now().UTC(),
		}).
		Post(fmt.Sprintf("/api/jobs/%d/logs", id))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("append log for job %d: %s", id, resp.Status())
	}
	return nil
}

// SetStatus pushes a partial status update; nil fields are omitted from the
// request body so the server leaves them unchanged.
func (c *Client) SetStatus(ctx context.Context, id int64, up models.StatusUpdate) error {
	body := map[string]any{}
	if up.Status != nil {
		body["status"] = *up.Status
	}
	if up.Summary != nil {
		body["summary"] = *up.Summary
	}
	if up.ResultPayloadRef != nil {
		body["resultPayloadRef"] = *up.ResultPayloadRef
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(fmt.Sprintf("/api/jobs/%d/status", id))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("set status for job %d: %s", id, resp.Status())
	}
	return nil
}
