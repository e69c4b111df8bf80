// Package gateway is the client's thin abstraction over the remote health
// API. It enforces a per-call timeout, classifies failures, and never retries:
// retry policy belongs to the sync engine.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 10 * time.Second

// FailureKind classifies why a remote call failed.
type FailureKind string

const (
	FailureTimeout FailureKind = "timeout"
	FailureNetwork FailureKind = "network"
	FailureHTTP    FailureKind = "http-error"
	FailureParse   FailureKind = "parse-error"
)

// ErrDuplicate marks a 409 DUPLICATE_DATA rejection from the server. It is
// not retryable; the caller may resubmit with force set.
var ErrDuplicate = errors.New("duplicate same-day entry rejected by server")

// Failure wraps a classified remote call error.
type Failure struct {
	Kind   FailureKind
	Status int // set for FailureHTTP
	Err    error
}

func (f *Failure) Error() string {
	if f.Kind == FailureHTTP {
		return fmt.Sprintf("remote call failed (%s, status %d): %v", f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("remote call failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// IsRetryable reports whether the error should leave the record pending for a
// later sync pass. Validation and duplicate rejections are final.
func IsRetryable(err error) bool {
	var f *Failure
	if !errors.As(err, &f) {
		return false
	}
	switch f.Kind {
	case FailureTimeout, FailureNetwork:
		return true
	case FailureHTTP:
		return f.Status >= 500
	}
	return false
}

// Client talks to the remote health API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient constructs a Client with sane defaults.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// PushResult is the server's confirmation of a stored record.
type PushResult struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

type pushEnvelope struct {
	Success bool       `json:"success"`
	Data    PushResult `json:"data"`
}

type duplicateEnvelope struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion"`
}

// PushRecord submits a record. A 409 DUPLICATE_DATA response maps to
// ErrDuplicate unless force was set.
func (c *Client) PushRecord(ctx context.Context, record domain.HealthRecord, force bool) (*PushResult, error) {
	payload := struct {
		domain.HealthRecord
		ForceSubmit bool `json:"forceSubmit,omitempty"`
	}{HealthRecord: record, ForceSubmit: force}

	status, body, err := c.do(ctx, http.MethodPost, "/health-data", payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusConflict {
		var dup duplicateEnvelope
		_ = json.Unmarshal(body, &dup)
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, dup.Suggestion)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, &Failure{Kind: FailureHTTP, Status: status, Err: fmt.Errorf("unexpected status")}
	}

	var envelope pushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Failure{Kind: FailureParse, Err: err}
	}
	return &envelope.Data, nil
}

// FetchRecords retrieves the user's records, newest first. limit and days are
// optional; zero means server defaults.
func (c *Client) FetchRecords(ctx context.Context, userID string, limit, days int) ([]domain.HealthRecord, error) {
	path := "/health-data/" + url.PathEscape(userID)
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var records []domain.HealthRecord
	if err := c.getJSON(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchGoals retrieves the user's goals; the server answers with defaults
// when none were ever saved.
func (c *Client) FetchGoals(ctx context.Context, userID string) (*domain.Goals, error) {
	var goals domain.Goals
	if err := c.getJSON(ctx, "/goals/"+url.PathEscape(userID), &goals); err != nil {
		return nil, err
	}
	return &goals, nil
}

// PushGoals upserts the user's goals.
func (c *Client) PushGoals(ctx context.Context, goals domain.Goals) (*domain.Goals, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/goals", goals)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, &Failure{Kind: FailureHTTP, Status: status, Err: fmt.Errorf("unexpected status")}
	}

	var saved domain.Goals
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, &Failure{Kind: FailureParse, Err: err}
	}
	return &saved, nil
}

// FetchAggregated retrieves the server-side day-grouped aggregation, a
// convenience the client may use instead of aggregating locally.
func (c *Client) FetchAggregated(ctx context.Context, userID string, days int) ([]domain.DayAggregate, error) {
	path := "/health-data-aggregated/" + url.PathEscape(userID)
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}

	var aggregates []domain.DayAggregate
	if err := c.getJSON(ctx, path, &aggregates); err != nil {
		return nil, err
	}
	return aggregates, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &Failure{Kind: FailureHTTP, Status: status, Err: fmt.Errorf("unexpected status")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Failure{Kind: FailureParse, Err: err}
	}
	return nil
}

// do issues a single request with the client timeout applied and drains the
// response body before the timeout context is released. Transport failures
// come back classified; HTTP status handling stays with the caller.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, &Failure{Kind: FailureParse, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, &Failure{Kind: FailureNetwork, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, classifyTransport(err)
	}
	return resp.StatusCode, data, nil
}

func classifyTransport(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	return &Failure{Kind: FailureNetwork, Err: err}
}
