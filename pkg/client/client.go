// Package client is the submission-side driver: it calls the workflow
// service's submit and save entry points with bounded retries, per-attempt
// timeouts and failure classification, and turns transport errors into
// bucketed human-readable messages. The server's submit endpoint is
// idempotent by proposal UUID, so a retried attempt whose predecessor
// completed late is a no-op success.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"eventdesk/pkg/retry"
)

// APIError is a non-2xx response decoded from the service's error envelope.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d code %q", e.Status, e.Code)
}

// Client talks to the workflow service.
type Client struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
}

type Option func(c *Client)

// WithHTTPClient swaps the transport; tests use httptest servers.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// New constructs a Client with the default policy: 3 attempts, 10s per
// attempt, exponential backoff.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		policy: retry.Policy{
			MaxAttempts:    3,
			AttemptTimeout: 10 * time.Second,
			BaseDelay:      500 * time.Millisecond,
			Backoff:        retry.BackoffExponential,
			Classify:       Classify,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps transport and API errors to retry classes: 5xx, 408, 429,
// timeouts and network failures are transient; other 4xx are permanent.
func Classify(err error) retry.Class {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status >= 500:
			return retry.ClassTransient
		case apiErr.Status == http.StatusRequestTimeout, apiErr.Status == http.StatusTooManyRequests:
			return retry.ClassTransient
		default:
			return retry.ClassPermanent
		}
	}
	return retry.DefaultClassifier(err)
}

// Proposal is the client-side view of a proposal returned by the service.
type Proposal struct {
	UUID        string     `json:"uuid"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Submit moves the proposal from draft to pending. Safe to retry: the
// server treats a submit of an already-pending proposal as a no-op success.
func (c *Client) Submit(ctx context.Context, proposalUUID uuid.UUID, actorID int64) (*Proposal, error) {
	path := fmt.Sprintf("/proposals/%s/submit", proposalUUID)
	body := map[string]any{"actor_id": actorID}
	return retry.Do(ctx, func(ctx context.Context) (*Proposal, error) {
		return c.post(ctx, path, body)
	}, c.policy)
}

// SaveDraft creates a new draft proposal.
func (c *Client) SaveDraft(ctx context.Context, draft map[string]any) (*Proposal, error) {
	return retry.Do(ctx, func(ctx context.Context) (*Proposal, error) {
		return c.post(ctx, "/proposals", draft)
	}, c.policy)
}

func (c *Client) post(ctx context.Context, path string, body any) (*Proposal, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
		}
		// Best effort; an unparseable body still classifies by status.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &envelope)
		return nil, &APIError{Status: resp.StatusCode, Code: envelope.Error}
	}

	var p Proposal
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &p, nil
}

// FriendlyMessage buckets err into a user-facing message. Raw transport
// errors never reach the user.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return "Your session has expired. Please sign in again and resubmit."
		case apiErr.Status == http.StatusNotFound:
			return "The proposal could not be found. It may have been removed."
		case apiErr.Status >= 500:
			return "The server had a problem processing the submission. Please try again shortly."
		default:
			return "The submission was not accepted. Please review the form and try again."
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "The submission timed out. Your proposal may still have gone through; please check its status before retrying."
	}
	return "A network problem interrupted the submission. Please check your connection and try again."
}
