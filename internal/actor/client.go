// Package actor is the client for the remote scraping actor service. A run
// is submitted with a filter payload, polled until it reaches a terminal
// status, and its dataset items are collected page by page.
package actor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"prensa/internal/logger"
	"prensa/internal/retry"
)

// Actor service errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrRunFailed            = errors.New("actor run finished unsuccessfully")
	ErrNoDataset            = errors.New("actor run produced no dataset")
)

// Terminal run statuses.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
	StatusTimedOut  = "TIMED-OUT"
)

const (
	defaultPageLimit    = 1000
	defaultPollInterval = 5 * time.Second
	maxResponseBytes    = 100 * 1024 * 1024
	waitForFinishSec    = 60
)

// Run describes one actor execution.
type Run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data Run `json:"data"`
}

// Client talks to the actor service.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	pageLimit    int
	pollInterval time.Duration
	policy       retry.Policy
	logger       *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval overrides the run poll interval (tests).
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithPageLimit overrides the dataset page size.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// NewClient creates an actor service client.
func NewClient(baseURL, token string, policy retry.Policy, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		baseURL:      baseURL,
		token:        token,
		pageLimit:    defaultPageLimit,
		pollInterval: defaultPollInterval,
		policy:       policy,
		logger:       log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StartRun submits a run with the given filter payload and returns its
// initial state. The call asks the service to wait briefly for completion,
// so short runs come back already terminal.
func (c *Client) StartRun(ctx context.Context, actorID string, input map[string]any) (*Run, error) {
	target := fmt.Sprintf("%s/v2/acts/%s/runs?waitForFinish=%d",
		c.baseURL, url.PathEscape(actorID), waitForFinishSec)

	var env runEnvelope

	err := c.policy.Do(ctx, func() error {
		return c.do(ctx, http.MethodPost, target, input, &env)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start actor %s: %w", actorID, err)
	}

	return &env.Data, nil
}

// WaitForRun polls a run until it reaches a terminal status.
func (c *Client) WaitForRun(ctx context.Context, run *Run) (*Run, error) {
	current := run

	for !isTerminal(current.Status) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		target := fmt.Sprintf("%s/v2/actor-runs/%s", c.baseURL, url.PathEscape(current.ID))

		var env runEnvelope

		err := c.policy.Do(ctx, func() error {
			return c.do(ctx, http.MethodGet, target, nil, &env)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to poll run %s: %w", current.ID, err)
		}

		current = &env.Data

		if c.logger != nil {
			c.logger.Debug("run status", "run", current.ID, "status", current.Status)
		}
	}

	if current.Status != StatusSucceeded {
		return current, fmt.Errorf("%w: run %s ended %s", ErrRunFailed, current.ID, current.Status)
	}

	return current, nil
}

// ListItems pages through a dataset until a short page, returning every
// item payload.
func (c *Client) ListItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	var items []map[string]any

	for offset := 0; ; offset += c.pageLimit {
		target := fmt.Sprintf("%s/v2/datasets/%s/items?format=json&offset=%d&limit=%d",
			c.baseURL, url.PathEscape(datasetID), offset, c.pageLimit)

		var page []map[string]any

		err := c.policy.Do(ctx, func() error {
			return c.do(ctx, http.MethodGet, target, nil, &page)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list dataset %s at offset %d: %w", datasetID, offset, err)
		}

		items = append(items, page...)

		if len(page) < c.pageLimit {
			break
		}
	}

	return items, nil
}

// Collect runs an actor to completion and returns its dataset items.
func (c *Client) Collect(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error) {
	run, err := c.StartRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	run, err = c.WaitForRun(ctx, run)
	if err != nil {
		return nil, err
	}

	if run.DefaultDatasetID == "" {
		return nil, fmt.Errorf("%w: run %s", ErrNoDataset, run.ID)
	}

	return c.ListItems(ctx, run.DefaultDatasetID)
}

func isTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	}

	return false
}

// do sends one JSON request and decodes the response body into out.
func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reqBody io.Reader = http.NoBody

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, resp.StatusCode, string(payload))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
