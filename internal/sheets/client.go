// Package sheets is the persistence adapter for the external tabular store.
// It speaks the store's values REST surface: read a rectangular range as
// rows of strings, clear a range, replace a range, and append rows with
// client-side chunking.
package sheets

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

// Store errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
)

const (
	defaultChunkRows = 500
	maxResponseBytes = 50 * 1024 * 1024
)

// Client reads and writes value ranges of one spreadsheet.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	spreadsheetID string
	chunkRows     int
	policy        retry.Policy
	logger        *logger.Logger
}

// NewClient creates a store client. chunkRows bounds rows per write
// request; values below 1 fall back to the default.
func NewClient(baseURL, token, spreadsheetID string, chunkRows int, policy retry.Policy, log *logger.Logger) *Client {
	if chunkRows < 1 {
		chunkRows = defaultChunkRows
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:       baseURL,
		token:         token,
		spreadsheetID: spreadsheetID,
		chunkRows:     chunkRows,
		policy:        policy,
		logger:        log,
	}
}

type valueRange struct {
	Values [][]any `json:"values,omitempty"`
}

// Get reads a range as rows of strings. The first row is the header when
// the sheet has one.
func (c *Client) Get(ctx context.Context, rng string) ([][]string, error) {
	var vr valueRange

	err := c.policy.Do(ctx, func() error {
		return c.do(ctx, http.MethodGet, c.rangeURL(rng, ""), nil, &vr)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}

	rows := make([][]string, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = fmt.Sprintf("%v", cell)
		}

		rows[i] = row
	}

	return rows, nil
}

// GetOrEmpty reads a range, degrading an unreadable store to the empty set
// with a loud warning. The subsequent write then rebuilds from scratch, so
// the caller must understand this risks dropping rows the read would have
// preserved.
func (c *Client) GetOrEmpty(ctx context.Context, rng string) [][]string {
	rows, err := c.Get(ctx, rng)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("store read failed; treating existing rows as empty set",
				"range", rng, "error", err)
		}

		return nil
	}

	return rows
}

// Clear empties a range.
func (c *Client) Clear(ctx context.Context, rng string) error {
	err := c.policy.Do(ctx, func() error {
		return c.do(ctx, http.MethodPost, c.rangeURL(rng, ":clear"), map[string]any{}, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to clear range %s: %w", rng, err)
	}

	return nil
}

// Update replaces a range with the given rows.
func (c *Client) Update(ctx context.Context, rng string, rows [][]string) error {
	body := map[string]any{"values": rows}

	target := c.rangeURL(rng, "") + "?valueInputOption=RAW"

	err := c.policy.Do(ctx, func() error {
		return c.do(ctx, http.MethodPut, target, body, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", rng, err)
	}

	return nil
}

// Append adds rows after the range's current contents, chunked so no
// single request exceeds the per-request row limit.
func (c *Client) Append(ctx context.Context, rng string, rows [][]string) error {
	for start := 0; start < len(rows); start += c.chunkRows {
		end := start + c.chunkRows
		if end > len(rows) {
			end = len(rows)
		}

		body := map[string]any{"values": rows[start:end]}

		target := c.rangeURL(rng, ":append") + "?valueInputOption=RAW&insertDataOption=INSERT_ROWS"

		err := c.policy.Do(ctx, func() error {
			return c.do(ctx, http.MethodPost, target, body, nil)
		})
		if err != nil {
			return fmt.Errorf("failed to append rows %d-%d to %s: %w", start, end, rng, err)
		}

		if c.logger != nil {
			c.logger.Debug("appended chunk", "range", rng, "rows", end-start)
		}
	}

	return nil
}

// EnsureHeader reads a tab and bootstraps the header row when the tab is
// empty. It returns the existing data rows (header excluded).
func (c *Client) EnsureHeader(ctx context.Context, rng string, header []string) ([][]string, error) {
	rows := c.GetOrEmpty(ctx, rng)

	if len(rows) == 0 {
		if c.logger != nil {
			c.logger.Info("empty tab, writing header", "range", rng)
		}

		if err := c.Update(ctx, rng, [][]string{header}); err != nil {
			return nil, err
		}

		return nil, nil
	}

	return rows[1:], nil
}

// rangeURL builds the values endpoint for a range, with an optional verb
// suffix (":clear", ":append").
func (c *Client) rangeURL(rng, verb string) string {
	return fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s%s",
		c.baseURL, c.spreadsheetID, url.PathEscape(rng), verb)
}

// do sends one JSON request and decodes the response into out when given.
func (c *Client) do(ctx context.Context, method, target string, body any, out any) error {
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

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, resp.StatusCode, string(payload))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
