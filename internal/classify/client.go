// Package classify labels article text through a hosted text-generation
// endpoint. Responses are mapped onto closed label sets; anything the
// mapping cannot place falls back to a fixed default, so classification
// never fails a pipeline run.
package classify

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
	"prensa/internal/models"
	"prensa/internal/retry"
)

// Classifier errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrEmptyResponse        = errors.New("empty generation response")
)

const (
	// Pages shorter than this carry too little signal to classify.
	minTextRunes = 40

	// Page text is clipped before prompting to bound request size.
	maxPromptRunes = 12000

	maxResponseBytes = 4 * 1024 * 1024
)

// Client calls the generation endpoint and maps its answers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	policy     retry.Policy
	logger     *logger.Logger
}

// NewClient creates a classifier against the given generation endpoint.
func NewClient(baseURL, apiKey, model string, policy retry.Policy, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		policy:  policy,
		logger:  log,
	}
}

// Sentiment classifies page text into the closed sentiment set. Short or
// missing text, and any endpoint failure, yield the neutral default.
func (c *Client) Sentiment(ctx context.Context, text string) string {
	if len([]rune(text)) < minTextRunes {
		return models.SentimentNeutral
	}

	raw, err := c.generate(ctx, sentimentPrompt(clip(text)))
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("sentiment classification failed, defaulting", "error", err)
		}

		return models.SentimentNeutral
	}

	return MapSentiment(raw)
}

// Tag classifies page text into the closed tag set. Short or missing text,
// and any endpoint failure, yield the default tag.
func (c *Client) Tag(ctx context.Context, text string) string {
	if len([]rune(text)) < minTextRunes {
		return DefaultTag
	}

	raw, err := c.generate(ctx, tagPrompt(clip(text)))
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("tag classification failed, defaulting", "error", err)
		}

		return DefaultTag
	}

	return MapTag(raw)
}

func clip(text string) string {
	runes := []rune(text)
	if len(runes) > maxPromptRunes {
		return string(runes[:maxPromptRunes])
	}

	return text
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate posts one prompt and returns the first candidate's text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	target := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	var resp generateResponse

	err := c.policy.Do(ctx, func() error {
		return c.do(ctx, target, body, &resp)
	})
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) do(ctx context.Context, target string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

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

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
