package relevance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"prensa/internal/logger"
	"prensa/internal/retry"
	"prensa/pkg/textutil"
)

// ErrNotHTML indicates a URL whose content is not an HTML page.
var ErrNotHTML = errors.New("content is not html")

// Fetch limits.
const (
	minHTMLBytes  = 256
	maxBodyBytes  = 2 * 1024 * 1024
	defaultUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxWorkersCap = 16
)

// Tags whose text participates in matching and classification input.
var visibleTags = "title, h1, h2, h3, p, li"

// Verifier fetches candidate pages and confirms they mention the monitored
// subject. Fetches run on a bounded worker pool; per-URL failures count as
// non-matches and never abort the batch.
type Verifier struct {
	client     *http.Client
	policy     retry.Policy
	matcher    *Matcher
	logger     *logger.Logger
	maxWorkers int
}

// NewVerifier creates a verifier. maxWorkers caps the pool; values above
// the hard ceiling are clamped.
func NewVerifier(matcher *Matcher, policy retry.Policy, timeout time.Duration, maxWorkers int, log *logger.Logger) *Verifier {
	if maxWorkers < 1 || maxWorkers > maxWorkersCap {
		maxWorkers = maxWorkersCap
	}

	return &Verifier{
		client:     &http.Client{Timeout: timeout},
		policy:     policy,
		matcher:    matcher,
		logger:     log,
		maxWorkers: maxWorkers,
	}
}

// poolSize picks a worker count for n URLs: at least 4, at most the
// configured cap, scaling with the batch.
func (v *Verifier) poolSize(n int) int {
	size := n/6 + 1
	if size < 4 {
		size = 4
	}

	if size > v.maxWorkers {
		size = v.maxWorkers
	}

	return size
}

// VerifyLinks checks every URL concurrently and returns link -> mentioned.
// Results are collected in completion order; callers re-sort downstream
// where order matters.
func (v *Verifier) VerifyLinks(ctx context.Context, links []string) map[string]bool {
	results := make(map[string]bool, len(links))
	if len(links) == 0 {
		return results
	}

	workers := v.poolSize(len(links))
	if v.logger != nil {
		v.logger.Info("verifying page content", "urls", len(links), "workers", workers)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, workers)
	)

	for _, link := range links {
		wg.Add(1)

		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ok := v.pageMatches(ctx, url)

			mu.Lock()
			results[url] = ok
			mu.Unlock()
		}(link)
	}

	wg.Wait()

	return results
}

// pageMatches fetches a page and reports whether its visible text matches
// the keyword set. Any failure is a non-match.
func (v *Verifier) pageMatches(ctx context.Context, url string) bool {
	text, err := v.FetchVisibleText(ctx, url, 0)
	if err != nil {
		if v.logger != nil {
			v.logger.Debug("page check failed", "url", url, "error", err)
		}

		return false
	}

	return v.matcher.MatchText(text)
}

// FetchVisibleText downloads a page and extracts its visible text (title,
// headings, paragraphs, list items). maxChars truncates the result when
// positive. Non-HTML URLs and tiny bodies fail with ErrNotHTML.
func (v *Verifier) FetchVisibleText(ctx context.Context, url string, maxChars int) (string, error) {
	if !v.probablyHTML(ctx, url) {
		return "", fmt.Errorf("%w: %s", ErrNotHTML, url)
	}

	var body []byte

	err := v.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}

		req.Header.Set("User-Agent", defaultUA)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := v.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
		}

		ctype := strings.ToLower(resp.Header.Get("Content-Type"))
		if ctype != "" && !strings.Contains(ctype, "html") {
			return fmt.Errorf("%w: %s", ErrNotHTML, ctype)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

		return err
	})
	if err != nil {
		return "", err
	}

	if len(body) < minHTMLBytes {
		return "", fmt.Errorf("%w: body too small (%d bytes)", ErrNotHTML, len(body))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var parts []string

	doc.Find(visibleTags).Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	text := textutil.NormalizeWhitespace(strings.Join(parts, " "))
	if maxChars > 0 {
		text = textutil.Truncate(text, maxChars)
	}

	return text, nil
}

// probablyHTML runs a HEAD precheck so PDFs and images are rejected before
// downloading full bodies. A failed HEAD lets the GET decide.
func (v *Verifier) probablyHTML(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return false
	}

	req.Header.Set("User-Agent", defaultUA)

	resp, err := v.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))

	return ctype == "" || strings.Contains(ctype, "text/html")
}
