package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"prensa/internal/retry"
)

func quickPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		Sleep:        func(time.Duration) {},
	}
}

// fakeActor serves the run and dataset endpoints for one scripted run.
type fakeActor struct {
	mu        sync.Mutex
	statuses  []string // consumed by successive poll calls
	items     []map[string]any
	failStart int
	startHits int
	pollHits  int
}

func (f *fakeActor) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/acts/"):
			f.startHits++
			if f.failStart > 0 {
				f.failStart--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}

			fmt.Fprint(w, `{"data":{"id":"run-1","status":"RUNNING","defaultDatasetId":"ds-1"}}`)
		case strings.HasPrefix(r.URL.Path, "/v2/actor-runs/"):
			status := StatusSucceeded
			if f.pollHits < len(f.statuses) {
				status = f.statuses[f.pollHits]
			}
			f.pollHits++

			fmt.Fprintf(w, `{"data":{"id":"run-1","status":%q,"defaultDatasetId":"ds-1"}}`, status)
		case strings.HasPrefix(r.URL.Path, "/v2/datasets/"):
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

			end := offset + limit
			if end > len(f.items) {
				end = len(f.items)
			}

			page := []map[string]any{}
			if offset < len(f.items) {
				page = f.items[offset:end]
			}

			_ = json.NewEncoder(w).Encode(page)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeActor, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)

	return NewClient(srv.URL, "tok", quickPolicy(), nil, opts...)
}

func TestClient_Collect(t *testing.T) {
	fake := &fakeActor{
		statuses: []string{"RUNNING", StatusSucceeded},
		items: []map[string]any{
			{"title": "uno", "link": "https://a.com/1"},
			{"title": "dos", "link": "https://a.com/2"},
		},
	}
	c := newTestClient(t, fake)

	items, err := c.Collect(context.Background(), "acme/news", NewsInput("tiktok", "ar", 500, "last_day"))
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if len(items) != 2 || items[0]["title"] != "uno" {
		t.Errorf("items = %v", items)
	}

	if fake.pollHits != 2 {
		t.Errorf("poll calls = %d, want 2", fake.pollHits)
	}
}

func TestClient_Collect_FailedRun(t *testing.T) {
	fake := &fakeActor{statuses: []string{StatusFailed}}
	c := newTestClient(t, fake)

	_, err := c.Collect(context.Background(), "acme/news", nil)
	if err == nil {
		t.Fatal("failed run must surface an error")
	}
}

func TestClient_StartRun_RetriesWithIncreasingDelays(t *testing.T) {
	fake := &fakeActor{failStart: 2}

	var sleeps []time.Duration

	policy := retry.Policy{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2.0,
		Sleep:        func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := NewClient(srv.URL, "tok", policy, nil)

	run, err := c.StartRun(context.Background(), "acme/news", nil)
	if err != nil {
		t.Fatalf("third attempt should have succeeded: %v", err)
	}

	if run.ID != "run-1" {
		t.Errorf("run ID = %q", run.ID)
	}

	if fake.startHits != 3 {
		t.Errorf("start calls = %d, want 3", fake.startHits)
	}

	if len(sleeps) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(sleeps))
	}

	if sleeps[1] <= sleeps[0] {
		t.Errorf("delays must grow: %v then %v", sleeps[0], sleeps[1])
	}
}

func TestClient_ListItems_Pages(t *testing.T) {
	items := make([]map[string]any, 7)
	for i := range items {
		items[i] = map[string]any{"n": i}
	}

	fake := &fakeActor{items: items}
	c := newTestClient(t, fake, WithPageLimit(3))

	got, err := c.ListItems(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("ListItems returned error: %v", err)
	}

	if len(got) != 7 {
		t.Errorf("items = %d, want 7", len(got))
	}
}

func TestNewsInput(t *testing.T) {
	input := NewsInput("tiktok", "cl", 500, "last_day")

	if input["cr"] != "cl" || input["gl"] != "cl" {
		t.Errorf("region codes = %v/%v", input["cr"], input["gl"])
	}

	if input["query"] != "tiktok" || input["maxItems"] != 500 {
		t.Errorf("query/maxItems = %v/%v", input["query"], input["maxItems"])
	}
}

func TestTweetInput(t *testing.T) {
	input := TweetInput("somebody", 1000, "1d")

	if input["from"] != "somebody" || input["queryType"] != "Latest" {
		t.Errorf("from/queryType = %v/%v", input["from"], input["queryType"])
	}

	if input["filter:replies"] != false {
		t.Error("reply filter must be off")
	}
}
