package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"prensa/internal/retry"
)

func quickPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		Sleep:        func(time.Duration) {},
	}
}

// fakeStore records requests against the values endpoints.
type fakeStore struct {
	mu       sync.Mutex
	appends  [][][]string
	updates  [][][]string
	cleared  []string
	getBody  string
	getCode  int
	failGets int
}

func (f *fakeStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, ":clear"):
			f.cleared = append(f.cleared, r.URL.Path)
			fmt.Fprint(w, "{}")
		case strings.HasSuffix(r.URL.Path, ":append"):
			var body struct {
				Values [][]string `json:"values"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.appends = append(f.appends, body.Values)
			fmt.Fprint(w, "{}")
		case r.Method == http.MethodPut:
			var body struct {
				Values [][]string `json:"values"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.updates = append(f.updates, body.Values)
			fmt.Fprint(w, "{}")
		default: // GET
			if f.failGets > 0 {
				f.failGets--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}

			if f.getCode != 0 {
				w.WriteHeader(f.getCode)
				return
			}

			fmt.Fprint(w, f.getBody)
		}
	})
}

func newTestClient(t *testing.T, store *fakeStore, chunkRows int) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, "tok", "sheet-1", chunkRows, quickPolicy(), nil), srv
}

func TestClient_Get(t *testing.T) {
	store := &fakeStore{getBody: `{"values":[["link","title"],["https://a","t1"]]}`}
	c, _ := newTestClient(t, store, 500)

	rows, err := c.Get(context.Background(), "Data!A:B")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if len(rows) != 2 || rows[1][0] != "https://a" {
		t.Errorf("rows = %v", rows)
	}
}

func TestClient_Get_RetriesTransient(t *testing.T) {
	store := &fakeStore{getBody: `{"values":[]}`, failGets: 2}
	c, _ := newTestClient(t, store, 500)

	if _, err := c.Get(context.Background(), "Data!A:B"); err != nil {
		t.Errorf("Get should succeed after retries: %v", err)
	}
}

func TestClient_GetOrEmpty_DegradesToEmpty(t *testing.T) {
	store := &fakeStore{getCode: http.StatusForbidden}
	c, _ := newTestClient(t, store, 500)

	if rows := c.GetOrEmpty(context.Background(), "Data!A:B"); rows != nil {
		t.Errorf("unreadable store must degrade to empty set, got %v", rows)
	}
}

func TestClient_Append_Chunks(t *testing.T) {
	store := &fakeStore{}
	c, _ := newTestClient(t, store, 500)

	rows := make([][]string, 1200)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("row-%d", i)}
	}

	if err := c.Append(context.Background(), "Data!A1", rows); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if len(store.appends) != 3 {
		t.Fatalf("append requests = %d, want 3 chunks of <=500", len(store.appends))
	}

	if len(store.appends[0]) != 500 || len(store.appends[1]) != 500 || len(store.appends[2]) != 200 {
		t.Errorf("chunk sizes = %d/%d/%d", len(store.appends[0]), len(store.appends[1]), len(store.appends[2]))
	}

	if store.appends[2][199][0] != "row-1199" {
		t.Errorf("row order lost: last = %v", store.appends[2][199])
	}
}

func TestClient_ClearAndUpdate(t *testing.T) {
	store := &fakeStore{}
	c, _ := newTestClient(t, store, 500)

	if err := c.Clear(context.Background(), "Data!A:J"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	rows := [][]string{{"h1", "h2"}, {"a", "b"}}
	if err := c.Update(context.Background(), "Data!A1", rows); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(store.cleared) != 1 || len(store.updates) != 1 {
		t.Errorf("cleared=%d updates=%d", len(store.cleared), len(store.updates))
	}

	if store.updates[0][0][0] != "h1" {
		t.Errorf("update payload = %v", store.updates[0])
	}
}

func TestClient_EnsureHeader_BootstrapsEmptyTab(t *testing.T) {
	store := &fakeStore{getBody: `{}`}
	c, _ := newTestClient(t, store, 500)

	rows, err := c.EnsureHeader(context.Background(), "Data!A:C", []string{"link", "title", "source"})
	if err != nil {
		t.Fatalf("EnsureHeader returned error: %v", err)
	}

	if rows != nil {
		t.Errorf("empty tab should yield no data rows, got %v", rows)
	}

	if len(store.updates) != 1 || store.updates[0][0][0] != "link" {
		t.Errorf("header not written: %v", store.updates)
	}
}

func TestClient_EnsureHeader_ExistingRows(t *testing.T) {
	store := &fakeStore{getBody: `{"values":[["link","title"],["https://a","t1"],["https://b","t2"]]}`}
	c, _ := newTestClient(t, store, 500)

	rows, err := c.EnsureHeader(context.Background(), "Data!A:B", []string{"link", "title"})
	if err != nil {
		t.Fatalf("EnsureHeader returned error: %v", err)
	}

	if len(rows) != 2 || rows[0][0] != "https://a" {
		t.Errorf("data rows = %v", rows)
	}

	if len(store.updates) != 0 {
		t.Error("header must not be rewritten for a populated tab")
	}
}
