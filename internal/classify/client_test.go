package classify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"prensa/internal/models"
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

func generationServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, answer)
	}))
	t.Cleanup(srv.Close)

	return srv
}

const longText = "La plataforma anuncio hoy una inversion millonaria en centros de datos regionales que ampliara su capacidad."

func TestClient_Sentiment(t *testing.T) {
	srv := generationServer(t, "POSITIVO")
	c := NewClient(srv.URL, "key", "model-x", quickPolicy(), nil)

	if got := c.Sentiment(context.Background(), longText); got != models.SentimentPositive {
		t.Errorf("Sentiment = %q, want positive", got)
	}
}

func TestClient_Sentiment_ShortTextShortCircuits(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"NEGATIVO"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "model-x", quickPolicy(), nil)

	if got := c.Sentiment(context.Background(), "muy corto"); got != models.SentimentNeutral {
		t.Errorf("short text = %q, want neutral", got)
	}

	if calls.Load() != 0 {
		t.Error("short text must not hit the endpoint")
	}
}

func TestClient_Sentiment_EndpointDownDefaultsNeutral(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "model-x", quickPolicy(), nil)

	if got := c.Sentiment(context.Background(), longText); got != models.SentimentNeutral {
		t.Errorf("endpoint failure = %q, want neutral", got)
	}
}

func TestClient_Tag(t *testing.T) {
	srv := generationServer(t, "Product")
	c := NewClient(srv.URL, "key", "model-x", quickPolicy(), nil)

	if got := c.Tag(context.Background(), longText); got != "Product" {
		t.Errorf("Tag = %q, want Product", got)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"NEGATIVO"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "model-x", quickPolicy(), nil)

	if got := c.Sentiment(context.Background(), longText); got != models.SentimentNegative {
		t.Errorf("Sentiment after retry = %q, want negative", got)
	}

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestMapSentiment(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"POSITIVO", models.SentimentPositive},
		{"positivo", models.SentimentPositive},
		{"NEGATIVE", models.SentimentNegative},
		{"  NEUTRO.  ", models.SentimentNeutral},
		{"La noticia es NEGATIVA para la marca", models.SentimentNegative},
		{"no lo se", models.SentimentNeutral},
		{"", models.SentimentNeutral},
	}

	for _, tt := range tests {
		if got := MapSentiment(tt.raw); got != tt.want {
			t.Errorf("MapSentiment(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestMapTag(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Product", "Product"},
		{"PRODUCT", "Product"},
		{"Consumer & Brand", "Consumer & Brand"},
		{"La categoria es Music", "Music"},
		{"algo sin sentido", DefaultTag},
		{"", DefaultTag},
	}

	for _, tt := range tests {
		if got := MapTag(tt.raw); got != tt.want {
			t.Errorf("MapTag(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestTagPromptListsAllCategories(t *testing.T) {
	prompt := tagPrompt("texto")

	for _, tag := range Tags {
		if !strings.Contains(prompt, tag) {
			t.Errorf("prompt missing category %q", tag)
		}
	}
}
