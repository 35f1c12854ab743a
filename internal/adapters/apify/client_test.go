package apify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"review_sentiment/internal/adapters/apify"
	"review_sentiment/internal/domain"
)

func TestClient_ScrapePlace_RetriesThenSuccess(t *testing.T) {
	var hits int32
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/acts/actor-1/run-sync-get-dataset-items" || r.URL.Query().Get("token") != "tok" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			// one transient failure
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode([]map[string]any{{
				"title":   "AHASS",
				"placeId": "P1",
				"reviews": []any{
					map[string]any{"reviewId": "a", "text": "bagus"},
					map[string]any{"reviewId": "b", "text": "lama"},
				},
			}})
		}
	}))
	defer ts.Close()

	cl, err := apify.New(ts.URL, "actor-1", "tok", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.ScrapePlace(ctx, domain.ScrapeQuery{PlaceURL: "https://maps/x", MaxReviews: 10, Language: "id", SortBy: "newest"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Location.PlaceID != "P1" || got.Location.Raw["title"] != "AHASS" || len(got.Reviews) != 2 {
		t.Fatalf("unexpected place: %+v", got)
	}
	if _, ok := got.Location.Raw["reviews"]; ok {
		t.Fatalf("raw location should not carry reviews")
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 calls due to retry, got %d", hits)
	}
	if body["maxReviews"] != float64(10) || body["sortBy"] != "newest" {
		t.Fatalf("unexpected run input: %+v", body)
	}
}

func TestClient_ScrapePlace_EmptyDataset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer ts.Close()

	cl, _ := apify.New(ts.URL, "", "tok", 100)
	_, err := cl.ScrapePlace(context.Background(), domain.ScrapeQuery{PlaceURL: "https://maps/x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestClient_ScrapePlace_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := apify.New(ts.URL, "", "bad", 100)
	_, err := cl.ScrapePlace(context.Background(), domain.ScrapeQuery{PlaceURL: "https://maps/x"})
	if !errors.Is(err, apify.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := apify.New("", "", "", 1); err == nil {
		t.Fatalf("expected error without token")
	}
}
