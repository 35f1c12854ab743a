package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	server "review_sentiment/internal/adapters/http_server"
	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
	"review_sentiment/internal/sentiment"
)

// ---- fakes ----

type memRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.SentimentResult
	pingErr error
}

func (m *memRepo) Ping(ctx context.Context) error { return m.pingErr }
func (m *memRepo) UpsertAnalysis(ctx context.Context, r domain.SentimentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = r
	return nil
}
func (m *memRepo) GetAnalysis(ctx context.Context, id string) (domain.SentimentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return domain.SentimentResult{}, domain.ErrNotFound
	}
	return r, nil
}
func (m *memRepo) ListAnalyses(ctx context.Context, f domain.AnalysisFilter) ([]domain.SentimentResult, error) {
	return nil, nil
}
func (m *memRepo) AggregateStats(ctx context.Context, f domain.AnalysisFilter) (domain.AnalysisStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.AnalysisStats{TotalReviews: len(m.rows)}, nil
}

type noCache struct{}

func (noCache) Get(ctx context.Context, key string, dst any) (bool, error)      { return false, nil }
func (noCache) Set(ctx context.Context, key string, v any, ttlSec int) error { return nil }
func (noCache) Del(ctx context.Context, key string) error                    { return nil }

type stubScraper struct{}

func (stubScraper) ScrapePlace(ctx context.Context, q domain.ScrapeQuery) (domain.ScrapedPlace, error) {
	if q.PlaceURL == "https://broken" {
		return domain.ScrapedPlace{}, errors.New("upstream exploded")
	}
	return domain.ScrapedPlace{
		Location: domain.Location{Raw: map[string]any{"title": "AHASS", "placeId": "P1"}},
		Reviews:  []map[string]any{{"reviewId": "a", "text": "Pelayanan ramah", "stars": float64(5)}},
	}, nil
}

type memDedup struct{ resets []string }

func (d *memDedup) FilterNew(ctx context.Context, rs []domain.ReviewRecord, placeID string) ([]domain.ReviewRecord, error) {
	return rs, nil
}
func (d *memDedup) Reset(ctx context.Context, placeID string) error {
	d.resets = append(d.resets, placeID)
	return nil
}
func (d *memDedup) ResetAll(ctx context.Context) error { d.resets = append(d.resets, "*"); return nil }
func (d *memDedup) Count(ctx context.Context, placeID string) (int, error) {
	return 7, nil
}

type fixture struct {
	ts    *httptest.Server
	repo  *memRepo
	dedup *memDedup
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &memRepo{rows: map[string]domain.SentimentResult{}}
	dd := &memDedup{}
	batch := app.NewBatchService(repo, sentiment.NewEngine(nil), noCache{}, 4)
	h := &server.Handlers{
		Batch:  batch,
		Q:      app.NewQueryService(repo, noCache{}, time.Minute),
		Scrape: app.NewScrapeService(stubScraper{}, dd, batch).WithPause(0),
		Jobs:   app.NewJobRegistry(),
		Dedup:  dd,
	}
	srv := server.New(5*time.Second, 10*time.Second)
	srv.MountHandlers(h)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, repo: repo, dedup: dd}
}

func (f *fixture) do(t *testing.T, method, path, body string, hdr ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

// ---- tests ----

func TestBatchAnalyze(t *testing.T) {
	f := newFixture(t)
	body := `{"reviews":[
		{"id":"1","full_review":"good service","rating":5},
		{"id":"2","full_review":"","rating":3},
		{"id":"3","full_review":"terrible wait","rating":1}
	]}`
	resp, b := f.do(t, http.MethodPost, "/v1/analyze/batch?is_google=true", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.StatusCode, b)
	}

	var out struct {
		Success   bool `json:"success"`
		Total     int  `json:"total_reviews"`
		Processed int  `json:"processed"`
		Failed    int  `json:"failed"`
		Results   []struct {
			ID        string `json:"id"`
			Sentiment string `json:"sentiment"`
			IsGoogle  bool   `json:"is_google"`
			SavedToDB bool   `json:"saved_to_db"`
		} `json:"results"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.Total != 3 || out.Processed != 2 || out.Failed != 0 || len(out.Results) != 2 {
		t.Fatalf("unexpected outcome: %s", b)
	}
	if out.Results[0].Sentiment != "Positive" || out.Results[1].Sentiment != "Negative" || !out.Results[0].IsGoogle || !out.Results[1].SavedToDB {
		t.Fatalf("unexpected results: %+v", out.Results)
	}

	// Second pass is served from the store.
	_, b = f.do(t, http.MethodPost, "/v1/analyze/batch", body)
	if !strings.Contains(string(b), `"from_cache":2`) {
		t.Fatalf("expected two cache hits: %s", b)
	}
}

func TestBatchAnalyze_Errors(t *testing.T) {
	f := newFixture(t)

	resp, b := f.do(t, http.MethodPost, "/v1/analyze/batch", `{"reviews":[]}`)
	if resp.StatusCode != http.StatusBadRequest || resp.Header.Get("Content-Type") != "application/problem+json" {
		t.Fatalf("empty batch: status=%d ct=%s body=%s", resp.StatusCode, resp.Header.Get("Content-Type"), b)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/analyze/batch?is_google=maybe", `{"reviews":[{"full_review":"x"}]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad flag: status=%d", resp.StatusCode)
	}

	f.repo.pingErr = errors.New("db down")
	resp, _ = f.do(t, http.MethodPost, "/v1/analyze/batch", `{"reviews":[{"full_review":"fine"}]}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("store down: status=%d", resp.StatusCode)
	}
}

func TestGetAnalysis_ETag(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/v1/analyses/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing: status=%d", resp.StatusCode)
	}

	f.repo.rows["R1"] = domain.SentimentResult{ID: "R1", ReviewText: "ok", Sentiment: domain.Neutral}
	resp, _ = f.do(t, http.MethodGet, "/v1/analyses/R1", "")
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != http.StatusOK || etag == "" {
		t.Fatalf("status=%d etag=%q", resp.StatusCode, etag)
	}
	resp, _ = f.do(t, http.MethodGet, "/v1/analyses/R1", "", "If-None-Match", etag)
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional get: status=%d", resp.StatusCode)
	}
}

func TestListAnalyses_Validation(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"sentiment=Happy", "limit=0", "offset=-1", "start_date=yesterday"} {
		resp, _ := f.do(t, http.MethodGet, "/v1/analyses?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", q, resp.StatusCode)
		}
	}
	resp, b := f.do(t, http.MethodGet, "/v1/analyses?sentiment=Positive&start_date=2024-01-01&end_date=2024-12-31", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"results":[]`) {
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
}

func TestCleanReviews(t *testing.T) {
	f := newFixture(t)
	_, b := f.do(t, http.MethodPost, "/v1/reviews/clean", `[{"text":"Mantap sekali"},{"text":""},{"text":"ok"},{"photos":["x.jpg"]}]`)
	var out app.CleanResult
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode: %v (%s)", err, b)
	}
	if out.Stats != (domain.CleaningStats{Total: 4, Valid: 1, NoText: 1, TooShort: 1, OnlyImages: 1}) {
		t.Fatalf("stats = %+v", out.Stats)
	}
}

func TestScrape(t *testing.T) {
	f := newFixture(t)

	resp, b := f.do(t, http.MethodPost, "/v1/scrape", `{"place_url":"https://maps/x"}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"raw_reviews_fetched":1`) || !strings.Contains(string(b), `"analyzed":true`) {
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/scrape", `{"place_url":"https://broken"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("broken source: status=%d", resp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/scrape", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing url: status=%d", resp.StatusCode)
	}
}

func TestScrapeAsync_Job(t *testing.T) {
	f := newFixture(t)

	resp, b := f.do(t, http.MethodPost, "/v1/scrape/async", `{"place_url":"https://maps/x","analyze":false}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	var started struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(b, &started)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, b = f.do(t, http.MethodGet, "/v1/jobs/"+started.JobID, "")
		if strings.Contains(string(b), `"status":"completed"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed: %s", b)
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, _ = f.do(t, http.MethodGet, "/v1/jobs/unknown", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown job: status=%d", resp.StatusCode)
	}
	_, b = f.do(t, http.MethodGet, "/v1/jobs", "")
	if !strings.Contains(string(b), `"completed_jobs":1`) {
		t.Fatalf("jobs listing: %s", b)
	}
}

func TestDedupRoutes(t *testing.T) {
	f := newFixture(t)
	_, b := f.do(t, http.MethodGet, "/v1/dedup/P1", "")
	if !strings.Contains(string(b), `"cached_reviews":7`) {
		t.Fatalf("count: %s", b)
	}
	if resp, _ := f.do(t, http.MethodDelete, "/v1/dedup/P1", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reset: status=%d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodDelete, "/v1/dedup", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reset all: status=%d", resp.StatusCode)
	}
	if strings.Join(f.dedup.resets, ",") != "P1,*" {
		t.Fatalf("resets = %v", f.dedup.resets)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, b := f.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK || string(b) != "ok" {
		t.Fatalf("healthz: %d %s", resp.StatusCode, b)
	}
	f.repo.pingErr = errors.New("down")
	_, b = f.do(t, http.MethodGet, "/v1/health", "")
	if !strings.Contains(string(b), `"status":"degraded"`) || !strings.Contains(string(b), `"fallback_available":true`) {
		t.Fatalf("health: %s", b)
	}
}
