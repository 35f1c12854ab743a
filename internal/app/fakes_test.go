package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"review_sentiment/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu        sync.Mutex
	rows      map[string]domain.SentimentResult
	pingErr   error
	getErr    error
	upsertErr error
	upserts   int
	lastList  domain.AnalysisFilter
	stats     domain.AnalysisStats
}

func newFakeRepo(rows ...domain.SentimentResult) *fakeRepo {
	f := &fakeRepo{rows: map[string]domain.SentimentResult{}}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeRepo) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRepo) UpsertAnalysis(ctx context.Context, r domain.SentimentResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	f.rows[r.ID] = r
	return nil
}

func (f *fakeRepo) GetAnalysis(ctx context.Context, id string) (domain.SentimentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.SentimentResult{}, f.getErr
	}
	r, ok := f.rows[id]
	if !ok {
		return domain.SentimentResult{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListAnalyses(ctx context.Context, flt domain.AnalysisFilter) ([]domain.SentimentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = flt
	var out []domain.SentimentResult
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) AggregateStats(ctx context.Context, flt domain.AnalysisFilter) (domain.AnalysisStats, error) {
	return f.stats, nil
}

// fakeCache round-trips values through JSON like the Redis adapter does.
type fakeCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// fakeAnalyzer builds a Positive result from the request unless fn overrides it.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
	fn    func(req domain.AnalysisRequest) (domain.SentimentResult, error)
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.SentimentResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req.ID)
	a.mu.Unlock()
	if a.fn != nil {
		return a.fn(req)
	}
	return resultFor(req, domain.Positive), nil
}

func (a *fakeAnalyzer) called() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func resultFor(req domain.AnalysisRequest, s domain.Sentiment) domain.SentimentResult {
	return domain.SentimentResult{
		ID:         req.ID,
		ReviewText: req.Text,
		Rating:     req.Rating,
		Sentiment:  s,
		Source:     domain.SourceFallback,
		IsGoogle:   req.IsGoogle,
	}
}

type fakeScraper struct {
	places map[string]domain.ScrapedPlace
	calls  []domain.ScrapeQuery
}

func (s *fakeScraper) ScrapePlace(ctx context.Context, q domain.ScrapeQuery) (domain.ScrapedPlace, error) {
	s.calls = append(s.calls, q)
	p, ok := s.places[q.PlaceURL]
	if !ok {
		return domain.ScrapedPlace{}, domain.ErrNotFound
	}
	return p, nil
}

// fakeDedup keeps fingerprints as review ids.
type fakeDedup struct {
	seen map[string]map[string]bool
	err  error
}

func (d *fakeDedup) FilterNew(ctx context.Context, rs []domain.ReviewRecord, placeID string) ([]domain.ReviewRecord, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.seen == nil {
		d.seen = map[string]map[string]bool{}
	}
	if d.seen[placeID] == nil {
		d.seen[placeID] = map[string]bool{}
	}
	var out []domain.ReviewRecord
	for _, r := range rs {
		if d.seen[placeID][r.ID] {
			continue
		}
		d.seen[placeID][r.ID] = true
		out = append(out, r)
	}
	return out, nil
}

func (d *fakeDedup) Reset(ctx context.Context, placeID string) error {
	delete(d.seen, placeID)
	return nil
}

func (d *fakeDedup) ResetAll(ctx context.Context) error {
	d.seen = nil
	return nil
}

func (d *fakeDedup) Count(ctx context.Context, placeID string) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	return len(d.seen[placeID]), nil
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
