package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
)

func TestGetAnalysis_CacheMissThenHit(t *testing.T) {
	repo := newFakeRepo(stored("R1", "Great service", domain.Positive))
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	got, err := q.GetAnalysis(context.Background(), "R1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.ID != "R1" || got.Sentiment != domain.Positive {
		t.Fatalf("unexpected analysis: %+v", got)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.rows["R1"] = stored("R1", "SHOULD NOT SEE THIS", domain.Negative)

	got2, err := q.GetAnalysis(context.Background(), "R1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got2.ReviewText != "Great service" {
		t.Fatalf("expected cached text, got %q", got2.ReviewText)
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	q := app.NewQueryService(newFakeRepo(), &fakeCache{}, time.Minute)
	if _, err := q.GetAnalysis(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListAnalyses_Defaults(t *testing.T) {
	repo := newFakeRepo()
	repo.stats = domain.AnalysisStats{TotalReviews: 0}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	page, err := q.ListAnalyses(context.Background(), domain.AnalysisFilter{Offset: -5})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.lastList.Limit != 100 || repo.lastList.Offset != 0 {
		t.Fatalf("filter not normalized: %+v", repo.lastList)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("want empty non-nil items, got %#v", page.Items)
	}
}

func TestStats_Cached(t *testing.T) {
	repo := newFakeRepo()
	repo.stats = domain.AnalysisStats{TotalReviews: 3, PositiveCount: 2, NegativeCount: 1}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	st, err := q.Stats(context.Background())
	if err != nil || st.TotalReviews != 3 {
		t.Fatalf("stats = %+v, err = %v", st, err)
	}

	repo.stats = domain.AnalysisStats{TotalReviews: 99}
	st2, _ := q.Stats(context.Background())
	if st2.TotalReviews != 3 || st2.PositiveCount != 2 {
		t.Fatalf("expected cached stats, got %+v", st2)
	}
}
