package app

import (
	"context"
	"time"

	"review_sentiment/internal/domain"
)

const (
	statsKey        = "stats:all"
	defaultPageSize = 100
)

func analysisKey(id string) string { return "analysis:" + id }

// QueryService serves stored analyses, cache-aside over Redis.
type QueryService struct {
	repo     domain.AnalysisRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.AnalysisRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetAnalysis(ctx context.Context, id string) (domain.SentimentResult, error) {
	key := analysisKey(id)
	var res domain.SentimentResult
	if ok, _ := s.cache.Get(ctx, key, &res); ok {
		return res, nil
	}
	res, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return domain.SentimentResult{}, err
	}
	_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
	return res, nil
}

// ListAnalyses returns one page plus the summary over the whole filter.
// Pages are not cached: filters are open-ended.
func (s *QueryService) ListAnalyses(ctx context.Context, f domain.AnalysisFilter) (domain.AnalysesPage, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	items, err := s.repo.ListAnalyses(ctx, f)
	if err != nil {
		return domain.AnalysesPage{}, err
	}
	summary, err := s.repo.AggregateStats(ctx, f)
	if err != nil {
		return domain.AnalysesPage{}, err
	}
	if items == nil {
		items = []domain.SentimentResult{}
	}
	return domain.AnalysesPage{Summary: summary, Items: items}, nil
}

func (s *QueryService) Stats(ctx context.Context) (domain.AnalysisStats, error) {
	var st domain.AnalysisStats
	if ok, _ := s.cache.Get(ctx, statsKey, &st); ok {
		return st, nil
	}
	st, err := s.repo.AggregateStats(ctx, domain.AnalysisFilter{})
	if err != nil {
		return domain.AnalysisStats{}, err
	}
	_ = s.cache.Set(ctx, statsKey, st, int(s.cacheTTL.Seconds()))
	return st, nil
}

// Ping reports whether the store is reachable.
func (s *QueryService) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }
