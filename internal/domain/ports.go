package domain

import "context"

type AnalysisRepository interface {
	Ping(ctx context.Context) error

	// Write path
	UpsertAnalysis(ctx context.Context, r SentimentResult) error

	// Read paths
	GetAnalysis(ctx context.Context, id string) (SentimentResult, error)
	ListAnalyses(ctx context.Context, f AnalysisFilter) ([]SentimentResult, error)
	AggregateStats(ctx context.Context, f AnalysisFilter) (AnalysisStats, error)
}

// DedupIndex remembers which scraped reviews were already seen per place.
type DedupIndex interface {
	FilterNew(ctx context.Context, reviews []ReviewRecord, placeID string) ([]ReviewRecord, error)
	Reset(ctx context.Context, placeID string) error
	ResetAll(ctx context.Context) error
	Count(ctx context.Context, placeID string) (int, error)
}

// Analyzer produces one SentimentResult per review. An error is reserved for
// failures outside the analysis strategy itself.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (SentimentResult, error)
}

// ModelClient sends one system+user prompt pair and returns the raw completion text.
type ModelClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type ScrapeClient interface {
	ScrapePlace(ctx context.Context, q ScrapeQuery) (ScrapedPlace, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
