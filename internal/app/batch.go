package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

const defaultWorkers = 8

type BatchRequest struct {
	Reviews        []domain.ReviewRecord
	Parallel       bool
	ForceReanalyze bool
	IsGoogle       bool // provenance, copied onto every result
}

// BatchService decides per review whether to serve the stored analysis or
// run the analyzer, and persists every new result.
type BatchService struct {
	repo     domain.AnalysisRepository
	analyzer domain.Analyzer
	cache    domain.Cache
	workers  int64
}

func NewBatchService(r domain.AnalysisRepository, a domain.Analyzer, c domain.Cache, workers int) *BatchService {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &BatchService{repo: r, analyzer: a, cache: c, workers: int64(workers)}
}

type pendingReview struct {
	index int // position in the request
	req   domain.AnalysisRequest
}

type taskResult struct {
	item domain.AnalysisItem
	err  error
}

// ProcessBatch runs to completion once started: cancelling ctx does not
// abort items, only the values it carries are kept.
func (s *BatchService) ProcessBatch(ctx context.Context, br BatchRequest) (domain.BatchOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	if len(br.Reviews) == 0 {
		return domain.BatchOutcome{}, domain.ErrEmptyBatch
	}
	if err := s.repo.Ping(ctx); err != nil {
		return domain.BatchOutcome{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	out := domain.BatchOutcome{
		TotalReviews: len(br.Reviews),
		Results:      make([]domain.AnalysisItem, 0, len(br.Reviews)),
		Skipped:      []domain.SkipEntry{},
		Errors:       []domain.ItemError{},
	}

	// 1) Partition: discarded / cache hit / needs analysis.
	var todo []pendingReview
	for i, r := range br.Reviews {
		text := CleanText(r.Text)
		if text == "" {
			observability.ObserveBatchItem("discarded")
			continue
		}

		if !br.ForceReanalyze {
			if hit, ok := s.lookup(ctx, r.ID, text); ok {
				out.Results = append(out.Results, domain.AnalysisItem{SentimentResult: hit, FromCache: true, SavedToDB: true})
				out.Skipped = append(out.Skipped, domain.SkipEntry{ID: r.ID, Reason: "already_analyzed"})
				observability.ObserveBatchItem("cache_hit")
				continue
			}
		}

		todo = append(todo, pendingReview{index: i, req: domain.AnalysisRequest{
			ID:           r.ID,
			Text:         text,
			Rating:       r.Rating,
			ReviewerName: r.ReviewerName,
			ReviewAt:     r.ReviewAt,
			IsGoogle:     br.IsGoogle,
		}})
	}
	out.FromCache = len(out.Skipped)

	// 2) Analyze + persist, each item isolated from its siblings.
	var results []taskResult
	if br.Parallel {
		results = s.runParallel(ctx, todo)
	} else {
		results = s.runSequential(ctx, todo)
	}

	// 3) Fan-in in request order.
	for i, tr := range results {
		if tr.err != nil {
			out.Errors = append(out.Errors, domain.ItemError{Index: todo[i].index, ID: todo[i].req.ID, Error: tr.err.Error()})
			observability.ObserveBatchItem("failed")
			continue
		}
		out.Results = append(out.Results, tr.item)
		out.NewlyAnalyzed++
		observability.ObserveBatchItem("analyzed")
	}
	out.Failed = len(out.Errors)
	out.Processed = out.FromCache + out.NewlyAnalyzed
	out.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000

	log.Info().
		Int("total", out.TotalReviews).
		Int("from_cache", out.FromCache).
		Int("analyzed", out.NewlyAnalyzed).
		Int("failed", out.Failed).
		Bool("parallel", br.Parallel).
		Msg("batch processed")
	return out, nil
}

// AnalyzeOne analyzes and persists a single review, bypassing the cache check.
func (s *BatchService) AnalyzeOne(ctx context.Context, r domain.ReviewRecord, isGoogle bool) (domain.AnalysisItem, error) {
	ctx = context.WithoutCancel(ctx)
	text := CleanText(r.Text)
	if text == "" {
		return domain.AnalysisItem{}, domain.ErrEmptyText
	}
	tr := s.runTask(ctx, domain.AnalysisRequest{
		ID:           r.ID,
		Text:         text,
		Rating:       r.Rating,
		ReviewerName: r.ReviewerName,
		ReviewAt:     r.ReviewAt,
		IsGoogle:     isGoogle,
	})
	return tr.item, tr.err
}

// lookup returns the stored analysis when it was made for exactly this text.
// Store read failures count as a miss.
func (s *BatchService) lookup(ctx context.Context, id, text string) (domain.SentimentResult, bool) {
	existing, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("review_id", id).Msg("analysis lookup failed, treating as miss")
		}
		observability.ObserveCache("analysis", "miss")
		return domain.SentimentResult{}, false
	}
	if existing.ReviewText != text {
		observability.ObserveCache("analysis", "stale")
		return domain.SentimentResult{}, false
	}
	observability.ObserveCache("analysis", "hit")
	return existing, true
}

func (s *BatchService) runSequential(ctx context.Context, todo []pendingReview) []taskResult {
	results := make([]taskResult, len(todo))
	for i, p := range todo {
		results[i] = s.runTask(ctx, p.req)
	}
	return results
}

// runParallel runs at most s.workers tasks at once; each task owns its slot.
func (s *BatchService) runParallel(ctx context.Context, todo []pendingReview) []taskResult {
	results := make([]taskResult, len(todo))
	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup

	for i, p := range todo {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(todo); j++ {
				results[j] = taskResult{err: fmt.Errorf("not started: %w", err)}
			}
			break
		}
		wg.Add(1)
		go func(slot int, req domain.AnalysisRequest) {
			defer wg.Done()
			defer sem.Release(1)
			results[slot] = s.runTask(ctx, req)
		}(i, p.req)
	}

	wg.Wait()
	return results
}

// runTask analyzes then persists one review. A panic is reported as that
// item's error.
func (s *BatchService) runTask(ctx context.Context, req domain.AnalysisRequest) (tr taskResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("review_id", req.ID).Interface("panic", rec).Msg("analysis task panicked")
			tr = taskResult{err: fmt.Errorf("analysis panicked: %v", rec)}
		}
	}()

	res, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return taskResult{err: err}
	}

	item := domain.AnalysisItem{SentimentResult: res}
	if err := s.repo.UpsertAnalysis(ctx, res); err != nil {
		log.Error().Err(err).Str("review_id", res.ID).Msg("save analysis failed")
		observability.ObserveBatchItem("save_failed")
	} else {
		item.SavedToDB = true
		s.invalidate(ctx, res.ID)
	}
	return taskResult{item: item}
}

func (s *BatchService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, analysisKey(id))
	_ = s.cache.Del(ctx, statsKey)
}
