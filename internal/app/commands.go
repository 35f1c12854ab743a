package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/domain"
)

const (
	defaultMaxReviews = 50
	defaultLanguage   = "id"
	defaultSortBy     = "newest"
	defaultPause      = 5 * time.Second
)

// Stages reported through ScrapeRequest.Progress.
const (
	StageScraping  = "scraping"
	StageDedup     = "deduplicating"
	StageCleaning  = "cleaning"
	StageAnalyzing = "analyzing"
	StageCompleted = "completed"
)

type ScrapeRequest struct {
	PlaceURL       string `json:"place_url"`
	MaxReviews     int    `json:"max_reviews"`
	Language       string `json:"language"`
	SortBy         string `json:"sort_by"`
	Analyze        bool   `json:"analyze"`
	SkipDuplicates bool   `json:"skip_duplicates"`

	// Progress, when set, is called with the stage name and a rough percentage.
	Progress func(stage string, pct int) `json:"-"`
}

type ScrapingStats struct {
	RawFetched         int `json:"raw_reviews_fetched"`
	DuplicatesFiltered int `json:"duplicates_filtered"`
	NewFound           int `json:"new_reviews_found"`
	TotalForLocation   int `json:"total_scraped_for_location"`
}

type ScrapeReport struct {
	Success       bool                  `json:"success"`
	PlaceURL      string                `json:"place_url"`
	Location      *domain.Location      `json:"location,omitempty"`
	Reviews       []domain.ReviewRecord `json:"reviews"`
	CleaningStats domain.CleaningStats  `json:"cleaning_stats"`
	ScrapingStats ScrapingStats         `json:"scraping_stats"`
	Analysis      *domain.BatchOutcome  `json:"sentiment_analysis,omitempty"`
	AnalysisError string                `json:"analysis_error,omitempty"`
	Analyzed      bool                  `json:"analyzed"`
	Error         string                `json:"error,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// ScrapeService runs scrape → dedup → clean → analyze for one place at a time.
type ScrapeService struct {
	scraper domain.ScrapeClient
	dedup   domain.DedupIndex
	batch   *BatchService
	pause   time.Duration
	now     func() time.Time
}

func NewScrapeService(sc domain.ScrapeClient, d domain.DedupIndex, b *BatchService) *ScrapeService {
	return &ScrapeService{scraper: sc, dedup: d, batch: b, pause: defaultPause, now: time.Now}
}

// WithPause sets the delay between locations in ScrapeMany.
func (s *ScrapeService) WithPause(d time.Duration) *ScrapeService {
	s.pause = d
	return s
}

func (r *ScrapeRequest) applyDefaults() {
	r.PlaceURL = strings.TrimSpace(r.PlaceURL)
	if r.MaxReviews <= 0 {
		r.MaxReviews = defaultMaxReviews
	}
	if r.Language == "" {
		r.Language = defaultLanguage
	}
	if r.SortBy == "" {
		r.SortBy = defaultSortBy
	}
}

func (r *ScrapeRequest) report(stage string, pct int) {
	if r.Progress != nil {
		r.Progress(stage, pct)
	}
}

func (s *ScrapeService) ScrapeLocation(ctx context.Context, req ScrapeRequest) (ScrapeReport, error) {
	req.applyDefaults()
	if req.PlaceURL == "" {
		return ScrapeReport{}, fmt.Errorf("%w: place_url required", domain.ErrInvalidInput)
	}
	if s.scraper == nil {
		return ScrapeReport{}, fmt.Errorf("scrape source: %w", domain.ErrNotConfigured)
	}

	// 1) Scrape. A source failure fails the whole location.
	req.report(StageScraping, 10)
	place, err := s.scraper.ScrapePlace(ctx, domain.ScrapeQuery{
		PlaceURL:   req.PlaceURL,
		MaxReviews: req.MaxReviews,
		Language:   req.Language,
		SortBy:     req.SortBy,
	})
	if err != nil {
		return ScrapeReport{}, fmt.Errorf("scrape %s: %w", req.PlaceURL, err)
	}

	loc := place.Location
	if loc.Raw != nil {
		loc = mapLocation(loc.Raw)
	}
	rep := ScrapeReport{
		Success:  true,
		PlaceURL: req.PlaceURL,
		Location: &loc,
	}
	reviews := mapScrapedReviews(loc.PlaceID, place.Reviews)
	rep.ScrapingStats.RawFetched = len(reviews)

	// 2) Dedup: best-effort; a broken index means everything counts as new.
	fresh := reviews
	if req.SkipDuplicates && loc.PlaceID != "" && s.dedup != nil {
		req.report(StageDedup, 30)
		if f, derr := s.dedup.FilterNew(ctx, reviews, loc.PlaceID); derr != nil {
			log.Warn().Err(derr).Str("place_id", loc.PlaceID).Msg("dedup failed, keeping all reviews")
		} else {
			fresh = f
		}
	}
	rep.ScrapingStats.NewFound = len(fresh)
	rep.ScrapingStats.DuplicatesFiltered = len(reviews) - len(fresh)
	rep.ScrapingStats.TotalForLocation = rep.ScrapingStats.NewFound
	if s.dedup != nil && loc.PlaceID != "" {
		if n, cerr := s.dedup.Count(ctx, loc.PlaceID); cerr == nil {
			rep.ScrapingStats.TotalForLocation = n
		}
	}

	// 3) Clean.
	req.report(StageCleaning, 50)
	cleaned := FilterReviews(fresh)
	rep.Reviews = cleaned.Valid
	rep.CleaningStats = cleaned.Stats

	// 4) Analyze. Failure here keeps the scrape result.
	if req.Analyze && len(cleaned.Valid) > 0 && s.batch != nil {
		req.report(StageAnalyzing, 70)
		out, aerr := s.batch.ProcessBatch(ctx, BatchRequest{
			Reviews:  cleaned.Valid,
			Parallel: true,
			IsGoogle: true,
		})
		if aerr != nil {
			log.Error().Err(aerr).Str("place_url", req.PlaceURL).Msg("analysis of scraped reviews failed")
			rep.AnalysisError = aerr.Error()
		} else {
			rep.Analysis = &out
			rep.Analyzed = true
		}
	}

	req.report(StageCompleted, 100)
	rep.Timestamp = s.now().UTC()

	log.Info().
		Str("place_url", req.PlaceURL).
		Str("place_id", loc.PlaceID).
		Int("raw", rep.ScrapingStats.RawFetched).
		Int("duplicates", rep.ScrapingStats.DuplicatesFiltered).
		Int("valid", rep.CleaningStats.Valid).
		Bool("analyzed", rep.Analyzed).
		Msg("location scraped")
	return rep, nil
}

type MultiScrapeRequest struct {
	PlaceURLs             []string `json:"place_urls"`
	MaxReviewsPerLocation int      `json:"max_reviews_per_location"`
	Analyze               bool     `json:"analyze"`
	SkipDuplicates        bool     `json:"skip_duplicates"`
}

// ScrapeMany scrapes each URL in order, pausing between locations. A failed
// location is reported in place and does not stop the rest.
func (s *ScrapeService) ScrapeMany(ctx context.Context, req MultiScrapeRequest) ([]ScrapeReport, error) {
	if len(req.PlaceURLs) == 0 {
		return nil, fmt.Errorf("%w: place_urls required", domain.ErrInvalidInput)
	}
	reports := make([]ScrapeReport, 0, len(req.PlaceURLs))
	for i, u := range req.PlaceURLs {
		rep, err := s.ScrapeLocation(ctx, ScrapeRequest{
			PlaceURL:       u,
			MaxReviews:     req.MaxReviewsPerLocation,
			Analyze:        req.Analyze,
			SkipDuplicates: req.SkipDuplicates,
		})
		if err != nil {
			log.Warn().Err(err).Str("place_url", u).Msg("location failed")
			rep = ScrapeReport{PlaceURL: u, Error: err.Error(), Timestamp: s.now().UTC()}
		}
		reports = append(reports, rep)

		if i < len(req.PlaceURLs)-1 && s.pause > 0 {
			select {
			case <-ctx.Done():
				return reports, ctx.Err()
			case <-time.After(s.pause):
			}
		}
	}
	return reports, nil
}
