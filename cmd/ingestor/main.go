package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_sentiment/internal/adapters/observability"
	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/app"
	"review_sentiment/internal/shared"
	mysqlrepo "review_sentiment/internal/storage/mysql"
	"review_sentiment/internal/wiring"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "ingestor")

	log.Info().
		Int("places", len(cfg.PlaceURLs)).
		Int("workers", cfg.IngestWorkers).
		Int("max_reviews", cfg.IngestMaxReviews).
		Str("dedup", cfg.DedupBackend).
		Msg("ingestor starting")

	if len(cfg.PlaceURLs) == 0 {
		log.Fatal().Msg("PLACE_URLS is empty")
	}
	scraper := wiring.Scraper(cfg)
	if scraper == nil {
		log.Fatal().Msg("APIFY_API_TOKEN is required for ingestion")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	repo := mysqlrepo.New(db)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	log.Info().Msg("db ping ok")

	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	batch := app.NewBatchService(repo, wiring.Engine(cfg), redisad.New(rdb), cfg.AnalyzeWorkers)
	svc := app.NewScrapeService(scraper, wiring.Dedup(cfg, rdb), batch)

	sem := semaphore.NewWeighted(int64(max(cfg.IngestWorkers, 1)))
	var wg sync.WaitGroup

	for _, u := range cfg.PlaceURLs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(placeURL string) {
			defer wg.Done()
			defer sem.Release(1)

			rep, err := svc.ScrapeLocation(ctx, app.ScrapeRequest{
				PlaceURL:       placeURL,
				MaxReviews:     cfg.IngestMaxReviews,
				Analyze:        !cfg.IngestSkipAnalyze,
				SkipDuplicates: true,
			})
			if err != nil {
				log.Warn().Str("place_url", placeURL).Err(err).Msg("ingest failed")
				return
			}
			log.Info().
				Str("place_url", placeURL).
				Int("new", rep.ScrapingStats.NewFound).
				Int("valid", rep.CleaningStats.Valid).
				Bool("analyzed", rep.Analyzed).
				Msg("ingest ok")
		}(u)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
