// Package wiring builds the adapters selected by configuration. Optional
// adapters come back as nil interfaces, never typed nils.
package wiring

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/adapters/apify"
	"review_sentiment/internal/adapters/llm"
	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/dedup"
	"review_sentiment/internal/domain"
	"review_sentiment/internal/sentiment"
	"review_sentiment/internal/shared"
)

// Engine returns a sentiment engine, remote-backed when a model token is set.
func Engine(cfg shared.Config) *sentiment.Engine {
	c, err := llm.New(llm.Config{
		Token:    cfg.ModelToken,
		Endpoint: cfg.ModelEndpoint,
		Model:    cfg.ModelName,
		Timeout:  cfg.ModelTimeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("model client unavailable; using fallback only")
		return sentiment.NewEngine(nil)
	}
	if c == nil {
		return sentiment.NewEngine(nil)
	}
	return sentiment.NewEngine(c)
}

// Scraper returns nil when scraping is not configured.
func Scraper(cfg shared.Config) domain.ScrapeClient {
	if cfg.ApifyToken == "" {
		return nil
	}
	c, err := apify.New(cfg.ApifyBaseURL, cfg.ApifyActorID, cfg.ApifyToken, cfg.ApifyRPS)
	if err != nil {
		log.Warn().Err(err).Msg("apify client unavailable")
		return nil
	}
	return c
}

// Dedup picks the dedup backend: a JSON file (default) or Redis sets.
func Dedup(cfg shared.Config, rdb *redis.Client) domain.DedupIndex {
	if cfg.DedupBackend == "redis" {
		return redisad.NewDedupIndex(rdb)
	}
	return dedup.NewFileIndex(cfg.DedupFile)
}
