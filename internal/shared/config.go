package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	// remote model (OpenAI-compatible)
	ModelToken    string
	ModelEndpoint string
	ModelName     string
	ModelTimeout  time.Duration

	AnalyzeWorkers int

	// scrape source
	ApifyToken   string
	ApifyBaseURL string
	ApifyActorID string
	ApifyRPS     int

	DedupBackend string // file|redis
	DedupFile    string

	// ingestor
	PlaceURLs         []string
	IngestWorkers     int
	IngestMaxReviews  int
	IngestSkipAnalyze bool
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/sentiment_db?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		ModelToken:    env("GITHUB_TOKEN", ""),
		ModelEndpoint: env("GITHUB_ENDPOINT", "https://models.github.ai/inference"),
		ModelName:     env("GITHUB_MODEL", "gpt-4o-mini"),
		ModelTimeout:  time.Duration(atoi("MODEL_TIMEOUT_SECONDS", 30)) * time.Second,

		AnalyzeWorkers: atoi("ANALYZE_CONCURRENCY", 8),

		ApifyToken:   env("APIFY_API_TOKEN", ""),
		ApifyBaseURL: env("APIFY_BASE_URL", "https://api.apify.com/v2"),
		ApifyActorID: env("APIFY_ACTOR_ID", "nwua9Gu5YrADL7ZDj"),
		ApifyRPS:     atoi("APIFY_RPS", 1),

		DedupBackend: strings.ToLower(env("DEDUP_BACKEND", "file")),
		DedupFile:    env("DEDUP_FILE", "scraped_reviews.json"),

		PlaceURLs:         splitList(os.Getenv("PLACE_URLS")),
		IngestWorkers:     atoi("INGEST_WORKERS", 2),
		IngestMaxReviews:  atoi("INGEST_MAX_REVIEWS", 50),
		IngestSkipAnalyze: os.Getenv("INGEST_SKIP_ANALYZE") == "true",
	}
	if c.ModelToken == "" {
		log.Warn().Msg("GITHUB_TOKEN is empty; analyses will use the rule-based fallback")
	}
	if c.ApifyToken == "" {
		log.Warn().Msg("APIFY_API_TOKEN is empty; scraping is disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// splitList splits a comma or newline separated list, dropping blanks.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
