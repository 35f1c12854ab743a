package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "review_sentiment/internal/adapters/http_server"
	"review_sentiment/internal/adapters/observability"
	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/app"
	"review_sentiment/internal/shared"
	mysqlrepo "review_sentiment/internal/storage/mysql"
	"review_sentiment/internal/wiring"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	repo := mysqlrepo.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	cancel()
	log.Info().Msg("database connection ok")

	// deps
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	cache := redisad.New(rdb)
	engine := wiring.Engine(cfg)
	batch := app.NewBatchService(repo, engine, cache, cfg.AnalyzeWorkers)
	dedup := wiring.Dedup(cfg, rdb)

	h := &server.Handlers{
		Batch:          batch,
		Q:              app.NewQueryService(repo, cache, cfg.CacheTTL),
		Scrape:         app.NewScrapeService(wiring.Scraper(cfg), dedup, batch),
		Jobs:           app.NewJobRegistry(),
		Dedup:          dedup,
		ModelAvailable: engine.RemoteAvailable(),
	}

	// http
	srv := server.New(15*time.Second, 10*time.Minute)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Bool("remote_model", engine.RemoteAvailable()).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
