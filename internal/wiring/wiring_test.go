package wiring

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "review_sentiment/internal/adapters/redis"
	"review_sentiment/internal/dedup"
	"review_sentiment/internal/shared"
)

func TestEngine_WithoutToken(t *testing.T) {
	if Engine(shared.Config{}).RemoteAvailable() {
		t.Fatalf("engine without token must not report a remote model")
	}
	if !Engine(shared.Config{ModelToken: "tok"}).RemoteAvailable() {
		t.Fatalf("engine with token should report a remote model")
	}
}

func TestScraper_NilWithoutToken(t *testing.T) {
	if s := Scraper(shared.Config{}); s != nil {
		t.Fatalf("want nil scraper, got %T", s)
	}
	if s := Scraper(shared.Config{ApifyToken: "tok"}); s == nil {
		t.Fatalf("want a scraper with a token")
	}
}

func TestDedup_Backends(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redisad.NewClient(mr.Addr(), "", 0)

	if _, ok := Dedup(shared.Config{DedupBackend: "redis"}, rdb).(*redisad.DedupIndex); !ok {
		t.Fatalf("redis backend not selected")
	}
	cfg := shared.Config{DedupBackend: "file", DedupFile: filepath.Join(t.TempDir(), "seen.json")}
	if _, ok := Dedup(cfg, rdb).(*dedup.FileIndex); !ok {
		t.Fatalf("file backend not selected")
	}
}
