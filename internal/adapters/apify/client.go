// internal/adapters/apify/client.go
package apify

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

const (
	DefaultBaseURL = "https://api.apify.com/v2"
	// Google Maps reviews scraper actor.
	DefaultActorID = "nwua9Gu5YrADL7ZDj"

	maxAttempts = 4
)

type Client struct {
	base  string
	actor string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, actor, token string, rps int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("apify token is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if actor == "" {
		actor = DefaultActorID
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		actor: actor,
		// actor runs are synchronous and slow
		hc:    &http.Client{Timeout: 5 * time.Minute},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrUnauthorized = errors.New("apify: unauthorized")
	ErrForbidden    = errors.New("apify: forbidden")
)

type runInput struct {
	StartURLs               []startURL `json:"startUrls"`
	MaxReviews              int        `json:"maxReviews"`
	Language                string     `json:"language"`
	SortBy                  string     `json:"sortBy"`
	IncludeHistogram        bool       `json:"includeHistogram"`
	IncludeOpeningHours     bool       `json:"includeOpeningHours"`
	IncludePeopleAlsoSearch bool       `json:"includePeopleAlsoSearch"`
}

type startURL struct {
	URL string `json:"url"`
}

// ScrapePlace runs the actor for one place and returns the first dataset item:
// the place descriptor plus its "reviews" array. An empty dataset is ErrNotFound.
func (c *Client) ScrapePlace(ctx context.Context, q domain.ScrapeQuery) (domain.ScrapedPlace, error) {
	in := runInput{
		StartURLs:           []startURL{{URL: q.PlaceURL}},
		MaxReviews:          q.MaxReviews,
		Language:            q.Language,
		SortBy:              q.SortBy,
		IncludeHistogram:    true,
		IncludeOpeningHours: true,
	}
	u := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s", c.base, url.PathEscape(c.actor), url.QueryEscape(c.token))

	var items []map[string]any
	if err := c.post(ctx, u, in, &items); err != nil {
		return domain.ScrapedPlace{}, err
	}
	if len(items) == 0 {
		return domain.ScrapedPlace{}, fmt.Errorf("apify: no data for %s: %w", q.PlaceURL, domain.ErrNotFound)
	}

	first := items[0]
	place := domain.ScrapedPlace{Location: placeFromItem(first)}
	if raw, ok := first["reviews"].([]any); ok {
		for _, r := range raw {
			if m, ok := r.(map[string]any); ok {
				place.Reviews = append(place.Reviews, m)
			}
		}
	}
	return place, nil
}

// placeFromItem keeps the raw item without its reviews; field mapping is the
// app layer's job.
func placeFromItem(item map[string]any) domain.Location {
	raw := make(map[string]any, len(item))
	for k, v := range item {
		if k != "reviews" {
			raw[k] = v
		}
	}
	loc := domain.Location{Raw: raw}
	if s, ok := item["placeId"].(string); ok {
		loc.PlaceID = s
	}
	return loc
}

// post performs a JSON POST with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, u string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-sentiment/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("apify", "run_sync", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("apify", "run_sync", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("apify: decode dataset: %w", err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("apify: actor %s: %w", c.actor, domain.ErrNotFound)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("apify: remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("apify: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff: 500ms doubling per attempt, plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 500 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
