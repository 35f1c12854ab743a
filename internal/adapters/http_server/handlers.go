// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/app"
	"review_sentiment/internal/domain"
)

const maxBodyBytes = 10 << 20

type Handlers struct {
	Batch  *app.BatchService
	Q      *app.QueryService
	Scrape *app.ScrapeService
	Jobs   *app.JobRegistry
	Dedup  domain.DedupIndex

	ModelAvailable bool
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.timeout))

			r.Get("/health", h.health)
			r.Post("/analyze", h.analyzeOne)
			r.Get("/analyses", h.listAnalyses)
			r.Get("/analyses/{id}", h.getAnalysis)
			r.Get("/statistics", h.statistics)
			r.Post("/reviews/clean", h.cleanReviews)

			r.Post("/scrape/async", h.scrapeAsync)
			r.Get("/jobs", h.listJobs)
			r.Get("/jobs/{id}", h.getJob)

			r.Get("/dedup/{placeID}", h.dedupCount)
			r.Delete("/dedup/{placeID}", h.dedupReset)
			r.Delete("/dedup", h.dedupResetAll)
		})

		// batch analysis and synchronous scrapes wait on remote calls
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.longTimeout))

			r.Post("/analyze/batch", h.analyzeBatch)
			r.Post("/scrape", h.scrape)
			r.Post("/scrape/batch", h.scrapeMany)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrEmptyBatch), errors.Is(err, domain.ErrEmptyText), errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable serves v with a weak ETag and honors If-None-Match.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func queryBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

// ---- health ----

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.Q.Ping(r.Context()) == nil
	status := "healthy"
	if !dbOK {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             status,
		"model_available":    h.ModelAvailable,
		"database_available": dbOK,
		"fallback_available": true,
		"timestamp":          time.Now().UTC(),
	})
}

// ---- analysis ----

type analyzeOneRequest struct {
	app.ReviewInput
	IsGoogle bool `json:"is_google"`
}

func (h *Handlers) analyzeOne(w http.ResponseWriter, r *http.Request) {
	var in analyzeOneRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	rv := app.MapReviewInputs([]app.ReviewInput{in.ReviewInput})[0]
	item, err := h.Batch.AnalyzeOne(r.Context(), rv, in.IsGoogle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type batchRequest struct {
	Reviews        []app.ReviewInput `json:"reviews"`
	Parallel       *bool             `json:"parallel_processing"`
	ForceReanalyze bool              `json:"force_reanalyze"`
}

type batchResponse struct {
	Success bool `json:"success"`
	domain.BatchOutcome
}

func (h *Handlers) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	isGoogle, err := queryBool(r, "is_google", false)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid is_google", err.Error())
		return
	}
	var in batchRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	parallel := true
	if in.Parallel != nil {
		parallel = *in.Parallel
	}

	out, err := h.Batch.ProcessBatch(r.Context(), app.BatchRequest{
		Reviews:        app.MapReviewInputs(in.Reviews),
		Parallel:       parallel,
		ForceReanalyze: in.ForceReanalyze,
		IsGoogle:       isGoogle,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, BatchOutcome: out})
}

func (h *Handlers) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	res, err := h.Q.GetAnalysis(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, res)
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

func (h *Handlers) listAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f domain.AnalysisFilter

	if s := q.Get("sentiment"); s != "" {
		sent := domain.Sentiment(s)
		if !sent.Valid() {
			writeProblem(w, http.StatusBadRequest, "Invalid sentiment", "sentiment must be Positive, Neutral or Negative")
			return
		}
		f.Sentiment = &sent
	}
	var err error
	if f.Start, err = parseDate(q.Get("start_date"), false); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid start_date", err.Error())
		return
	}
	if f.End, err = parseDate(q.Get("end_date"), true); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid end_date", err.Error())
		return
	}
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
			return
		}
		f.Limit = l
	}
	if offs := q.Get("offset"); offs != "" {
		o, err := strconv.Atoi(offs)
		if err != nil || o < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid offset", "offset must be a non-negative integer")
			return
		}
		f.Offset = o
	}

	page, err := h.Q.ListAnalyses(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, st)
}

func (h *Handlers) cleanReviews(w http.ResponseWriter, r *http.Request) {
	var in []app.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	writeJSON(w, http.StatusOK, app.FilterReviews(app.MapReviewInputs(in)))
}

// ---- scraping ----

func (h *Handlers) decodeScrape(w http.ResponseWriter, r *http.Request) (app.ScrapeRequest, bool) {
	req := app.ScrapeRequest{Analyze: true, SkipDuplicates: true}
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if strings.TrimSpace(req.PlaceURL) == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "place_url required")
		return req, false
	}
	return req, true
}

func (h *Handlers) scrape(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScrape(w, r)
	if !ok {
		return
	}
	rep, err := h.Scrape.ScrapeLocation(r.Context(), req)
	if err != nil {
		writeScrapeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Source failures that are not domain errors are the upstream's fault.
func writeScrapeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotConfigured) {
		writeError(w, err)
		return
	}
	log.Warn().Err(err).Msg("scrape failed")
	writeProblem(w, http.StatusBadGateway, "Scrape Failed", err.Error())
}

func (h *Handlers) scrapeMany(w http.ResponseWriter, r *http.Request) {
	req := app.MultiScrapeRequest{Analyze: true, SkipDuplicates: true}
	if !decodeJSON(w, r, &req) {
		return
	}
	reps, err := h.Scrape.ScrapeMany(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"total_locations": len(req.PlaceURLs),
		"results":         reps,
		"timestamp":       time.Now().UTC(),
	})
}

func (h *Handlers) scrapeAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScrape(w, r)
	if !ok {
		return
	}
	id := h.Scrape.StartScrape(h.Jobs, req)
	w.Header().Set("Location", "/v1/jobs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":  id,
		"status":  app.JobProcessing,
		"message": "job started; poll /v1/jobs/" + id,
	})
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.Jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": h.Jobs.Stats(),
		"jobs":  h.Jobs.List(),
	})
}

// ---- dedup index ----

func (h *Handlers) dedupCount(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")
	n, err := h.Dedup.Count(r.Context(), placeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"place_id": placeID, "cached_reviews": n})
}

func (h *Handlers) dedupReset(w http.ResponseWriter, r *http.Request) {
	if err := h.Dedup.Reset(r.Context(), chi.URLParam(r, "placeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) dedupResetAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Dedup.ResetAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
