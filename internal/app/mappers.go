package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_sentiment/internal/dedup"
	"review_sentiment/internal/domain"
)

/********** alias registries (single source of truth) **********/

var reviewAliases = map[string][]string{
	"id":           {"reviewId", "review_id", "id"},
	"text":         {"text", "reviewText", "full_review", "review_text"},
	"reviewer_id":  {"reviewerId", "reviewer_id", "reviewer.id"},
	"name":         {"name", "reviewer_name", "reviewerName", "author"},
	"published_at": {"publishedAtDate", "publishAt", "review_date", "published_at"},
	"rating":       {"stars", "rating", "score"},
	"images":       {"reviewImageUrls", "photos", "images"},
	"likes":        {"likesCount", "likes"},
}

var locationAliases = map[string][]string{
	"name":     {"title", "name"},
	"address":  {"address", "street"},
	"category": {"categoryName", "category"},
	"phone":    {"phone", "phoneUnformatted"},
	"website":  {"website", "url"},
	"place_id": {"placeId", "place_id"},
}

const defaultRating = 3

// source timestamps show up in these shapes
var reviewTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (float64/int/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {url/src}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if u, ok := t["url"].(string); ok && u != "" {
					out = append(out, u)
				} else if u, ok := t["src"].(string); ok && u != "" {
					out = append(out, u)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// parseReviewTime accepts the known source layouts; anything else is nil.
func parseReviewTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range reviewTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	log.Warn().Str("value", s).Msg("unrecognized review timestamp")
	return nil
}

/********** scraped review mapper **********/

func mapScrapedReviews(placeID string, in []map[string]any) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, 0, len(in))
	for _, r := range in {
		rv := domain.ReviewRecord{
			PlaceID:      placeID,
			Text:         deref(firstNonEmptyAlias(r, reviewAliases, "text")),
			Rating:       defaultRating,
			ReviewerID:   deref(firstNonEmptyAlias(r, reviewAliases, "reviewer_id")),
			ReviewerName: firstNonEmptyAlias(r, reviewAliases, "name"),
			PublishedAt:  deref(firstNonEmptyAlias(r, reviewAliases, "published_at")),
			ImageRefs:    firstSliceStrings(r, reviewAliases["images"]...),
		}
		rv.ReviewAt = parseReviewTime(rv.PublishedAt)

		if f := getFloatFlexible(r, reviewAliases["rating"]...); f != nil {
			rv.Rating = int(math.Round(*f))
		}
		if f := getFloatFlexible(r, reviewAliases["likes"]...); f != nil {
			rv.Likes = int(*f)
		}

		// ID → prefer the source's; else a name-based uuid of place + fingerprint,
		// so a re-scrape of the same review maps to the same row.
		if s := firstNonEmptyAlias(r, reviewAliases, "id"); s != nil {
			rv.ID = *s
		} else {
			rv.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(placeID+"/"+dedup.Fingerprint(rv))).String()
		}

		out = append(out, rv)
	}
	return out
}

/********** location mapper **********/

func mapLocation(p map[string]any) domain.Location {
	loc := domain.Location{
		Name:     firstNonEmptyAlias(p, locationAliases, "name"),
		Address:  firstNonEmptyAlias(p, locationAliases, "address"),
		Rating:   getFloatFlexible(p, "totalScore", "rating"),
		Category: firstNonEmptyAlias(p, locationAliases, "category"),
		Phone:    firstNonEmptyAlias(p, locationAliases, "phone"),
		Website:  firstNonEmptyAlias(p, locationAliases, "website"),
		PlaceID:  deref(firstNonEmptyAlias(p, locationAliases, "place_id")),
		Raw:      p,
	}
	if f := getFloatFlexible(p, "reviewsCount", "reviews_count"); f != nil {
		n := int64(*f)
		loc.ReviewsCount = &n
	}
	lat := getFloatFlexible(p, "location.lat", "latitude")
	lng := getFloatFlexible(p, "location.lng", "location.lon", "longitude")
	if lat != nil && lng != nil {
		loc.Coords = &domain.Coords{Lat: *lat, Lng: *lng}
	}
	return loc
}

/********** request mapper **********/

// ReviewInput is one review as submitted to the analysis endpoints.
type ReviewInput struct {
	ID           string   `json:"id"`
	FullReview   string   `json:"full_review"`
	Text         string   `json:"text"`
	Rating       *int     `json:"rating"`
	ReviewerName *string  `json:"reviewer_name"`
	ReviewDate   string   `json:"review_date"`
	Photos       []string `json:"photos"`
}

// MapReviewInputs converts request reviews; a missing id becomes REV%03d by position.
func MapReviewInputs(in []ReviewInput) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, 0, len(in))
	for i, r := range in {
		rv := domain.ReviewRecord{
			ID:           strings.TrimSpace(r.ID),
			Text:         r.FullReview,
			Rating:       defaultRating,
			ReviewerName: r.ReviewerName,
			PublishedAt:  r.ReviewDate,
			ReviewAt:     parseReviewTime(r.ReviewDate),
			ImageRefs:    r.Photos,
		}
		if rv.Text == "" {
			rv.Text = r.Text
		}
		if rv.ID == "" {
			rv.ID = fmt.Sprintf("REV%03d", i+1)
		}
		if r.Rating != nil {
			rv.Rating = *r.Rating
		}
		out = append(out, rv)
	}
	return out
}
