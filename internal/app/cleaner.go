package app

import (
	"strings"
	"unicode/utf8"

	"review_sentiment/internal/domain"
)

const minReviewLen = 3

// machine-translation markers left in scraped text
var translationArtifacts = []string{"(Translated by Google)", "(Original)"}

type CleanResult struct {
	Valid []domain.ReviewRecord `json:"valid_reviews"`
	Stats domain.CleaningStats  `json:"stats"`
}

// FilterReviews splits reviews into valid (text cleaned) and rejected ones,
// counting each rejection reason. Input order is preserved.
func FilterReviews(in []domain.ReviewRecord) CleanResult {
	out := CleanResult{Stats: domain.CleaningStats{Total: len(in)}}
	for _, r := range in {
		n := utf8.RuneCountInString(strings.TrimSpace(r.Text))
		switch {
		case r.HasImages() && n < minReviewLen:
			out.Stats.OnlyImages++
		case n == 0:
			out.Stats.NoText++
		case n < minReviewLen:
			out.Stats.TooShort++
		default:
			r.Text = CleanText(r.Text)
			out.Valid = append(out.Valid, r)
			out.Stats.Valid++
		}
	}
	return out
}

// CleanText collapses whitespace and strips translation artifacts.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, a := range translationArtifacts {
		s = strings.ReplaceAll(s, a, "")
	}
	return strings.TrimSpace(s)
}
