package sentiment

import (
	"fmt"
	"math"
	"strings"

	"review_sentiment/internal/domain"
)

const (
	positiveThreshold = 0.2
	negativeThreshold = -0.2
	maxThemes         = 5
	maxSuggestions    = 5
)

// scores carries the intermediate values of one lexicon pass.
type scores struct {
	pos, neg float64
	final    float64
}

// polarity returns min(1, weighted hits / 5) for one keyword tier set.
func polarity(text string, kw keywordTiers) float64 {
	var sum float64
	for _, w := range kw.strong {
		if strings.Contains(text, w) {
			sum += strongWeight
		}
	}
	for _, w := range kw.medium {
		if strings.Contains(text, w) {
			sum += mediumWeight
		}
	}
	for _, w := range kw.weak {
		if strings.Contains(text, w) {
			sum += weakWeight
		}
	}
	return math.Min(1.0, sum/5)
}

func score(text string, rating int) scores {
	lower := strings.ToLower(text)
	pos := polarity(lower, positiveWords)
	neg := polarity(lower, negativeWords)

	textScore := (pos - neg) * 0.7
	ratingScore := (float64(rating) - 3) / 2 * 0.3
	return scores{pos: pos, neg: neg, final: clamp(textScore+ratingScore, -1, 1)}
}

func classify(s float64) domain.Sentiment {
	switch {
	case s > positiveThreshold:
		return domain.Positive
	case s < negativeThreshold:
		return domain.Negative
	default:
		return domain.Neutral
	}
}

func extractThemes(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, th := range themeTable {
		for _, kw := range th.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, th.name)
				break
			}
		}
		if len(out) == maxThemes {
			break
		}
	}
	if len(out) == 0 {
		return []string{defaultTheme}
	}
	return out
}

func reasons(s domain.Sentiment, sc scores, rating int, themes []string) []string {
	var out []string
	switch s {
	case domain.Positive:
		out = append(out, fmt.Sprintf("Review expresses clear appreciation (positive: %.2f)", sc.pos))
		if rating >= 4 {
			out = append(out, fmt.Sprintf("Rating %d/5 confirms customer satisfaction", rating))
		} else {
			out = append(out, fmt.Sprintf("Rating %d/5 is more reserved than the review tone", rating))
		}
		out = append(out, "Overall tone is positive and recommending")
	case domain.Negative:
		out = append(out, fmt.Sprintf("Review contains significant complaints (negative: %.2f)", sc.neg))
		if rating <= 2 {
			out = append(out, fmt.Sprintf("Rating %d/5 signals serious dissatisfaction", rating))
		} else {
			out = append(out, fmt.Sprintf("Rating %d/5 is milder than the complaints in the text", rating))
		}
		out = append(out, "Customer expresses disappointment that needs follow-up")
	default:
		out = append(out, "Review describes a standard experience")
		out = append(out, fmt.Sprintf("Rating %d/5 sits at a neutral level", rating))
		out = append(out, fmt.Sprintf("Balance between positive (%.2f) and negative (%.2f) signals", sc.pos, sc.neg))
	}
	if len(themes) > 0 && themes[0] != defaultTheme {
		out = append(out, "Topics mentioned: "+strings.Join(themes, ", "))
	}
	return out
}

func suggestions(s domain.Sentiment, themes []string) []string {
	var out []string
	switch s {
	case domain.Negative:
		out = append(out, "URGENT: follow up with the customer to resolve the issue")
		if hasTheme(themes, "Service Quality") {
			out = append(out, "Retrain and re-evaluate the service team")
		}
		if hasTheme(themes, "Service Speed") {
			out = append(out, "Optimize the workflow to reduce waiting time")
		}
		if hasTheme(themes, "Cleanliness") {
			out = append(out, "Audit cleaning routines at this location")
		}
		out = append(out, "Offer compensation to restore trust")
	case domain.Positive:
		out = append(out, "Send a thank-you message to strengthen the relationship")
		out = append(out, "Feature the review as a testimonial in marketing")
		out = append(out, "Maintain the quality that earned this feedback")
	default:
		out = append(out, "Monitor the trend to identify improvement areas")
		out = append(out, "Engage proactively to understand customer expectations")
		out = append(out, "Send a follow-up survey for more detailed feedback")
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func hasTheme(themes []string, name string) bool {
	for _, t := range themes {
		if t == name {
			return true
		}
	}
	return false
}

// Fallback scores a review offline from its text and rating. The result is
// fully determined by (text, rating); timing fields are filled by the caller.
func Fallback(req domain.AnalysisRequest) domain.SentimentResult {
	sc := score(req.Text, req.Rating)
	s := classify(sc.final)
	themes := extractThemes(req.Text)

	return domain.SentimentResult{
		ID:              req.ID,
		ReviewText:      req.Text,
		Rating:          req.Rating,
		ReviewerName:    req.ReviewerName,
		ReviewAt:        req.ReviewAt,
		Sentiment:       s,
		SentimentScore:  round2(sc.final),
		Themes:          themes,
		AnalysisReasons: reasons(s, sc, req.Rating, themes),
		AISuggestions:   suggestions(s, themes),
		Source:          domain.SourceFallback,
		IsGoogle:        req.IsGoogle,
		Note:            "Rule-based analysis",
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
