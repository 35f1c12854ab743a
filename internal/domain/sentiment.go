package domain

import "time"

type Sentiment string

const (
	Positive Sentiment = "Positive"
	Neutral  Sentiment = "Neutral"
	Negative Sentiment = "Negative"
)

// Valid reports whether s is one of the three known classes.
func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

type AnalysisSource string

const (
	SourceRemoteModel AnalysisSource = "remote_model"
	SourceFallback    AnalysisSource = "rule_based_fallback"
)

// AnalysisRequest is the input of one sentiment analysis call.
type AnalysisRequest struct {
	ID           string
	Text         string
	Rating       int
	ReviewerName *string
	ReviewAt     *time.Time
	IsGoogle     bool
}

type SentimentResult struct {
	ID               string         `json:"id"`
	ReviewText       string         `json:"review_text"`
	Rating           int            `json:"rating"`
	ReviewerName     *string        `json:"reviewer_name"`
	ReviewAt         *time.Time     `json:"review_at"`
	Sentiment        Sentiment      `json:"sentiment"`
	SentimentScore   float64        `json:"sentiment_score"`
	Themes           []string       `json:"themes"`
	AnalysisReasons  []string       `json:"analysis_reasons"`
	AISuggestions    []string       `json:"ai_suggestions"`
	ProcessingTimeMS float64        `json:"processing_time_ms"`
	Source           AnalysisSource `json:"source"`
	IsGoogle         bool           `json:"is_google"`
	Note             string         `json:"note,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	AnalyzedAt       *time.Time     `json:"analyzed_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`

	// Cause is the remote-path failure that routed this result to the fallback.
	Cause error `json:"-"`
}

// AnalysisItem is one entry of a batch outcome.
type AnalysisItem struct {
	SentimentResult
	FromCache bool `json:"from_cache"`
	SavedToDB bool `json:"saved_to_db"`
}

type SkipEntry struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type ItemError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type BatchOutcome struct {
	TotalReviews  int            `json:"total_reviews"`
	Processed     int            `json:"processed"`
	NewlyAnalyzed int            `json:"newly_analyzed"`
	FromCache     int            `json:"from_cache"`
	Failed        int            `json:"failed"`
	ElapsedMS     float64        `json:"processing_time_total_ms"`
	Results       []AnalysisItem `json:"results"`
	Skipped       []SkipEntry    `json:"skipped"`
	Errors        []ItemError    `json:"errors"`
}

// AnalysisFilter narrows list and stats queries. Zero values mean "no filter".
type AnalysisFilter struct {
	Sentiment *Sentiment
	Start     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}

type AnalysisStats struct {
	TotalReviews          int                   `json:"total_reviews"`
	PositiveCount         int                   `json:"positive_count"`
	NeutralCount          int                   `json:"neutral_count"`
	NegativeCount         int                   `json:"negative_count"`
	AverageRating         float64               `json:"average_rating"`
	AverageSentimentScore float64               `json:"average_sentiment_score"`
	Distribution          map[Sentiment]float64 `json:"sentiment_distribution"`
}

type AnalysesPage struct {
	Summary AnalysisStats     `json:"summary"`
	Items   []SentimentResult `json:"results"`
}
