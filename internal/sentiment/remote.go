package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"review_sentiment/internal/domain"
)

// FailureKind classifies why the remote path could not produce a result.
type FailureKind string

const (
	KindNoClient          FailureKind = "no_client"
	KindRequestFailed     FailureKind = "request_failed"
	KindMalformedResponse FailureKind = "malformed_response"
	KindMissingField      FailureKind = "missing_field"
)

// RemoteError is attached to fallback results as their Cause.
type RemoteError struct {
	Kind FailureKind
	Err  error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *RemoteError) Unwrap() error { return e.Err }

var errNoClient = errors.New("model client not configured")

type modelReply struct {
	Sentiment       string   `json:"sentiment"`
	SentimentScore  *float64 `json:"sentiment_score"`
	Themes          []string `json:"themes"`
	AnalysisReasons []string `json:"analysis_reasons"`
	AISuggestions   []string `json:"ai_suggestions"`
}

// parseReply turns raw completion text into a result skeleton.
func parseReply(content string) (modelReply, error) {
	var out modelReply
	body := stripCodeFence(content)
	if body == "" {
		return out, &RemoteError{Kind: KindMalformedResponse, Err: errors.New("empty completion")}
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, &RemoteError{Kind: KindMalformedResponse, Err: err}
	}

	switch {
	case out.Sentiment == "":
		return out, missing("sentiment")
	case out.SentimentScore == nil:
		return out, missing("sentiment_score")
	case out.Themes == nil:
		return out, missing("themes")
	case out.AnalysisReasons == nil:
		return out, missing("analysis_reasons")
	case out.AISuggestions == nil:
		return out, missing("ai_suggestions")
	}
	if !domain.Sentiment(out.Sentiment).Valid() {
		return out, &RemoteError{Kind: KindMalformedResponse, Err: fmt.Errorf("unknown sentiment %q", out.Sentiment)}
	}
	return out, nil
}

func missing(field string) error {
	return &RemoteError{Kind: KindMissingField, Err: fmt.Errorf("missing field %q", field)}
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func capList(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
