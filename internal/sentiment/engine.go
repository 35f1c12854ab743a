package sentiment

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"review_sentiment/internal/adapters/observability"
	"review_sentiment/internal/domain"
)

// Engine prefers the remote model and falls back to lexicon scoring on any
// remote failure. Analyze never returns an error.
type Engine struct {
	model domain.ModelClient
	now   func() time.Time
}

func NewEngine(model domain.ModelClient) *Engine {
	return &Engine{model: model, now: time.Now}
}

// MaxNoteLen is the width of the persisted note column, in characters.
const MaxNoteLen = 512

// fallbackNote records the remote failure. Upstream errors can carry whole
// response bodies, so the note is cut to MaxNoteLen.
func fallbackNote(err error) string {
	note := "Fallback used: " + err.Error()
	if utf8.RuneCountInString(note) <= MaxNoteLen {
		return note
	}
	return string([]rune(note)[:MaxNoteLen-3]) + "..."
}

// RemoteAvailable reports whether a model client is configured.
func (e *Engine) RemoteAvailable() bool { return e.model != nil }

func (e *Engine) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.SentimentResult, error) {
	start := time.Now()

	res, err := e.analyzeRemote(ctx, req)
	if err != nil {
		var kind FailureKind = KindRequestFailed
		var re *RemoteError
		if errors.As(err, &re) {
			kind = re.Kind
		}
		if kind != KindNoClient {
			log.Warn().Err(err).Str("review_id", req.ID).Str("err_type", observability.LabelErr(errors.Unwrap(err))).Msg("remote analysis failed, using fallback")
		}
		observability.ObserveFallback(string(kind))

		res = Fallback(req)
		res.Note = fallbackNote(err)
		res.Cause = err
	}

	res.ProcessingTimeMS = round2(float64(time.Since(start).Microseconds()) / 1000)
	res.Timestamp = e.now()
	observability.ObserveAnalysis(string(res.Source), string(res.Sentiment))
	return res, nil
}

func (e *Engine) analyzeRemote(ctx context.Context, req domain.AnalysisRequest) (domain.SentimentResult, error) {
	if e.model == nil {
		return domain.SentimentResult{}, &RemoteError{Kind: KindNoClient, Err: errNoClient}
	}

	content, err := e.model.Complete(ctx, systemPrompt, buildPrompt(req.Text, req.Rating))
	if err != nil {
		return domain.SentimentResult{}, &RemoteError{Kind: KindRequestFailed, Err: err}
	}
	reply, err := parseReply(content)
	if err != nil {
		return domain.SentimentResult{}, err
	}

	return domain.SentimentResult{
		ID:              req.ID,
		ReviewText:      req.Text,
		Rating:          req.Rating,
		ReviewerName:    req.ReviewerName,
		ReviewAt:        req.ReviewAt,
		Sentiment:       domain.Sentiment(reply.Sentiment),
		SentimentScore:  round2(clamp(*reply.SentimentScore, -1, 1)),
		Themes:          capList(reply.Themes, maxThemes),
		AnalysisReasons: reply.AnalysisReasons,
		AISuggestions:   capList(reply.AISuggestions, maxSuggestions),
		Source:          domain.SourceRemoteModel,
		IsGoogle:        req.IsGoogle,
	}, nil
}
