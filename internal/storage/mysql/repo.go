package mysql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"time"

	"review_sentiment/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(v []string) any {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Migrate applies the embedded schema files in name order. Every file is
// idempotent.
func (r *Repo) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, n := range names {
		b, err := migrations.ReadFile(n)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", n, err)
		}
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) UpsertAnalysis(ctx context.Context, a domain.SentimentResult) error {
	var analyzedAt any
	if !a.Timestamp.IsZero() {
		analyzedAt = a.Timestamp.UTC()
	}
	var note any
	if a.Note != "" {
		note = a.Note
	}
	_, err := r.db.ExecContext(ctx, upsertAnalysisSQL,
		a.ID,
		a.ReviewText,
		a.Rating,
		valStr(a.ReviewerName),
		valTime(a.ReviewAt),
		string(a.Sentiment),
		a.SentimentScore,
		valJSON(a.Themes),
		valJSON(a.AnalysisReasons),
		valJSON(a.AISuggestions),
		a.ProcessingTimeMS,
		string(a.Source),
		a.IsGoogle,
		note,
		analyzedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", a.ID, err)
	}
	return nil
}

func (r *Repo) GetAnalysis(ctx context.Context, id string) (domain.SentimentResult, error) {
	row := r.db.QueryRowContext(ctx, getAnalysisSQL, id)
	res, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SentimentResult{}, domain.ErrNotFound
		}
		return domain.SentimentResult{}, err
	}
	return res, nil
}

// whereClause appends the filter predicates shared by list and stats.
func whereClause(f domain.AnalysisFilter) (string, []any) {
	var q string
	var args []any
	if f.Sentiment != nil {
		q += " AND sentiment = ?"
		args = append(args, string(*f.Sentiment))
	}
	if f.Start != nil {
		q += " AND analyzed_at >= ?"
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		q += " AND analyzed_at <= ?"
		args = append(args, f.End.UTC())
	}
	return q, args
}

func (r *Repo) ListAnalyses(ctx context.Context, f domain.AnalysisFilter) ([]domain.SentimentResult, error) {
	where, args := whereClause(f)
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, max(f.Offset, 0))

	rows, err := r.db.QueryContext(ctx, listAnalysesPrefix+where+listAnalysesSuffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SentimentResult
	for rows.Next() {
		res, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) AggregateStats(ctx context.Context, f domain.AnalysisFilter) (domain.AnalysisStats, error) {
	where, args := whereClause(f)
	var st domain.AnalysisStats
	var avgRating, avgScore float64
	if err := r.db.QueryRowContext(ctx, statsPrefix+where, args...).Scan(
		&st.TotalReviews,
		&st.PositiveCount,
		&st.NeutralCount,
		&st.NegativeCount,
		&avgRating,
		&avgScore,
	); err != nil {
		return domain.AnalysisStats{}, err
	}
	st.AverageRating = round(avgRating, 2)
	st.AverageSentimentScore = round(avgScore, 2)

	total := float64(max(st.TotalReviews, 1))
	st.Distribution = map[domain.Sentiment]float64{
		domain.Positive: round(float64(st.PositiveCount)/total*100, 1),
		domain.Neutral:  round(float64(st.NeutralCount)/total*100, 1),
		domain.Negative: round(float64(st.NegativeCount)/total*100, 1),
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (domain.SentimentResult, error) {
	var (
		res                       domain.SentimentResult
		reviewer, source, note    sql.NullString
		reviewAt, updatedAt       sql.NullTime
		analyzedAt                time.Time
		themes, reasons, suggests []byte
		procMS                    sql.NullFloat64
		sentiment                 string
	)
	if err := s.Scan(
		&res.ID,
		&res.ReviewText,
		&res.Rating,
		&reviewer,
		&reviewAt,
		&sentiment,
		&res.SentimentScore,
		&themes, &reasons, &suggests,
		&procMS,
		&source,
		&res.IsGoogle,
		&note,
		&analyzedAt,
		&updatedAt,
	); err != nil {
		return domain.SentimentResult{}, err
	}

	res.Sentiment = domain.Sentiment(sentiment)
	if reviewer.Valid {
		s := reviewer.String
		res.ReviewerName = &s
	}
	if reviewAt.Valid {
		t := reviewAt.Time.UTC()
		res.ReviewAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		res.UpdatedAt = &t
	}
	res.ProcessingTimeMS = procMS.Float64
	res.Source = domain.AnalysisSource(source.String)
	res.Note = note.String
	at := analyzedAt.UTC()
	res.AnalyzedAt = &at
	res.Timestamp = at

	for _, c := range []struct {
		name string
		raw  []byte
		dst  *[]string
	}{
		{"themes", themes, &res.Themes},
		{"analysis_reasons", reasons, &res.AnalysisReasons},
		{"ai_suggestions", suggests, &res.AISuggestions},
	} {
		if err := decodeList(c.raw, c.dst); err != nil {
			return domain.SentimentResult{}, fmt.Errorf("decode %s of %s: %w", c.name, res.ID, err)
		}
	}
	return res, nil
}

// decodeList reads a JSON array column. NULL leaves dst untouched.
func decodeList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
