package mysql

// Last write wins. updated_at is left to ON UPDATE so it only moves when a
// column actually changes.
const upsertAnalysisSQL = `
INSERT INTO sentiment_analysis
  (id, review_text, rating, reviewer_name, review_at, sentiment, sentiment_score,
   themes, analysis_reasons, ai_suggestions, processing_time_ms, source, is_google, note, analyzed_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(3)))
ON DUPLICATE KEY UPDATE
  review_text        = VALUES(review_text),
  rating             = VALUES(rating),
  reviewer_name      = VALUES(reviewer_name),
  review_at          = VALUES(review_at),
  sentiment          = VALUES(sentiment),
  sentiment_score    = VALUES(sentiment_score),
  themes             = VALUES(themes),
  analysis_reasons   = VALUES(analysis_reasons),
  ai_suggestions     = VALUES(ai_suggestions),
  processing_time_ms = VALUES(processing_time_ms),
  source             = VALUES(source),
  is_google          = VALUES(is_google),
  note               = VALUES(note),
  analyzed_at        = VALUES(analyzed_at)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const analysisColumns = `
  id, review_text, rating, reviewer_name, review_at, sentiment, sentiment_score,
  themes, analysis_reasons, ai_suggestions, processing_time_ms, source, is_google,
  note, analyzed_at, updated_at`

const getAnalysisSQL = `SELECT` + analysisColumns + `
FROM sentiment_analysis
WHERE id = ?`

const listAnalysesPrefix = `SELECT` + analysisColumns + `
FROM sentiment_analysis
WHERE 1=1`

const listAnalysesSuffix = `
ORDER BY analyzed_at DESC, id DESC
LIMIT ? OFFSET ?`

const statsPrefix = `
SELECT
  COUNT(*),
  COALESCE(SUM(CASE WHEN sentiment = 'Positive' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN sentiment = 'Neutral'  THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN sentiment = 'Negative' THEN 1 ELSE 0 END), 0),
  COALESCE(AVG(rating), 0),
  COALESCE(AVG(sentiment_score), 0)
FROM sentiment_analysis
WHERE 1=1`
