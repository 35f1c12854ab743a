package sentiment

import "fmt"

const systemPrompt = "You are an expert sentiment analyzer for customer reviews written in Indonesian and English. Always output valid JSON only."

func buildPrompt(text string, rating int) string {
	return fmt.Sprintf(`Analyze the following customer review in depth.

REVIEW: %q
RATING: %d/5

Return JSON with this shape:
{
  "sentiment": "Positive" | "Neutral" | "Negative",
  "sentiment_score": <-1.0 to 1.0>,
  "themes": [<at most 5 specific themes>],
  "analysis_reasons": [<at least 3 detailed reasons>],
  "ai_suggestions": [<at least 3 actionable recommendations>]
}

RULES:
1. Judge sentiment from the tone of the review; the rating is only a reference.
2. Sentiment score: Positive (0.3 to 1.0), Neutral (-0.3 to 0.3), Negative (-1.0 to -0.3).
3. Themes such as Product Quality, Service Quality, Price & Value, Service Speed, Cleanliness.
4. Analysis reasons explain in detail why the sentiment was chosen.
5. Suggestions must be concrete and actionable for the business.

Output ONLY valid JSON, without markdown or extra text.`, text, rating)
}
