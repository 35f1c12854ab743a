package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"review_sentiment/internal/domain"
)

// Fingerprint identifies a scraped review by reviewer, publish time and a
// digest of its full raw text.
func Fingerprint(r domain.ReviewRecord) string {
	sum := sha256.Sum256([]byte(r.Text))
	return r.ReviewerID + "_" + r.PublishedAt + "_" + hex.EncodeToString(sum[:])
}
