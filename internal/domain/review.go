package domain

import "time"

type ReviewRecord struct {
	ID           string     `json:"id"`
	PlaceID      string     `json:"place_id,omitempty"`
	Text         string     `json:"text"`
	Rating       int        `json:"rating"`
	ReviewerID   string     `json:"reviewer_id,omitempty"`
	ReviewerName *string    `json:"reviewer_name"`
	PublishedAt  string     `json:"published_at,omitempty"` // raw source value, used for fingerprints
	ReviewAt     *time.Time `json:"review_date,omitempty"`  // parsed PublishedAt when the format is known
	ImageRefs    []string   `json:"photos,omitempty"`
	Likes        int        `json:"likes"`
}

// HasImages reports whether the review carries any photo reference.
func (r ReviewRecord) HasImages() bool { return len(r.ImageRefs) > 0 }

type CleaningStats struct {
	Total      int `json:"total"`
	Valid      int `json:"valid"`
	NoText     int `json:"no_text"`
	OnlyImages int `json:"only_images"`
	TooShort   int `json:"too_short"`
}

// Location is the place descriptor returned alongside scraped reviews.
type Location struct {
	Name         *string        `json:"name"`
	Address      *string        `json:"address"`
	Rating       *float64       `json:"rating"`
	ReviewsCount *int64         `json:"reviews_count"`
	Category     *string        `json:"category"`
	Phone        *string        `json:"phone"`
	Website      *string        `json:"website"`
	Coords       *Coords        `json:"location,omitempty"`
	PlaceID      string         `json:"place_id"`
	Raw          map[string]any `json:"-"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ScrapeQuery is what the scrape source needs to fetch one place.
type ScrapeQuery struct {
	PlaceURL   string
	MaxReviews int
	Language   string
	SortBy     string
}

// ScrapedPlace is one location plus its raw review dictionaries.
type ScrapedPlace struct {
	Location Location
	Reviews  []map[string]any
}
