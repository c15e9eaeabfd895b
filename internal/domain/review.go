package domain

import "time"

// Review is a shopper's rating of a product, as shown on its detail page.
type Review struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	UserFullName string    `json:"user_full_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is within the 1 to 5 star range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// RatingSummary is the aggregate shown above a product's reviews.
type RatingSummary struct {
	Count   int
	Average float64
	// Distribution[r] counts reviews with r stars. Index 0 is unused.
	Distribution [MaxRating + 1]int
}

// SummarizeRatings ignores reviews whose rating is out of range.
func SummarizeRatings(reviews []Review) RatingSummary {
	var (
		s   RatingSummary
		sum int
	)
	for _, r := range reviews {
		if !ValidRating(r.Rating) {
			continue
		}
		s.Count++
		sum += r.Rating
		s.Distribution[r.Rating]++
	}
	if s.Count > 0 {
		s.Average = float64(sum) / float64(s.Count)
	}
	return s
}
