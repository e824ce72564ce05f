package domain

import "time"

// Rating bounds and message length for reviews.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxReviewMessage = 1000
)

// Review is a star rating with an optional message left on a book.
type Review struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"bookId"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}
