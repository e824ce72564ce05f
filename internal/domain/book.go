package domain

import (
	"time"
)

// DefaultCheckoutPeriod is how long a checked-out book may be kept.
const DefaultCheckoutPeriod = 5 * 24 * time.Hour

// DefaultFeaturedLimit caps the featured sample.
const DefaultFeaturedLimit = 10

// Book categories.
const (
	CategoryFiction        = "Fiction"
	CategoryNonFiction     = "Non-Fiction"
	CategoryScienceFiction = "Science Fiction"
	CategoryFantasy        = "Fantasy"
	CategoryMystery        = "Mystery"
	CategoryBiography      = "Biography"
	CategoryRomance        = "Romance"
)

// Book is a catalog entry. AverageRating and ReviewCount are derived from
// the book's reviews on read and never stored.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Description     string     `json:"description"`
	CoverImage      string     `json:"coverImage"`
	Publisher       string     `json:"publisher"`
	PublicationDate time.Time  `json:"publicationDate"`
	Category        string     `json:"category"`
	ISBN            string     `json:"isbn"`
	PageCount       int        `json:"pageCount"`
	IsAvailable     bool       `json:"isAvailable"`
	CheckedOutDate  *time.Time `json:"checkedOutDate"`
	ReturnDate      *time.Time `json:"returnDate"`
	AverageRating   *float64   `json:"averageRating"`
	ReviewCount     int        `json:"reviewCount"`
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}

// BookDetail is a book together with its reviews, newest first.
type BookDetail struct {
	Book
	Reviews []Review `json:"reviews"`
}

// CheckOut marks the book as lent at now, due back after period.
func (b *Book) CheckOut(now time.Time, period time.Duration) {
	due := now.Add(period)
	b.IsAvailable = false
	b.CheckedOutDate = &now
	b.ReturnDate = &due
}

// Return marks the book as available and clears both checkout dates.
func (b *Book) Return() {
	b.IsAvailable = true
	b.CheckedOutDate = nil
	b.ReturnDate = nil
}

// Consistent reports whether availability agrees with the checkout dates:
// an unavailable book has both dates, an available one has neither.
func (b *Book) Consistent() bool {
	if b.IsAvailable {
		return b.CheckedOutDate == nil && b.ReturnDate == nil
	}
	return b.CheckedOutDate != nil && b.ReturnDate != nil
}

// Categories returns the fixed list of genres.
func Categories() []string {
	return []string{
		CategoryFiction,
		CategoryNonFiction,
		CategoryScienceFiction,
		CategoryFantasy,
		CategoryMystery,
		CategoryBiography,
		CategoryRomance,
	}
}

// IsValidCategory checks whether category is one of Categories.
func IsValidCategory(category string) bool {
	for _, c := range Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// AverageRating returns the arithmetic mean of ratings, or nil when empty.
func AverageRating(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return &avg
}
