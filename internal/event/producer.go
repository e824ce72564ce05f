package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/utafrali/LibraryGo/internal/domain"
	pkgkafka "github.com/utafrali/LibraryGo/pkg/kafka"
	"github.com/utafrali/LibraryGo/pkg/logger"
)

// Aggregate types.
const (
	AggregateBook   = "book"
	AggregateReview = "review"
	AggregateUser   = "user"
)

// Kafka topics for library domain events.
var (
	TopicBookCreated    = pkgkafka.Topic(AggregateBook, "created")
	TopicBookUpdated    = pkgkafka.Topic(AggregateBook, "updated")
	TopicBookDeleted    = pkgkafka.Topic(AggregateBook, "deleted")
	TopicBookCheckedOut = pkgkafka.Topic(AggregateBook, "checked_out")
	TopicBookReturned   = pkgkafka.Topic(AggregateBook, "returned")
	TopicReviewCreated  = pkgkafka.Topic(AggregateReview, "created")
	TopicUserRegistered = pkgkafka.Topic(AggregateUser, "registered")
)

// Source identifies events emitted by this service.
const Source = "library"

// BookData is the payload of book.created and book.updated.
type BookData struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	ISBN      string `json:"isbn"`
	Available bool   `json:"isAvailable"`
}

// BookDeletedData is the payload of book.deleted.
type BookDeletedData struct {
	ID int64 `json:"id"`
}

// BookCheckedOutData is the payload of book.checked_out.
type BookCheckedOutData struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	CheckedOutDate time.Time `json:"checkedOutDate"`
	ReturnDate     time.Time `json:"returnDate"`
}

// BookReturnedData is the payload of book.returned. WasAvailable is true
// when the book had not been checked out.
type BookReturnedData struct {
	ID           int64     `json:"id"`
	ReturnedAt   time.Time `json:"returnedAt"`
	WasAvailable bool      `json:"wasAvailable"`
}

// ReviewCreatedData is the payload of review.created.
type ReviewCreatedData struct {
	ID     int64 `json:"id"`
	BookID int64 `json:"bookId"`
	Rating int   `json:"rating"`
}

// UserRegisteredData is the payload of user.registered.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Producer publishes library domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a producer. Use pkgkafka.NopPublisher when Kafka is off.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))
	if username := logger.UsernameFromContext(ctx); username != "" {
		event.WithActor(username)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func bookID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func bookData(b *domain.Book) BookData {
	return BookData{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		ISBN:      b.ISBN,
		Available: b.IsAvailable,
	}
}

// PublishBookCreated publishes a book.created event.
func (p *Producer) PublishBookCreated(ctx context.Context, b *domain.Book) error {
	return p.publish(ctx, TopicBookCreated, bookID(b.ID), AggregateBook, bookData(b))
}

// PublishBookUpdated publishes a book.updated event.
func (p *Producer) PublishBookUpdated(ctx context.Context, b *domain.Book) error {
	return p.publish(ctx, TopicBookUpdated, bookID(b.ID), AggregateBook, bookData(b))
}

// PublishBookDeleted publishes a book.deleted event.
func (p *Producer) PublishBookDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, TopicBookDeleted, bookID(id), AggregateBook, BookDeletedData{ID: id})
}

// PublishBookCheckedOut publishes a book.checked_out event.
func (p *Producer) PublishBookCheckedOut(ctx context.Context, b *domain.Book) error {
	data := BookCheckedOutData{ID: b.ID, Title: b.Title}
	if b.CheckedOutDate != nil {
		data.CheckedOutDate = *b.CheckedOutDate
	}
	if b.ReturnDate != nil {
		data.ReturnDate = *b.ReturnDate
	}
	return p.publish(ctx, TopicBookCheckedOut, bookID(b.ID), AggregateBook, data)
}

// PublishBookReturned publishes a book.returned event.
func (p *Producer) PublishBookReturned(ctx context.Context, id int64, at time.Time, wasAvailable bool) error {
	return p.publish(ctx, TopicBookReturned, bookID(id), AggregateBook, BookReturnedData{
		ID:           id,
		ReturnedAt:   at,
		WasAvailable: wasAvailable,
	})
}

// PublishReviewCreated publishes a review.created event keyed by the book,
// so it is ordered with the book's other events.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, bookID(r.BookID), AggregateReview, ReviewCreatedData{
		ID:     r.ID,
		BookID: r.BookID,
		Rating: r.Rating,
	})
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, AggregateUser, UserRegisteredData{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	})
}
