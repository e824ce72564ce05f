package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/LibraryGo/internal/service"
	"github.com/utafrali/LibraryGo/pkg/httputil"
	"github.com/utafrali/LibraryGo/pkg/validator"
)

// ReviewHandler handles HTTP requests for book reviews.
type ReviewHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.CatalogService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateReviewRequest is the JSON request body for reviewing a book.
type CreateReviewRequest struct {
	Review string `json:"review" validate:"max=1000"`
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
}

// CreateReview handles POST /api/books/{id}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	review, err := h.service.AddReview(r.Context(), &service.AddReviewInput{
		BookID:  bookID,
		Message: req.Review,
		Rating:  req.Rating,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", bookLocation(bookID))
	httputil.WriteJSON(w, http.StatusCreated, review)
}
