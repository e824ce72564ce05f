package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/service"
	"github.com/utafrali/LibraryGo/pkg/httputil"
	"github.com/utafrali/LibraryGo/pkg/validator"
)

func init() {
	if err := validator.RegisterStringRule("category", "must be a known category", domain.IsValidCategory); err != nil {
		panic(fmt.Sprintf("register category rule: %v", err))
	}
}

// BookHandler handles HTTP requests for the book catalog.
type BookHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(svc *service.CatalogService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateBookRequest is the JSON request body for creating a book.
type CreateBookRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Author          string `json:"author" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=500"`
	CoverImage      string `json:"coverImage" validate:"max=250"`
	Publisher       string `json:"publisher" validate:"required,max=100"`
	PublicationDate Date   `json:"publicationDate" validate:"required"`
	Category        string `json:"category" validate:"required,category"`
	ISBN            string `json:"isbn" validate:"required,max=20"`
	PageCount       int    `json:"pageCount" validate:"gte=0"`
	IsAvailable     *bool  `json:"isAvailable"`
}

// UpdateBookRequest is the JSON request body for updating a book. Cover
// image and availability are not updatable.
type UpdateBookRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Author          string `json:"author" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=500"`
	Publisher       string `json:"publisher" validate:"required,max=100"`
	PublicationDate Date   `json:"publicationDate" validate:"required"`
	Category        string `json:"category" validate:"required,category"`
	ISBN            string `json:"isbn" validate:"required,max=20"`
	PageCount       int    `json:"pageCount" validate:"gte=0"`
}

// --- Handlers ---

// ListBooks handles GET /api/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, books)
}

// ListFeatured handles GET /api/books/featured
func (h *BookHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListFeatured(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, books)
}

// ListCheckedOut handles GET /api/books/checkedout
func (h *BookHandler) ListCheckedOut(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListCheckedOut(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, books)
}

// Search handles GET /api/books/search?query=
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, books)
}

// GetBook handles GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	detail, err := h.service.GetDetails(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// CreateBook handles POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	book, err := h.service.CreateBook(r.Context(), &service.CreateBookInput{
		Title:           req.Title,
		Author:          req.Author,
		Description:     req.Description,
		CoverImage:      req.CoverImage,
		Publisher:       req.Publisher,
		PublicationDate: req.PublicationDate.Time,
		Category:        req.Category,
		ISBN:            req.ISBN,
		PageCount:       req.PageCount,
		IsAvailable:     req.IsAvailable,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", bookLocation(book.ID))
	httputil.WriteJSON(w, http.StatusCreated, book)
}

// UpdateBook handles PUT /api/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateBookRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	err := h.service.UpdateBook(r.Context(), id, &service.UpdateBookInput{
		Title:           req.Title,
		Author:          req.Author,
		Description:     req.Description,
		Publisher:       req.Publisher,
		PublicationDate: req.PublicationDate.Time,
		Category:        req.Category,
		ISBN:            req.ISBN,
		PageCount:       req.PageCount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteBook handles DELETE /api/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckOut handles POST /api/books/{id}/checkout
func (h *BookHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	book, err := h.service.CheckOut(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, book)
}

// ReturnBook handles POST /api/books/{id}/return
func (h *BookHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	book, err := h.service.ReturnBook(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, book)
}

func bookLocation(id int64) string {
	return fmt.Sprintf("/api/books/%d", id)
}
