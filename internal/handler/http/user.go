package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/LibraryGo/internal/auth"
	"github.com/utafrali/LibraryGo/internal/service"
	"github.com/utafrali/LibraryGo/pkg/httputil"
	"github.com/utafrali/LibraryGo/pkg/middleware"
)

// UserHandler handles registration, login and logout.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRequest is the JSON request body for registration. Field rules
// are checked by the service so that every violation is reported together.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		UserType: req.UserType,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Logout handles POST /api/users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.PrincipalAs[*auth.Session](r.Context())
	if err := h.service.Logout(r.Context(), session); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
