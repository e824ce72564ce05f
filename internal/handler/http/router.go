package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/LibraryGo/docs"
	"github.com/utafrali/LibraryGo/internal/auth"
	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/service"
	"github.com/utafrali/LibraryGo/pkg/health"
	"github.com/utafrali/LibraryGo/pkg/middleware"
)

// RouterConfig holds the cross-cutting settings of the router.
type RouterConfig struct {
	ServiceName string
	CORSOrigin  string
	// AuthLimiter throttles /api/users per client IP; nil disables it.
	AuthLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all library routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	userService *service.UserService,
	validateToken middleware.TokenValidator[*auth.Session],
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigin)))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health, metrics and docs
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/", docs.ServeUI)
	r.Get("/swagger/doc.json", docs.ServeSpec)

	authenticate := middleware.Auth(validateToken)
	librarian := middleware.RequireRole(domain.RoleLibrarian)
	customer := middleware.RequireRole(domain.RoleCustomer)

	userHandler := NewUserHandler(userService, logger)
	r.Route("/api/users", func(r chi.Router) {
		if cfg.AuthLimiter != nil {
			r.Use(cfg.AuthLimiter.Handler)
		}
		r.Use(middleware.ContentTypeJSON)

		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.With(authenticate, middleware.RequestLogger(logger)).Post("/logout", userHandler.Logout)
	})

	bookHandler := NewBookHandler(catalogService, logger)
	reviewHandler := NewReviewHandler(catalogService, logger)
	r.Route("/api/books", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticate)
		r.Use(middleware.RequestLogger(logger))

		r.Get("/", bookHandler.ListBooks)
		r.Get("/featured", bookHandler.ListFeatured)
		r.With(librarian).Get("/checkedout", bookHandler.ListCheckedOut)
		r.Get("/search", bookHandler.Search)
		r.Get("/{id}", bookHandler.GetBook)

		r.With(librarian).Post("/", bookHandler.CreateBook)
		r.With(librarian).Put("/{id}", bookHandler.UpdateBook)
		r.With(librarian).Delete("/{id}", bookHandler.DeleteBook)

		r.With(customer).Post("/{id}/checkout", bookHandler.CheckOut)
		r.With(librarian).Post("/{id}/return", bookHandler.ReturnBook)
		r.With(customer).Post("/{id}/reviews", reviewHandler.CreateReview)
	})

	return r
}
