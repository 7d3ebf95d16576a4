package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/server/handler"
	"github.com/sevigo/schema-warden/internal/storage"
)

// requestTimeout bounds every route except the review stream, which is bounded by
// ai.stream_timeout instead.
const requestTimeout = 60 * time.Second

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(
	cfg *config.Config,
	receiver handler.EventReceiver,
	reviews handler.Reviewer,
	store storage.Store,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	webhookHandler := handler.NewWebhookHandler(receiver, cfg, logger)
	reviewHandler := handler.NewReviewHandler(reviews, logger)
	reviewsHandler := handler.NewReviewsHandler(store, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// Health check endpoint
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/webhook/pr-comment", webhookHandler.Handle)
			r.Get("/reviews/{id}", reviewsHandler.Get)
		})

		// Legacy paths still called by the web front-end.
		r.Post("/api/github-pr-comment", webhookHandler.Handle)
	})

	r.Post("/api/v1/review", reviewHandler.Handle)
	r.Post("/api/review_in_pull_request", reviewHandler.Handle)

	return r
}
