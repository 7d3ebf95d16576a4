package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/render"
	"github.com/sevigo/schema-warden/internal/storage"
)

// ReviewsHandler serves stored reviews.
type ReviewsHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewReviewsHandler creates a new stored review handler.
func NewReviewsHandler(store storage.Store, logger *slog.Logger) *ReviewsHandler {
	return &ReviewsHandler{store: store, logger: logger}
}

type reviewResponse struct {
	ID        string    `json:"id"`
	PRURL     string    `json:"pr_url"`
	Filename  string    `json:"filename"`
	Model     string    `json:"model"`
	Content   string    `json:"content"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

// Get handles GET /api/v1/reviews/{id}.
func (h *ReviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}

	rev, err := h.store.GetReview(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load review", "review_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load review")
		return
	}

	writeJSON(w, http.StatusOK, reviewResponse{
		ID:        rev.ID,
		PRURL:     rev.PRURL,
		Filename:  rev.Filename,
		Model:     rev.Model,
		Content:   rev.Content,
		HTML:      render.Markdown(rev.Content),
		CreatedAt: rev.CreatedAt,
	})
}
