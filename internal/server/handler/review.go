package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/review"
)

const (
	msgInvalidPRURL   = "Pull Request URL is not provided or is invalid"
	msgNoSchemaChange = "No Schemafile changes found in the PR"
	msgReviewFailed   = "An error occurred while reviewing the schema changes"
)

// Reviewer prepares a schema review stream for a pull request.
type Reviewer interface {
	Review(ctx context.Context, req core.ReviewRequest) (*review.Stream, error)
}

// ReviewHandler streams schema reviews as markdown.
type ReviewHandler struct {
	reviews Reviewer
	logger  *slog.Logger
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews Reviewer, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

type reviewRequest struct {
	// any, so that a non-string prUrl is rejected like a missing one.
	PRURL any `json:"prUrl"`
}

// Handle validates the request and streams the review. Errors found before the
// first chunk are JSON; once streaming has started a failure ends the response.
func (h *ReviewHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var body reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("could not parse review request", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidPRURL)
		return
	}
	prURL, ok := body.PRURL.(string)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidPRURL)
		return
	}

	stream, err := h.reviews.Review(r.Context(), core.ReviewRequest{PRURL: prURL})
	switch {
	case errors.Is(err, core.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, msgInvalidPRURL)
		return
	case errors.Is(err, core.ErrUpstreamNotFound):
		writeError(w, http.StatusBadRequest, msgNoSchemaChange)
		return
	case err != nil:
		h.logger.Error("failed to prepare review", "pr_url", prURL, "error", err)
		writeError(w, http.StatusInternalServerError, msgReviewFailed)
		return
	}

	rc := http.NewResponseController(w)
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Review-ID", stream.ID)
		w.WriteHeader(http.StatusOK)
	}

	err = stream.Pipe(r.Context(), func(chunk string) error {
		begin()
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	})
	if err != nil {
		if !started {
			writeError(w, http.StatusInternalServerError, msgReviewFailed)
			return
		}
		h.logger.Warn("review stream ended early", "review_id", stream.ID, "error", err)
		return
	}
	begin()
}
