// Package handler provides HTTP handlers for the schema-warden service.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/webhook"
)

const maxWebhookBody = 1 << 20

// EventReceiver handles one decoded change event.
type EventReceiver interface {
	Handle(ctx context.Context, event *core.ChangeEvent) (*webhook.Result, error)
}

// WebhookHandler processes change-feed webhooks.
type WebhookHandler struct {
	receiver EventReceiver
	secret   string
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler. When cfg.Webhook.Secret is set,
// requests must carry it as a bearer token.
func NewWebhookHandler(receiver EventReceiver, cfg *config.Config, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		receiver: receiver,
		secret:   cfg.Webhook.Secret,
		logger:   logger,
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Handle processes change-feed webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.logger.Warn("rejected webhook with invalid credentials", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var event core.ChangeEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&event); err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	result, err := h.receiver.Handle(r.Context(), &event)
	switch {
	case errors.Is(err, core.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("failed to handle webhook", "type", event.Type, "table", event.Table, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create pull request comment")
	case result.Action == webhook.ActionCommented:
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	default:
		writeJSON(w, http.StatusOK, messageResponse{Message: "No action required"})
	}
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
