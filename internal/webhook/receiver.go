// Package webhook turns change-feed insert events into inline pull request comments.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/github"
	"github.com/sevigo/schema-warden/internal/storage"
)

// Action is what the receiver did with an event.
type Action string

const (
	ActionCommented Action = "commented"
	ActionNone      Action = "none"
	ActionDuplicate Action = "duplicate"
)

// Result describes the outcome of a handled event.
type Result struct {
	Action    Action
	CommentID int64
}

// Receiver posts one inline comment per INSERT event to the configured repository.
type Receiver struct {
	github      github.Client
	store       storage.Store
	owner       string
	repo        string
	deduplicate bool
	logger      *slog.Logger
}

// NewReceiver creates a Receiver for the repository named in cfg.GitHub.
func NewReceiver(gh github.Client, store storage.Store, cfg *config.Config, logger *slog.Logger) *Receiver {
	return &Receiver{
		github:      gh,
		store:       store,
		owner:       cfg.GitHub.Owner,
		repo:        cfg.GitHub.Repo,
		deduplicate: cfg.Webhook.Deduplicate,
		logger:      logger,
	}
}

// Handle processes one change event. Non-INSERT events return ActionNone without
// any call to GitHub. An INSERT looks up the head commit of the pull request and
// creates exactly one comment anchored to the right side of the diff.
func (r *Receiver) Handle(ctx context.Context, event *core.ChangeEvent) (*Result, error) {
	req, err := core.CommentRequestFromEvent(event, r.owner, r.repo)
	if errors.Is(err, core.ErrNoAction) {
		r.logger.Info("ignoring change event", "type", event.Type, "table", event.Table)
		return &Result{Action: ActionNone}, nil
	}
	if err != nil {
		r.logger.Warn("rejecting change event", "error", err)
		return nil, err
	}

	log := r.logger.With("owner", req.Owner, "repo", req.Repo, "pr", req.PRNumber, "event_id", req.EventID)

	if r.deduplicate && req.EventID != "" {
		seen, err := r.store.HasDelivery(ctx, string(req.EventID))
		if err != nil {
			log.Warn("delivery lookup failed, posting anyway", "error", err)
		} else if seen {
			log.Info("event already delivered")
			return &Result{Action: ActionDuplicate}, nil
		}
	}

	pr, err := r.github.GetPullRequest(ctx, req.Owner, req.Repo, req.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get pull request %s/%s#%d: %w", core.ErrUpstreamCallFailed, req.Owner, req.Repo, req.PRNumber, err)
	}
	headSHA := pr.GetHead().GetSHA()
	if headSHA == "" {
		log.Error("pull request has no head commit")
		return nil, fmt.Errorf("%w: pull request %s/%s#%d has no head commit", core.ErrUpstreamCallFailed, req.Owner, req.Repo, req.PRNumber)
	}

	commentID, err := r.github.CreateReviewComment(ctx, req.Owner, req.Repo, req.PRNumber, github.DraftReviewComment{
		CommitID: headSHA,
		Path:     req.FilePath,
		Line:     req.LineNumber,
		Side:     github.SideRight,
		Body:     req.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create comment on %s/%s#%d: %w", core.ErrUpstreamCallFailed, req.Owner, req.Repo, req.PRNumber, err)
	}
	log.Info("posted pull request comment", "comment_id", commentID, "path", req.FilePath, "line", req.LineNumber, "commit", headSHA)

	if r.deduplicate && req.EventID != "" {
		err := r.store.RecordDelivery(ctx, &core.CommentDelivery{
			EventID:    string(req.EventID),
			PRNumber:   req.PRNumber,
			FilePath:   req.FilePath,
			LineNumber: req.LineNumber,
			CommentID:  commentID,
		})
		if err != nil {
			log.Error("failed to record delivery", "error", err)
		}
	}

	return &Result{Action: ActionCommented, CommentID: commentID}, nil
}
