// Package review fetches the schema diff of a pull request and streams a model
// review of it.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/github"
	"github.com/sevigo/schema-warden/internal/gitutil"
	"github.com/sevigo/schema-warden/internal/llm"
	"github.com/sevigo/schema-warden/internal/storage"
)

// State names a step of a review request. Transitions are logged at debug level.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateFetchingDiff State = "fetching_diff"
	StateNotFound     State = "not_found"
	StatePrompting    State = "prompting"
	StateStreaming    State = "streaming"
	StateDone         State = "done"
	StateError        State = "error"
)

// PullRequestReader lists the files changed by a pull request.
type PullRequestReader interface {
	GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]github.ChangedFile, error)
}

// Service runs schema reviews.
type Service struct {
	reader  PullRequestReader
	prompts *llm.PromptManager
	model   llm.Streamer
	store   storage.Store
	logger  *slog.Logger

	markers  []string
	provider llm.ModelProvider
	buffer   int
	timeout  time.Duration
	newID    func() string
}

// NewService creates a review Service.
func NewService(
	reader PullRequestReader,
	prompts *llm.PromptManager,
	model llm.Streamer,
	store storage.Store,
	cfg *config.Config,
	logger *slog.Logger,
) *Service {
	buffer := cfg.AI.StreamBuffer
	if buffer <= 0 {
		buffer = 1
	}
	return &Service{
		reader:   reader,
		prompts:  prompts,
		model:    model,
		store:    store,
		logger:   logger,
		markers:  cfg.Review.SchemaMarkers,
		provider: llm.ModelProvider(cfg.AI.LLMProvider),
		buffer:   buffer,
		timeout:  cfg.AI.StreamTimeout,
		newID:    uuid.NewString,
	}
}

// Review validates the request, locates the schema diff and renders the prompt.
// Validation and not-found outcomes are returned here, before any byte of the
// review is produced. The returned Stream runs the model when piped.
func (s *Service) Review(ctx context.Context, req core.ReviewRequest) (*Stream, error) {
	log := s.logger.With("pr_url", req.PRURL)
	log.Debug("review state", "state", StateIdle)

	log.Debug("review state", "state", StateValidating)
	if err := req.Validate(); err != nil {
		log.Debug("review state", "state", StateError, "error", err)
		return nil, err
	}

	log.Debug("review state", "state", StateFetchingDiff)
	diff, err := s.FetchSchemaDiff(ctx, req.PRURL)
	if err != nil {
		log.Debug("review state", "state", StateNotFound)
		return nil, err
	}

	log.Debug("review state", "state", StatePrompting, "filename", diff.Filename)
	prompt, err := s.prompts.Render(llm.SchemaReviewPrompt, s.provider, llm.SchemaReviewData{SchemaChanges: diff.Patch})
	if err != nil {
		log.Error("failed to render review prompt", "error", err)
		return nil, fmt.Errorf("%w: %w", core.ErrUpstreamCallFailed, err)
	}

	return &Stream{
		ID:      s.newID(),
		PRURL:   req.PRURL,
		Diff:    diff,
		prompt:  prompt,
		service: s,
		logger:  log,
	}, nil
}

// FetchSchemaDiff returns the patch of the first changed file whose name contains
// a schema marker. Any failure to read the pull request is logged and reported as
// ErrUpstreamNotFound, the same outcome as a pull request without schema changes.
func (s *Service) FetchSchemaDiff(ctx context.Context, prURL string) (core.SchemaDiff, error) {
	ref, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		s.logger.Warn("cannot parse pull request URL", "pr_url", prURL, "error", err)
		return core.SchemaDiff{}, fmt.Errorf("%w: %w", core.ErrUpstreamNotFound, err)
	}

	files, err := s.reader.GetChangedFiles(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		s.logger.Warn("failed to fetch pull request files", "pr", ref.String(), "endpoint", ref.FilesEndpoint(), "error", err)
		return core.SchemaDiff{}, fmt.Errorf("%w: %w", core.ErrUpstreamNotFound, err)
	}

	diff, ok := SelectSchemaFile(files, s.markers)
	if !ok {
		s.logger.Info("no schema changes in pull request", "pr", ref.String(), "files", len(files))
		return core.SchemaDiff{}, fmt.Errorf("%w: %s", core.ErrUpstreamNotFound, ref.String())
	}
	return diff, nil
}

// SelectSchemaFile picks the first file whose name contains any marker. A match
// without a patch (binary or oversized diff) counts as no match.
func SelectSchemaFile(files []github.ChangedFile, markers []string) (core.SchemaDiff, bool) {
	for _, f := range files {
		if !containsAny(f.Filename, markers) {
			continue
		}
		if f.Patch == "" {
			return core.SchemaDiff{}, false
		}
		return core.SchemaDiff{Filename: f.Filename, Patch: f.Patch}, true
	}
	return core.SchemaDiff{}, false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
