package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/schema-warden/internal/core"
)

var ErrStreamConsumed = errors.New("review stream already consumed")

// Stream is a prepared review. It can be piped once.
type Stream struct {
	ID    string
	PRURL string
	Diff  core.SchemaDiff

	prompt  string
	service *Service
	logger  *slog.Logger
	started atomic.Bool
	content string
}

// Prompt returns the rendered prompt sent to the model.
func (st *Stream) Prompt() string {
	return st.prompt
}

// Pipe runs the model and passes every chunk to sink, in order, through a bounded
// buffer. A slow sink blocks the model callback. Pipe returns when the model is
// done, the sink fails, the stream timeout passes or ctx is canceled.
func (st *Stream) Pipe(ctx context.Context, sink func(chunk string) error) error {
	if !st.started.CompareAndSwap(false, true) {
		return ErrStreamConsumed
	}

	s := st.service
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	st.logger.Debug("review state", "state", StateStreaming, "model", s.model.ModelName(), "buffer", s.buffer)
	chunks := make(chan string, s.buffer)
	var sinkErr error
	var content strings.Builder

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(chunks)
		return s.model.Stream(gctx, st.prompt, func(chunk string) error {
			select {
			case chunks <- chunk:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})
	g.Go(func() error {
		for chunk := range chunks {
			if err := sink(chunk); err != nil {
				sinkErr = fmt.Errorf("writing review chunk: %w", err)
				return sinkErr
			}
			content.WriteString(chunk)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		st.logger.Error("review stream failed", "state", StateError, "review_id", st.ID, "error", err)
		if sinkErr != nil || errors.Is(ctx.Err(), context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", core.ErrUpstreamCallFailed, err)
	}

	st.content = content.String()
	st.logger.Debug("review state", "state", StateDone, "review_id", st.ID, "bytes", len(st.content))
	st.persist(ctx)
	return nil
}

// Content returns the concatenated chunks after a successful Pipe.
func (st *Stream) Content() string {
	return st.content
}

func (st *Stream) persist(ctx context.Context) {
	s := st.service
	review := &core.Review{
		ID:       st.ID,
		PRURL:    st.PRURL,
		Filename: st.Diff.Filename,
		Model:    s.model.ModelName(),
		Content:  st.content,
	}
	// The response is already written, so a failed save is only logged.
	if err := s.store.SaveReview(context.WithoutCancel(ctx), review); err != nil {
		st.logger.Error("failed to save review", "review_id", st.ID, "error", err)
	}
}
