package webhook

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	gh "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/github"
	"github.com/sevigo/schema-warden/mocks"
)

func newReceiver(t *testing.T, dedupe bool) (*Receiver, *mocks.MockClient, *mocks.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	store := mocks.NewMockStore(ctrl)
	cfg := &config.Config{
		GitHub:  config.GitHubConfig{Owner: "acme", Repo: "shop"},
		Webhook: config.WebhookConfig{Deduplicate: dedupe},
	}
	return NewReceiver(client, store, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), client, store
}

func insertEvent() *core.ChangeEvent {
	return &core.ChangeEvent{
		Type:  core.OperationInsert,
		Table: "review_comments",
		Record: core.ChangeRecord{
			ID:         "17",
			PRNumber:   42,
			FilePath:   "db/Schemafile",
			LineNumber: 8,
			Comment:    "Missing index on `orders.user_id`",
		},
	}
}

func TestHandle_NonInsertMakesNoCalls(t *testing.T) {
	for _, op := range []core.Operation{core.OperationUpdate, core.OperationDelete, "TRUNCATE", "insert"} {
		t.Run(string(op), func(t *testing.T) {
			// No expectations: any GitHub or store call fails the test.
			receiver, _, _ := newReceiver(t, true)
			event := insertEvent()
			event.Type = op

			res, err := receiver.Handle(t.Context(), event)
			require.NoError(t, err)
			assert.Equal(t, ActionNone, res.Action)
		})
	}
}

func TestHandle_InsertPostsExactlyOneComment(t *testing.T) {
	receiver, client, _ := newReceiver(t, false)

	gomock.InOrder(
		client.EXPECT().GetPullRequest(gomock.Any(), "acme", "shop", 42).
			Return(&gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("c0ffee")}}, nil),
		client.EXPECT().CreateReviewComment(gomock.Any(), "acme", "shop", 42, github.DraftReviewComment{
			CommitID: "c0ffee",
			Path:     "db/Schemafile",
			Line:     8,
			Side:     github.SideRight,
			Body:     "Missing index on `orders.user_id`",
		}).Return(int64(555), nil).Times(1),
	)

	res, err := receiver.Handle(t.Context(), insertEvent())
	require.NoError(t, err)
	assert.Equal(t, ActionCommented, res.Action)
	assert.Equal(t, int64(555), res.CommentID)
}

func TestHandle_InvalidInsert(t *testing.T) {
	receiver, _, _ := newReceiver(t, false)
	event := insertEvent()
	event.Record.LineNumber = 0

	_, err := receiver.Handle(t.Context(), event)
	assert.ErrorIs(t, err, core.ErrValidationFailed)

	_, err = receiver.Handle(t.Context(), nil)
	assert.ErrorIs(t, err, core.ErrValidationFailed)
}

func TestHandle_UpstreamFailures(t *testing.T) {
	t.Run("revision lookup fails", func(t *testing.T) {
		receiver, client, _ := newReceiver(t, false)
		client.EXPECT().GetPullRequest(gomock.Any(), "acme", "shop", 42).Return(nil, errors.New("404 Not Found"))

		_, err := receiver.Handle(t.Context(), insertEvent())
		assert.ErrorIs(t, err, core.ErrUpstreamCallFailed)
	})

	t.Run("missing head sha", func(t *testing.T) {
		receiver, client, _ := newReceiver(t, false)
		client.EXPECT().GetPullRequest(gomock.Any(), "acme", "shop", 42).Return(&gh.PullRequest{}, nil)

		_, err := receiver.Handle(t.Context(), insertEvent())
		assert.ErrorIs(t, err, core.ErrUpstreamCallFailed)
	})

	t.Run("comment rejected", func(t *testing.T) {
		receiver, client, _ := newReceiver(t, false)
		client.EXPECT().GetPullRequest(gomock.Any(), "acme", "shop", 42).
			Return(&gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("c0ffee")}}, nil)
		client.EXPECT().CreateReviewComment(gomock.Any(), "acme", "shop", 42, gomock.Any()).
			Return(int64(0), errors.New("422 Validation Failed"))

		_, err := receiver.Handle(t.Context(), insertEvent())
		assert.ErrorIs(t, err, core.ErrUpstreamCallFailed)
	})
}

func TestHandle_Deduplication(t *testing.T) {
	t.Run("first delivery is recorded", func(t *testing.T) {
		receiver, client, store := newReceiver(t, true)
		store.EXPECT().HasDelivery(gomock.Any(), "17").Return(false, nil)
		client.EXPECT().GetPullRequest(gomock.Any(), "acme", "shop", 42).
			Return(&gh.PullRequest{Head: &gh.PullRequestBranch{SHA: gh.Ptr("c0ffee")}}, nil)
		client.EXPECT().CreateReviewComment(gomock.Any(), "acme", "shop", 42, gomock.Any()).Return(int64(9), nil)
		store.EXPECT().RecordDelivery(gomock.Any(), &core.CommentDelivery{
			EventID: "17", PRNumber: 42, FilePath: "db/Schemafile", LineNumber: 8, CommentID: 9,
		}).Return(nil)

		res, err := receiver.Handle(t.Context(), insertEvent())
		require.NoError(t, err)
		assert.Equal(t, ActionCommented, res.Action)
	})

	t.Run("redelivery is acknowledged without a comment", func(t *testing.T) {
		receiver, _, store := newReceiver(t, true)
		store.EXPECT().HasDelivery(gomock.Any(), "17").Return(true, nil)

		res, err := receiver.Handle(t.Context(), insertEvent())
		require.NoError(t, err)
		assert.Equal(t, ActionDuplicate, res.Action)
	})
}
