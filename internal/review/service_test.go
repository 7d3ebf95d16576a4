package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/github"
	"github.com/sevigo/schema-warden/internal/llm"
	"github.com/sevigo/schema-warden/mocks"
)

const schemaPatch = "@@ -12,4 +12,8 @@ ActiveRecord::Schema[7.1].define(version: 2024_05_01) do\n+  create_table \"orders\", force: :cascade do |t|\n+    t.bigint \"user_id\"\n+  end"

type testDeps struct {
	gh       *mocks.MockClient
	streamer *mocks.MockStreamer
	store    *mocks.MockStore
	service  *Service
}

func newTestService(t *testing.T, buffer int) *testDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)

	cfg := &config.Config{
		AI:     config.AIConfig{LLMProvider: "ollama", StreamBuffer: buffer, StreamTimeout: 5 * time.Second},
		Review: config.ReviewConfig{SchemaMarkers: []string{"Schemafile", "schema.rb"}},
	}
	d := &testDeps{
		gh:       mocks.NewMockClient(ctrl),
		streamer: mocks.NewMockStreamer(ctrl),
		store:    mocks.NewMockStore(ctrl),
	}
	d.streamer.EXPECT().ModelName().Return("gemma3:latest").AnyTimes()
	d.service = NewService(d.gh, prompts, d.streamer, d.store, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.service.newID = func() string { return "review-1" }
	return d
}

func emitAll(chunks ...string) func(context.Context, string, func(string) error) error {
	return func(_ context.Context, _ string, emit func(string) error) error {
		for _, c := range chunks {
			if err := emit(c); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestReview_EmptyURLMakesNoCalls(t *testing.T) {
	for _, url := range []string{"", "   "} {
		d := newTestService(t, 4)
		_, err := d.service.Review(t.Context(), core.ReviewRequest{PRURL: url})
		assert.ErrorIs(t, err, core.ErrValidationFailed)
	}
}

func TestReview_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		setup func(gh *mocks.MockClient)
	}{
		{
			name: "no schema file changed",
			url:  "https://github.com/acme/shop/pull/7",
			setup: func(gh *mocks.MockClient) {
				gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "shop", 7).
					Return([]github.ChangedFile{{Filename: "app/models/user.rb", Patch: "+x"}}, nil)
			},
		},
		{
			name: "schema file without patch",
			url:  "https://github.com/acme/shop/pull/7",
			setup: func(gh *mocks.MockClient) {
				gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "shop", 7).
					Return([]github.ChangedFile{{Filename: "db/schema.rb"}}, nil)
			},
		},
		{
			name: "files request fails",
			url:  "https://github.com/acme/shop/pull/7",
			setup: func(gh *mocks.MockClient) {
				gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "shop", 7).
					Return(nil, errors.New("GET https://api.github.com/repos/acme/shop/pulls/7/files: 404 Not Found"))
			},
		},
		{
			name:  "unparseable URL",
			url:   "https://example.com/not-a-pr",
			setup: func(*mocks.MockClient) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestService(t, 4)
			tt.setup(d.gh)
			// The model mock has no Stream expectation, so any model call fails the test.
			_, err := d.service.Review(t.Context(), core.ReviewRequest{PRURL: tt.url})
			assert.ErrorIs(t, err, core.ErrUpstreamNotFound)
		})
	}
}

func TestReview_PromptContainsPatchVerbatim(t *testing.T) {
	d := newTestService(t, 4)
	d.gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "shop", 7).Return([]github.ChangedFile{
		{Filename: "README.md", Patch: "+docs"},
		{Filename: "db/schema.rb", Patch: schemaPatch},
		{Filename: "db/Schemafile", Patch: "+other"},
	}, nil)

	stream, err := d.service.Review(t.Context(), core.ReviewRequest{PRURL: "https://github.com/acme/shop/pull/7"})
	require.NoError(t, err)

	assert.Equal(t, "db/schema.rb", stream.Diff.Filename)
	assert.Equal(t, "review-1", stream.ID)
	assert.Contains(t, stream.Prompt(), "\"\"\"\n"+schemaPatch+"\n\"\"\"")
}

func TestStream_ForwardsChunksInOrder(t *testing.T) {
	d := newTestService(t, 1)
	d.gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "shop", 7).
		Return([]github.ChangedFile{{Filename: "db/Schemafile", Patch: schemaPatch}}, nil)

	chunks := []string{"## Overall", " evaluation\n", "", "Add an index on `orders.user_id`.", "\n"}
	d.streamer.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(emitAll(chunks...))

	var saved *core.Review
	d.store.EXPECT().SaveReview(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *core.Review) error {
		saved = r
		return nil
	})

	stream, err := d.service.Review(t.Context(), core.ReviewRequest{PRURL: "https://github.com/acme/shop/pull/7"})
	require.NoError(t, err)

	var got []string
	err = stream.Pipe(t.Context(), func(chunk string) error {
		// A slow reader must not lose or reorder chunks.
		time.Sleep(time.Millisecond)
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, chunks, got)
	assert.Equal(t, strings.Join(chunks, ""), stream.Content())

	require.NotNil(t, saved)
	assert.Equal(t, "review-1", saved.ID)
	assert.Equal(t, "db/Schemafile", saved.Filename)
	assert.Equal(t, "gemma3:latest", saved.Model)
	assert.Equal(t, stream.Content(), saved.Content)

	assert.ErrorIs(t, stream.Pipe(t.Context(), func(string) error { return nil }), ErrStreamConsumed)
}

func TestStream_ModelFailure(t *testing.T) {
	d := newTestService(t, 2)
	d.gh.EXPECT().GetChangedFiles(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]github.ChangedFile{{Filename: "db/Schemafile", Patch: schemaPatch}}, nil)
	d.streamer.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, emit func(string) error) error {
			if err := emit("partial"); err != nil {
				return err
			}
			return errors.New("model connection reset")
		})

	stream, err := d.service.Review(t.Context(), core.ReviewRequest{PRURL: "https://github.com/acme/shop/pull/7"})
	require.NoError(t, err)

	var got []string
	err = stream.Pipe(t.Context(), func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	assert.ErrorIs(t, err, core.ErrUpstreamCallFailed)
	assert.Equal(t, []string{"partial"}, got)
}

func TestStream_SinkFailureStopsModel(t *testing.T) {
	d := newTestService(t, 1)
	d.gh.EXPECT().GetChangedFiles(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]github.ChangedFile{{Filename: "db/Schemafile", Patch: schemaPatch}}, nil)
	d.streamer.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, emit func(string) error) error {
			for {
				if err := emit("chunk"); err != nil {
					return err
				}
			}
		})

	stream, err := d.service.Review(t.Context(), core.ReviewRequest{PRURL: "https://github.com/acme/shop/pull/7"})
	require.NoError(t, err)

	clientGone := errors.New("broken pipe")
	err = stream.Pipe(t.Context(), func(string) error { return clientGone })
	assert.ErrorIs(t, err, clientGone)
	assert.NotErrorIs(t, err, core.ErrUpstreamCallFailed)
}

func TestSelectSchemaFile(t *testing.T) {
	markers := []string{"Schemafile", "schema.rb"}
	tests := []struct {
		name  string
		files []github.ChangedFile
		want  core.SchemaDiff
		found bool
	}{
		{name: "empty", files: nil},
		{
			name:  "first match wins",
			files: []github.ChangedFile{{Filename: "db/Schemafile", Patch: "a"}, {Filename: "db/schema.rb", Patch: "b"}},
			want:  core.SchemaDiff{Filename: "db/Schemafile", Patch: "a"},
			found: true,
		},
		{
			name:  "substring match",
			files: []github.ChangedFile{{Filename: "config/Schemafile.rb", Patch: "a"}},
			want:  core.SchemaDiff{Filename: "config/Schemafile.rb", Patch: "a"},
			found: true,
		},
		{
			name:  "case sensitive",
			files: []github.ChangedFile{{Filename: "db/SCHEMA.RB", Patch: "a"}},
		},
		{
			name:  "first match without patch is not found",
			files: []github.ChangedFile{{Filename: "db/schema.rb"}, {Filename: "db/Schemafile", Patch: "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := SelectSchemaFile(tt.files, markers)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
