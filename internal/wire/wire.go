//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/schema-warden/internal/app"
	"github.com/sevigo/schema-warden/internal/llm"
	"github.com/sevigo/schema-warden/internal/review"
	"github.com/sevigo/schema-warden/internal/server"
	"github.com/sevigo/schema-warden/internal/server/handler"
	"github.com/sevigo/schema-warden/internal/webhook"
)

var baseSet = wire.NewSet(
	provideConfig,
	provideLogWriter,
	provideSlogLogger,
	provideStore,
)

var receiverSet = wire.NewSet(
	provideGitHubClient,
	webhook.NewReceiver,
)

var reviewSet = wire.NewSet(
	providePullRequestReader,
	provideGeneratorModel,
	provideStreamer,
	llm.NewPromptManager,
	review.NewService,
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		baseSet,
		receiverSet,
		reviewSet,
		wire.Bind(new(handler.EventReceiver), new(*webhook.Receiver)),
		wire.Bind(new(handler.Reviewer), new(*review.Service)),
		server.NewServer,
		app.NewApp,
	)
	return &app.App{}, nil, nil
}

func InitializeReviewer(ctx context.Context) (*review.Service, func(), error) {
	wire.Build(baseSet, reviewSet)
	return &review.Service{}, nil, nil
}

func InitializeReceiver() (*webhook.Receiver, func(), error) {
	wire.Build(baseSet, receiverSet)
	return &webhook.Receiver{}, nil, nil
}
