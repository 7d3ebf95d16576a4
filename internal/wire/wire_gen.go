// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"

	"github.com/sevigo/schema-warden/internal/app"
	"github.com/sevigo/schema-warden/internal/llm"
	"github.com/sevigo/schema-warden/internal/review"
	"github.com/sevigo/schema-warden/internal/server"
	"github.com/sevigo/schema-warden/internal/webhook"
)

// Injectors from wire.go:

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	config, err := provideConfig()
	if err != nil {
		return nil, nil, err
	}
	writer, cleanup := provideLogWriter(config)
	logger := provideSlogLogger(config, writer)
	store, cleanup2, err := provideStore(config, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	client, err := provideGitHubClient(config, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	receiver := webhook.NewReceiver(client, store, config, logger)
	pullRequestReader, err := providePullRequestReader(config, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	promptManager, err := llm.NewPromptManager()
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	model, err := provideGeneratorModel(ctx, config, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	streamer := provideStreamer(model, config, logger)
	service := review.NewService(pullRequestReader, promptManager, streamer, store, config, logger)
	serverServer := server.NewServer(config, receiver, service, store, logger)
	appApp := app.NewApp(config, serverServer, logger)
	return appApp, func() {
		cleanup2()
		cleanup()
	}, nil
}

func InitializeReviewer(ctx context.Context) (*review.Service, func(), error) {
	config, err := provideConfig()
	if err != nil {
		return nil, nil, err
	}
	writer, cleanup := provideLogWriter(config)
	logger := provideSlogLogger(config, writer)
	pullRequestReader, err := providePullRequestReader(config, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	promptManager, err := llm.NewPromptManager()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	model, err := provideGeneratorModel(ctx, config, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	streamer := provideStreamer(model, config, logger)
	store, cleanup2, err := provideStore(config, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	service := review.NewService(pullRequestReader, promptManager, streamer, store, config, logger)
	return service, func() {
		cleanup2()
		cleanup()
	}, nil
}

func InitializeReceiver() (*webhook.Receiver, func(), error) {
	config, err := provideConfig()
	if err != nil {
		return nil, nil, err
	}
	writer, cleanup := provideLogWriter(config)
	logger := provideSlogLogger(config, writer)
	client, err := provideGitHubClient(config, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	store, cleanup2, err := provideStore(config, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	receiver := webhook.NewReceiver(client, store, config, logger)
	return receiver, func() {
		cleanup2()
		cleanup()
	}, nil
}
