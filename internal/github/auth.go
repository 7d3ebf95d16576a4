// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
)

// NewAppsClient creates a GitHub client authenticated as the App itself (JWT), which
// is only allowed to call the /app endpoints such as installation token creation.
func NewAppsClient(cfg *config.GitHubConfig, privateKey []byte) (*github.Client, error) {
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.AppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	client := github.NewClient(&http.Client{Transport: appTransport, Timeout: cfg.RequestTimeout})
	if err := setBaseURL(client, cfg.APIURL); err != nil {
		return nil, err
	}
	return client, nil
}

// InstallationTokenSource is an oauth2.TokenSource that exchanges the App JWT for an
// installation access token and caches it until it is within skew of expiring.
// Concurrent callers that find the cache stale share a single exchange.
type InstallationTokenSource struct {
	apps           *github.Client
	installationID int64
	skew           time.Duration
	logger         *slog.Logger
	now            func() time.Time

	mu    sync.RWMutex
	token *oauth2.Token
	group singleflight.Group
}

// NewInstallationTokenSource creates a token source for one installation.
func NewInstallationTokenSource(apps *github.Client, installationID int64, skew time.Duration, logger *slog.Logger) *InstallationTokenSource {
	return &InstallationTokenSource{
		apps:           apps,
		installationID: installationID,
		skew:           skew,
		logger:         logger,
		now:            time.Now,
	}
}

// Token implements oauth2.TokenSource.
func (s *InstallationTokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext returns the cached token, refreshing it first when it is missing or
// about to expire.
func (s *InstallationTokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	if tok := s.cached(); tok != nil {
		return tok, nil
	}

	v, err, shared := s.group.Do("installation-token", func() (any, error) {
		if tok := s.cached(); tok != nil {
			return tok, nil
		}
		// The exchange is shared, so one caller's cancellation must not fail the others.
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("shared in-flight installation token refresh", "installation_id", s.installationID)
	}
	return v.(*oauth2.Token), nil
}

func (s *InstallationTokenSource) cached() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil || s.token.AccessToken == "" {
		return nil
	}
	if !s.token.Expiry.IsZero() && !s.now().Add(s.skew).Before(s.token.Expiry) {
		return nil
	}
	return s.token
}

func (s *InstallationTokenSource) refresh(ctx context.Context) (*oauth2.Token, error) {
	s.logger.Info("creating GitHub installation token", "installation_id", s.installationID)

	token, _, err := s.apps.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create installation token for installation ID %d: %w", core.ErrUpstreamCallFailed, s.installationID, err)
	}
	if token.GetToken() == "" {
		return nil, fmt.Errorf("%w: received an empty installation token", core.ErrUpstreamCallFailed)
	}

	tok := &oauth2.Token{
		AccessToken: token.GetToken(),
		Expiry:      token.GetExpiresAt().Time,
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	s.logger.Info("successfully created installation token", "installation_id", s.installationID, "expires_at", tok.Expiry)
	return tok, nil
}

// NewInstallationClient creates a GitHub client that is authenticated as the configured
// App installation. The installation token is fetched lazily on the first request and
// reused until it nears expiry.
func NewInstallationClient(cfg *config.GitHubConfig, logger *slog.Logger) (Client, error) {
	if err := cfg.ValidateApp(); err != nil {
		return nil, err
	}
	privateKey, err := cfg.LoadPrivateKey()
	if err != nil {
		return nil, err
	}

	appsClient, err := NewAppsClient(cfg, privateKey)
	if err != nil {
		return nil, err
	}

	logger.Info("creating GitHub installation client", "app_id", cfg.AppID, "installation_id", cfg.InstallationID)
	ts := NewInstallationTokenSource(appsClient, cfg.InstallationID, cfg.TokenRefreshSkew, logger)

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: newRESTTransport(nil)},
		Timeout:   cfg.RequestTimeout,
	}
	return NewClientWithBaseURL(httpClient, cfg.APIURL, logger)
}
