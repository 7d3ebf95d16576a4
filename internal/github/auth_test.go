package github

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/schema-warden/internal/config"
	"github.com/sevigo/schema-warden/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// tokenServer answers installation token requests with a fixed expiry and counts them.
func tokenServer(t *testing.T, expiresAt time.Time, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /app/installations/99/access_tokens", func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"token":"ghs_%d","expires_at":%q}`, n, expiresAt.UTC().Format(time.RFC3339))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &calls
}

func appsClientFor(t *testing.T, server *httptest.Server) *github.Client {
	t.Helper()
	client := github.NewClient(server.Client())
	u, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = u
	return client
}

func TestInstallationTokenSource_CachesUntilSkew(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	server, calls := tokenServer(t, expiry, 0)

	ts := NewInstallationTokenSource(appsClientFor(t, server), 99, time.Minute, discardLogger())
	now := expiry.Add(-30 * time.Minute)
	ts.now = func() time.Time { return now }

	tok, err := ts.TokenContext(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ghs_1", tok.AccessToken)
	assert.True(t, tok.Expiry.Equal(expiry))

	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "ghs_1", tok.AccessToken)
	assert.Equal(t, int32(1), calls.Load())

	// Inside the skew window the token is treated as expired.
	now = expiry.Add(-30 * time.Second)
	tok, err = ts.TokenContext(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ghs_2", tok.AccessToken)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInstallationTokenSource_ConcurrentCallersShareRefresh(t *testing.T) {
	server, calls := tokenServer(t, time.Now().Add(time.Hour), 50*time.Millisecond)
	ts := NewInstallationTokenSource(appsClientFor(t, server), 99, time.Minute, discardLogger())

	var wg sync.WaitGroup
	tokens := make([]string, 16)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := ts.TokenContext(t.Context())
			if assert.NoError(t, err) {
				tokens[i] = tok.AccessToken
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "ghs_1", tok)
	}
}

func TestInstallationTokenSource_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	ts := NewInstallationTokenSource(appsClientFor(t, server), 99, time.Minute, discardLogger())
	_, err := ts.TokenContext(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstreamCallFailed)
}

func TestNewAppsClient(t *testing.T) {
	cfg := &config.GitHubConfig{AppID: 1, APIURL: "https://ghe.example.com/api/v3"}

	client, err := NewAppsClient(cfg, testPrivateKey(t))
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", client.BaseURL.String())

	_, err = NewAppsClient(cfg, []byte("not a key"))
	assert.Error(t, err)
}

func TestNewInstallationClient_MissingConfiguration(t *testing.T) {
	_, err := NewInstallationClient(&config.GitHubConfig{AppID: 1}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfigurationMissing)
}

func TestNewInstallationClient_AuthenticatesRequests(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"token":"ghs_installation","expires_at":%q}`, time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	})
	mux.HandleFunc("GET /repos/acme/shop/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghs_installation", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"number":7,"head":{"sha":"abc123"}}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &config.GitHubConfig{
		AppID:            1,
		PrivateKey:       string(testPrivateKey(t)),
		InstallationID:   99,
		Owner:            "acme",
		Repo:             "shop",
		APIURL:           server.URL,
		RequestTimeout:   5 * time.Second,
		TokenRefreshSkew: time.Minute,
	}
	client, err := NewInstallationClient(cfg, discardLogger())
	require.NoError(t, err)

	for range 2 {
		pr, err := client.GetPullRequest(t.Context(), "acme", "shop", 7)
		require.NoError(t, err)
		assert.Equal(t, "abc123", pr.GetHead().GetSHA())
	}
	assert.Equal(t, int32(1), tokenCalls.Load())
}
