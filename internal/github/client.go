package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v73/github"
	"github.com/gregjones/httpcache"
)

// SideRight anchors an inline comment to the new version of the file.
const SideRight = "RIGHT"

// ChangedFile holds the filename and patch data for a single file
// included in a pull request.
type ChangedFile struct {
	Filename string
	Patch    string
}

// DraftReviewComment is a single inline comment anchored to one line of a file
// at a specific commit.
type DraftReviewComment struct {
	CommitID string
	Path     string
	Line     int
	Side     string
	Body     string
}

// Client defines the pull request operations the receiver and the review
// pipeline need from GitHub.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
	CreateReviewComment(ctx context.Context, owner, repo string, number int, comment DraftReviewComment) (int64, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewClientWithBaseURL creates a Client on top of httpClient. An empty baseURL keeps
// the public api.github.com endpoint; tests point it at an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string, logger *slog.Logger) (Client, error) {
	client := github.NewClient(httpClient)
	if err := setBaseURL(client, baseURL); err != nil {
		return nil, err
	}
	return NewGitHubClient(client, logger), nil
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
// An empty token yields an unauthenticated client, which is enough to read public
// pull requests. This is useful for the CLI where an App installation is not available.
func NewPATClient(token, baseURL string, logger *slog.Logger) (Client, error) {
	client := github.NewClient(&http.Client{Transport: newRESTTransport(nil)})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if err := setBaseURL(client, baseURL); err != nil {
		return nil, err
	}
	return NewGitHubClient(client, logger), nil
}

// newRESTTransport layers ETag caching for conditional reads under the secondary
// rate limit handler, which sleeps and retries when GitHub answers 403/429.
// Cached entries are always revalidated, so a pull request's head SHA is never
// older than what GitHub reports at call time.
func newRESTTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = revalidateTransport{base: base}
	return github_ratelimit.NewClient(cacheTransport).Transport
}

// revalidateTransport replaces GitHub's "private, max-age=60" with no-cache. The
// cache then sends If-None-Match on every read and serves the stored body only
// on a 304.
type revalidateTransport struct {
	base http.RoundTripper
}

func (t revalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Header.Set("Cache-Control", "no-cache")
	return resp, nil
}

func setBaseURL(client *github.Client, baseURL string) error {
	if baseURL == "" {
		return nil
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parsing GitHub API URL: %w", err)
	}
	client.BaseURL = u
	return nil
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return pr, nil
}

// GetChangedFiles retrieves the list of files modified in a pull request.
// It handles pagination automatically to ensure all files are fetched
// from the GitHub API, which returns a maximum of 100 files per page.
func (g *gitHubClient) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error) {
	var allFiles []ChangedFile
	opts := &github.ListOptions{PerPage: 100}

	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list files for pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, file := range files {
			allFiles = append(allFiles, ChangedFile{
				Filename: file.GetFilename(),
				Patch:    file.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

// CreateReviewComment creates an inline review comment and returns its ID.
func (g *gitHubClient) CreateReviewComment(ctx context.Context, owner, repo string, number int, comment DraftReviewComment) (int64, error) {
	side := comment.Side
	if side == "" {
		side = SideRight
	}
	created, _, err := g.client.PullRequests.CreateComment(ctx, owner, repo, number, &github.PullRequestComment{
		Body:     github.Ptr(comment.Body),
		CommitID: github.Ptr(comment.CommitID),
		Path:     github.Ptr(comment.Path),
		Line:     github.Ptr(comment.Line),
		Side:     github.Ptr(side),
	})
	if err != nil {
		g.logger.Error("failed to create review comment", "owner", owner, "repo", repo, "pr", number, "path", comment.Path, "line", comment.Line, "error", err)
		return 0, err
	}
	return created.GetID(), nil
}
