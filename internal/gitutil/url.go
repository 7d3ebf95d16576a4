// Package gitutil parses GitHub pull request URLs.
package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Accepts the PR page and its files/commits/checks tabs.
var prURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/(?:files|commits|checks|changes))?$`)

// PullRequestRef identifies a pull request on GitHub.
type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}

// String renders the ref as owner/repo#number.
func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// FilesEndpoint is the REST path that lists the files changed by the pull request.
func (r PullRequestRef) FilesEndpoint() string {
	return fmt.Sprintf("repos/%s/%s/pulls/%d/files", r.Owner, r.Repo, r.Number)
}

// ParsePullRequestURL parses a GitHub Pull Request URL and extracts the owner, repo, and PR number.
// Supported format: https://github.com/{owner}/{repo}/pull/{number}, optionally followed by a
// tab segment, a query string or a fragment.
func ParsePullRequestURL(url string) (PullRequestRef, error) {
	normalized := strings.TrimSpace(url)
	if i := strings.IndexAny(normalized, "?#"); i >= 0 {
		normalized = normalized[:i]
	}
	normalized = strings.TrimSuffix(normalized, "/")

	matches := prURLRegex.FindStringSubmatch(normalized)
	if len(matches) != 4 {
		return PullRequestRef{}, fmt.Errorf("invalid pull request URL format: %s", url)
	}

	number, err := strconv.Atoi(matches[3])
	if err != nil || number <= 0 {
		return PullRequestRef{}, fmt.Errorf("invalid PR number '%s'", matches[3])
	}

	return PullRequestRef{Owner: matches[1], Repo: matches[2], Number: number}, nil
}
