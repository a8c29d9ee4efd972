package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"
)

var (
	// ErrNoToken is returned when no GitHub token is configured.
	ErrNoToken = errors.New("GITHUB_TOKEN is not set")
	// ErrNotFound is returned when the pull request does not exist or is
	// not visible to the token.
	ErrNotFound = errors.New("pull request not found")
	// ErrUnauthorized is returned for rejected credentials.
	ErrUnauthorized = errors.New("GitHub authentication failed")
)

// Client wraps the GitHub REST API calls panel needs.
type Client struct {
	gh *gh.Client
}

// NewClient creates a client authenticated with token. A non-empty
// baseURL selects a GitHub Enterprise API endpoint.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	c := gh.NewClient(httpClient)
	if baseURL != "" {
		var err error
		c, err = c.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("GitHub base URL: %w", err)
		}
	}
	return &Client{gh: c}, nil
}

// FetchDiff returns the unified diff of a pull request.
func (c *Client) FetchDiff(ctx context.Context, ref PRRef) (string, error) {
	diff, resp, err := c.gh.PullRequests.GetRaw(ctx, ref.Owner, ref.Repo, ref.Number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", classify(ref, resp, fmt.Errorf("fetching diff of %s: %w", ref, err))
	}
	return diff, nil
}

// HeadSHA returns the head commit of a pull request.
func (c *Client) HeadSHA(ctx context.Context, ref PRRef) (string, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", classify(ref, resp, fmt.Errorf("fetching %s: %w", ref, err))
	}
	return pr.GetHead().GetSHA(), nil
}

// classify attaches ErrNotFound or ErrUnauthorized to err based on the
// response status.
func classify(ref PRRef, resp *gh.Response, err error) error {
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %w", ErrNotFound, ref, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}
