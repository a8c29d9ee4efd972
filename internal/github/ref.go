package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidPRURL is returned for a string that is not a pull request URL.
var ErrInvalidPRURL = errors.New("invalid pull request URL")

// PRRef identifies one pull request.
type PRRef struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// FullName returns "owner/repo".
func (r PRRef) FullName() string { return r.Owner + "/" + r.Repo }

func (r PRRef) String() string { return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number) }

// URL returns the github.com web URL of the pull request.
func (r PRRef) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", r.Owner, r.Repo, r.Number)
}

// ParsePRURL parses https://github.com/{owner}/{repo}/pull/{number}. Extra
// path segments such as /files, a query or a fragment are ignored. Any host
// is accepted so GitHub Enterprise URLs work.
func ParsePRURL(raw string) (PRRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return PRRef{}, fmt.Errorf("%w: %q", ErrInvalidPRURL, raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" || parts[0] == "" || parts[1] == "" {
		return PRRef{}, fmt.Errorf("%w: %q", ErrInvalidPRURL, raw)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n <= 0 {
		return PRRef{}, fmt.Errorf("%w: bad number in %q", ErrInvalidPRURL, raw)
	}
	return PRRef{Owner: parts[0], Repo: parts[1], Number: n}, nil
}

// ParsePRArg accepts a pull request URL, "owner/repo#N", or a bare number
// resolved against the origin remote of the repository in dir.
func ParsePRArg(ctx context.Context, arg, dir string) (PRRef, error) {
	if strings.Contains(arg, "://") {
		return ParsePRURL(arg)
	}
	if repo, num, ok := strings.Cut(arg, "#"); ok {
		owner, name, ok := strings.Cut(repo, "/")
		n, err := strconv.Atoi(num)
		if !ok || owner == "" || name == "" || err != nil || n <= 0 {
			return PRRef{}, fmt.Errorf("%w: %q", ErrInvalidPRURL, arg)
		}
		return PRRef{Owner: owner, Repo: name, Number: n}, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return PRRef{}, fmt.Errorf("%w: %q", ErrInvalidPRURL, arg)
	}
	owner, repo, err := DetectRepo(ctx, dir)
	if err != nil {
		return PRRef{}, err
	}
	return PRRef{Owner: owner, Repo: repo, Number: n}, nil
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo(ctx context.Context, dir string) (owner, repo string, err error) {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
