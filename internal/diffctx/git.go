package diffctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Mode selects which local changes to collect.
type Mode string

const (
	ModeUnstaged Mode = "unstaged"
	ModeStaged   Mode = "staged"
	ModeRange    Mode = "range"
)

// GitOptions controls how a local diff is gathered.
type GitOptions struct {
	Mode         Mode
	Range        string
	MergeBase    bool
	ContextLines int
	Include      []string
	Exclude      []string
	// Dir is the working directory for git; empty means the process cwd.
	Dir string
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// ErrNotRepository is returned when git cannot find a repository.
var ErrNotRepository = errors.New("not a git repository")

// FromGit runs git diff in the requested mode and parses the result.
// Excluded files are removed before the context is returned.
func FromGit(ctx context.Context, opts GitOptions) (*Context, error) {
	var args []string
	ref := ""
	switch opts.Mode {
	case ModeUnstaged, "":
		args = []string{"diff"}
		opts.Mode = ModeUnstaged
	case ModeStaged:
		args = []string{"diff", "--cached"}
	case ModeRange:
		if opts.Range == "" {
			return nil, fmt.Errorf("range mode requires a revision range")
		}
		r := opts.Range
		if opts.MergeBase && strings.Contains(r, "..") && !strings.Contains(r, "...") {
			r = strings.Replace(r, "..", "...", 1)
		}
		args = []string{"diff", r}
		ref = opts.Range
	default:
		return nil, fmt.Errorf("unknown diff mode %q", opts.Mode)
	}
	args = append(args, buildDiffArgs(opts)...)

	out, err := gitOutput(ctx, opts.Dir, args...)
	if err != nil {
		return nil, fmt.Errorf("git diff (%s): %w", opts.Mode, err)
	}

	c, err := Parse(out)
	if err != nil {
		return nil, fmt.Errorf("parsing git diff: %w", err)
	}
	c = c.Filter(opts.Exclude)
	c.Source = string(opts.Mode)
	c.Ref = ref
	return c, nil
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

func buildDiffArgs(opts GitOptions) []string {
	var args []string
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	args = append(args, "--")
	for _, p := range opts.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
