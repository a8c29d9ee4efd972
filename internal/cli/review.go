package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/panel/internal/config"
	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/github"
	"github.com/dshills/panel/internal/orchestrator"
	"github.com/dshills/panel/internal/output"
	"github.com/dshills/panel/internal/providers"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/service"
	"github.com/dshills/panel/internal/specialist"
)

// Shared review flags
var (
	flagPaths        string
	flagExclude      string
	flagContextLines int
	flagMaxDiffBytes int
	flagProvider     string
	flagModel        string
	flagFormat       string
	flagOut          string
	flagFailOn       string
	flagMaxFindings  int
	flagMaxActions   int
	flagRules        string
	flagSpecialists  string
	flagRunTimeout   time.Duration
	flagNoRedact     bool
	flagNoCache      bool
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff bytes sent to each specialist")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Analysis backend ("+strings.Join(providers.Names, ", ")+")")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 at or above this severity (none, minor, major, critical)")
	cmd.Flags().IntVar(&flagMaxFindings, "max-findings", 0, "Maximum findings per specialist")
	cmd.Flags().IntVar(&flagMaxActions, "max-actions", 0, "Maximum priority actions")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path")
	cmd.Flags().StringVar(&flagSpecialists, "specialists", "", "Specialists to run (comma-separated, default all)")
	cmd.Flags().DurationVar(&flagRunTimeout, "run-timeout", 0, "Overall run timeout")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Disable the specialist result cache")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	set := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	setInt := func(key string, v int) {
		if v > 0 {
			m[key] = strconv.Itoa(v)
		}
	}
	set("provider", flagProvider)
	set("model", flagModel)
	set("format", flagFormat)
	set("fail_on", flagFailOn)
	set("rules_file", flagRules)
	set("specialists", flagSpecialists)
	setInt("max_findings", flagMaxFindings)
	setInt("max_actions", flagMaxActions)
	setInt("context_lines", flagContextLines)
	setInt("max_diff_bytes", flagMaxDiffBytes)
	if flagRunTimeout > 0 {
		m["run_timeout"] = flagRunTimeout.String()
	}
	if flagNoCache {
		m["cache"] = "false"
	}
	return m
}

// reviewConfig loads the config for a review subcommand.
func reviewConfig() (config.Config, error) {
	cfg, err := loadConfig(buildOverrides())
	if err != nil {
		return cfg, err
	}
	if flagPaths != "" {
		cfg.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		cfg.Exclude = append(cfg.Exclude, splitComma(flagExclude)...)
	}
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}
	return cfg, nil
}

func splitComma(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// runReview runs req through a freshly built pipeline, writes the report
// and sets the exit code.
func runReview(ctx context.Context, cfg config.Config, req service.Request, target string) {
	// CLI runs log warnings and above so the report stays readable.
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		fail(err)
		return
	}
	defer a.Close()

	start := time.Now()
	res, err := a.svc.Review(ctx, req)
	if err != nil {
		fail(err)
		return
	}
	if res.PublishErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: review not posted: %v\n", res.PublishErr)
	}

	report := &output.Report{
		Tool:      "panel",
		Version:   version,
		Target:    target,
		Review:    res.Review,
		Files:     res.Files,
		ReviewURL: res.URL,
		Duration:  time.Since(start),
	}
	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	exitCode = findingsExitCode(res.Review, cfg.FailOn)
}

// findingsExitCode returns ExitFindings when any comment meets failOn.
func findingsExitCode(rev *review.Review, failOn string) int {
	for _, c := range rev.Comments {
		if review.MeetsThreshold(c.Severity, failOn) {
			return ExitFindings
		}
	}
	return ExitSuccess
}

// fail reports err and sets the matching exit code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = errorExitCode(err)
}

func errorExitCode(err error) int {
	var oe *orchestrator.OrchestrationError
	switch {
	case providers.IsAuthError(err),
		errors.Is(err, github.ErrUnauthorized),
		errors.Is(err, github.ErrNoToken),
		errors.Is(err, service.ErrGitHubUnavailable):
		return ExitAuthError
	case errors.As(err, &oe):
		for _, f := range oe.Failures {
			if !providers.IsAuthError(f.Err) {
				return ExitRuntimeError
			}
		}
		if len(oe.Failures) > 0 {
			return ExitAuthError
		}
	case errors.Is(err, github.ErrInvalidPRURL):
		return ExitUsageError
	}
	return ExitRuntimeError
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a pull request or local changes",
	Long:  "Run the specialist panel over a diff. Use subcommands to choose what to review.",
}

var flagPost bool

var reviewPRCmd = &cobra.Command{
	Use:   "pr <url | owner/repo#N | N>",
	Short: "Review a GitHub pull request",
	Long: "Fetch a pull request diff from GitHub, run the specialist panel and " +
		"optionally post the consolidated review. A bare number is resolved " +
		"against the origin remote of the current repository.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reviewConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ref, err := github.ParsePRArg(ctx, args[0], "")
		if err != nil {
			fail(err)
			return nil
		}
		runReview(ctx, cfg, service.Request{PR: &ref, AutoPost: flagPost}, ref.String())
		return nil
	},
}

var (
	flagStaged    bool
	flagRange     string
	flagMergeBase bool
)

var reviewLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "Review local git changes",
	Long:  "Review unstaged changes (default), staged changes (--staged) or a revision range (--range origin/main..HEAD).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reviewConfig()
		if err != nil {
			return err
		}
		opts := diffctx.GitOptions{
			Mode:         diffctx.ModeUnstaged,
			MergeBase:    flagMergeBase,
			ContextLines: cfg.ContextLines,
			Include:      cfg.Include,
			Exclude:      cfg.Exclude,
		}
		switch {
		case flagRange != "":
			opts.Mode = diffctx.ModeRange
			opts.Range = flagRange
		case flagStaged:
			opts.Mode = diffctx.ModeStaged
		}
		ctx := cmd.Context()
		d, err := diffctx.FromGit(ctx, opts)
		if err != nil {
			fail(err)
			return nil
		}
		target := string(opts.Mode)
		if meta, err := diffctx.GetRepoMeta(ctx, ""); err == nil {
			target = fmt.Sprintf("%s (%s @ %s)", target, meta.Root, meta.Branch)
		}
		if flagRange != "" {
			target = flagRange
		}
		runReview(ctx, cfg, service.Request{Diff: d}, target)
		return nil
	},
}

var reviewDiffCmd = &cobra.Command{
	Use:   "diff [file]",
	Short: "Review a unified diff from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reviewConfig()
		if err != nil {
			return err
		}
		target := "stdin"
		var r io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				fail(err)
				return nil
			}
			defer f.Close()
			r = f
			target = args[0]
		}
		raw, err := io.ReadAll(r)
		if err != nil {
			fail(fmt.Errorf("reading diff: %w", err))
			return nil
		}
		d, err := diffctx.Parse(string(raw))
		if err != nil {
			fail(err)
			return nil
		}
		if d.IsEmpty() {
			fail(specialist.ErrEmptyDiff)
			return nil
		}
		runReview(cmd.Context(), cfg, service.Request{Diff: d}, target)
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewPRCmd)
	reviewCmd.AddCommand(reviewLocalCmd)
	reviewCmd.AddCommand(reviewDiffCmd)

	for _, cmd := range []*cobra.Command{reviewPRCmd, reviewLocalCmd, reviewDiffCmd} {
		addReviewFlags(cmd)
	}

	reviewPRCmd.Flags().BoolVar(&flagPost, "post", false, "Post the review to the pull request")

	reviewLocalCmd.Flags().BoolVar(&flagStaged, "staged", false, "Review staged changes (index vs HEAD)")
	reviewLocalCmd.Flags().StringVar(&flagRange, "range", "", "Review a revision range (e.g. origin/main..HEAD)")
	reviewLocalCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use the merge base for range comparisons")
}
