package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v69/github"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/review"
)

// Published describes a posted review.
type Published struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
	// Inline is the number of findings posted as inline comments; the rest
	// were folded into the review body.
	Inline int `json:"inline"`
}

// Publish posts rev as a single COMMENT review on the pull request. Comments
// whose lines are not part of the diff go into the summary body. If GitHub
// rejects the inline comments the review is posted again as summary only.
func (c *Client) Publish(ctx context.Context, ref PRRef, rev *review.Review, d *diffctx.Context) (Published, error) {
	sha, err := c.HeadSHA(ctx, ref)
	if err != nil {
		return Published{}, err
	}

	req := BuildReviewRequest(rev, sha, d)
	posted, resp, err := c.gh.PullRequests.CreateReview(ctx, ref.Owner, ref.Repo, ref.Number, req)
	if err != nil && resp != nil && resp.StatusCode == http.StatusUnprocessableEntity && len(req.Comments) > 0 {
		req = BuildReviewRequest(rev, sha, nil)
		posted, resp, err = c.gh.PullRequests.CreateReview(ctx, ref.Owner, ref.Repo, ref.Number, req)
	}
	if err != nil {
		return Published{}, classify(ref, resp, fmt.Errorf("posting review to %s: %w", ref, err))
	}
	return Published{ID: posted.GetID(), URL: posted.GetHTMLURL(), Inline: len(req.Comments)}, nil
}

// BuildReviewRequest converts a Review into a GitHub review request. When
// d is nil every comment goes into the body.
func BuildReviewRequest(rev *review.Review, commitSHA string, d *diffctx.Context) *gh.PullRequestReviewRequest {
	var inline []*gh.DraftReviewComment
	var outside []review.InlineComment

	for _, c := range rev.Comments {
		f := d.File(c.Path)
		if f == nil || !inHunk(f, c.Lines.End) {
			outside = append(outside, c)
			continue
		}
		dc := &gh.DraftReviewComment{
			Path: gh.Ptr(c.Path),
			Line: gh.Ptr(c.Lines.End),
			Side: gh.Ptr("RIGHT"),
			Body: gh.Ptr(c.Body),
		}
		if c.Lines.Start < c.Lines.End && sameHunk(f, c.Lines.Start, c.Lines.End) {
			dc.StartLine = gh.Ptr(c.Lines.Start)
			dc.StartSide = gh.Ptr("RIGHT")
		}
		inline = append(inline, dc)
	}

	req := &gh.PullRequestReviewRequest{
		Body:     gh.Ptr(SummaryBody(rev, outside)),
		Event:    gh.Ptr("COMMENT"),
		Comments: inline,
	}
	if commitSHA != "" {
		req.CommitID = gh.Ptr(commitSHA)
	}
	return req
}

// inHunk reports whether new-file line n is visible in one of f's hunks.
func inHunk(f *diffctx.File, n int) bool {
	return hunkFor(f, n) >= 0
}

func sameHunk(f *diffctx.File, a, b int) bool {
	i := hunkFor(f, a)
	return i >= 0 && i == hunkFor(f, b)
}

func hunkFor(f *diffctx.File, n int) int {
	for i, h := range f.Hunks {
		if n >= h.NewStart && n < h.NewStart+h.NewLines {
			return i
		}
	}
	return -1
}

// SummaryBody renders the review body: counts, priority actions, run
// notes and any comments that could not be placed inline.
func SummaryBody(rev *review.Review, outside []review.InlineComment) string {
	var sb strings.Builder
	sb.WriteString("## Panel Code Review\n\n")

	if rev.Summary.Total() == 0 {
		sb.WriteString("No issues found.\n\n")
	} else {
		sb.WriteString("| Category | Critical | Major | Minor |\n|----------|----------|-------|-------|\n")
		for _, cat := range review.Categories {
			crit := rev.Summary.Count(cat, review.SeverityCritical)
			major := rev.Summary.Count(cat, review.SeverityMajor)
			minor := rev.Summary.Count(cat, review.SeverityMinor)
			if crit+major+minor == 0 {
				continue
			}
			fmt.Fprintf(&sb, "| %s | %d | %d | %d |\n", cat.Label(), crit, major, minor)
		}
		sb.WriteString("\n")
	}

	if len(rev.PriorityActions) > 0 {
		sb.WriteString("### Priority Actions\n\n")
		for i, a := range rev.PriorityActions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, a)
		}
		sb.WriteString("\n")
	}

	if len(outside) > 0 {
		sb.WriteString("### Other Findings\n\n")
		for _, c := range outside {
			fmt.Fprintf(&sb, "- `%s:%s` **%s - %s**: %s\n", c.Path, c.Lines, c.Severity.Label(), c.Category.Label(), firstLine(c.Message))
		}
		sb.WriteString("\n")
	}

	if len(rev.Notes) > 0 {
		sb.WriteString("<details><summary>Run notes</summary>\n\n")
		for _, n := range rev.Notes {
			if n.Category != "" {
				fmt.Fprintf(&sb, "- %s (%s): %s\n", n.Kind, n.Category.Label(), n.Message)
			} else {
				fmt.Fprintf(&sb, "- %s: %s\n", n.Kind, n.Message)
			}
		}
		sb.WriteString("\n</details>\n")
	}
	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
