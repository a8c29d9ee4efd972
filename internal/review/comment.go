package review

import (
	"fmt"
	"strings"
)

func newComment(f Finding) InlineComment {
	return InlineComment{
		Path:         f.FilePath,
		Lines:        f.Lines,
		Severity:     f.Severity,
		Category:     f.Category,
		Confidence:   f.Confidence,
		Title:        f.Title,
		Message:      f.Message,
		SuggestedFix: f.SuggestedFix,
		Body:         CommentBody(f),
	}
}

// CommentBody renders the markdown body posted for an inline comment. The
// producing specialist is not named.
func CommentBody(f Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s - %s** (confidence: %.0f%%)\n\n", f.Severity.Label(), f.Category.Label(), f.Confidence*100)
	if f.Title != "" {
		fmt.Fprintf(&sb, "**%s**\n\n", f.Title)
	}
	sb.WriteString(f.Message)
	if f.SuggestedFix != "" {
		fmt.Fprintf(&sb, "\n\n**Suggested Fix:**\n```\n%s\n```", f.SuggestedFix)
	}
	return sb.String()
}
