package output

import (
	"io"
	"path"
	"strings"

	"github.com/dshills/panel/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	rev := report.Review

	ew.printf("## Panel Code Review\n\n")
	if report.Target != "" {
		ew.printf("Target: `%s`\n\n", report.Target)
	}

	total := rev.Summary.Total()
	if total == 0 {
		ew.printf("No issues found. :white_check_mark:\n\n")
	} else {
		ew.printf("| Category | Critical | Major | Minor |\n")
		ew.printf("|----------|----------|-------|-------|\n")
		for _, cat := range review.Categories {
			crit := rev.Summary.Count(cat, review.SeverityCritical)
			major := rev.Summary.Count(cat, review.SeverityMajor)
			minor := rev.Summary.Count(cat, review.SeverityMinor)
			if crit+major+minor == 0 {
				continue
			}
			ew.printf("| %s | %d | %d | %d |\n", cat.Label(), crit, major, minor)
		}
		ew.printf("| **Total** | **%d** | **%d** | **%d** |\n\n",
			rev.Summary.BySeverity(review.SeverityCritical),
			rev.Summary.BySeverity(review.SeverityMajor),
			rev.Summary.BySeverity(review.SeverityMinor),
		)
	}

	if len(rev.PriorityActions) > 0 {
		ew.printf("### Priority Actions\n\n")
		for i, a := range rev.PriorityActions {
			ew.printf("%d. %s\n", i+1, a)
		}
		ew.printf("\n")
	}

	grouped := groupBySeverity(rev.Comments)
	for _, sev := range review.Severities {
		comments := grouped[sev]
		if len(comments) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(comments))
		for _, c := range comments {
			title := c.Title
			if title == "" {
				title = firstLine(c.Message)
			}
			ew.printf("### %s\n\n", title)
			ew.printf("**`%s:%s`** | %s | Confidence: %.0f%%\n\n", c.Path, c.Lines, c.Category.Label(), c.Confidence*100)
			ew.printf("%s\n\n", c.Message)
			if c.SuggestedFix != "" {
				ew.printf("**Suggested Fix:**\n\n")
				if looksLikeCode(c.SuggestedFix) {
					ew.printf("```%s\n%s\n```\n\n", inferLang(c.Path), c.SuggestedFix)
				} else {
					ew.printf("> %s\n\n", strings.ReplaceAll(c.SuggestedFix, "\n", "\n> "))
				}
			}
			ew.printf("---\n\n")
		}
		ew.printf("</details>\n\n")
	}

	if len(rev.Notes) > 0 {
		ew.printf("<details>\n<summary>Run notes</summary>\n\n")
		for _, n := range rev.Notes {
			ew.printf("- %s\n", noteLine(n))
		}
		ew.printf("\n</details>\n\n")
	}

	ew.printf("*Reviewed in %dms*\n", report.Duration.Milliseconds())
	return ew.err
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return ":red_circle:"
	case review.SeverityMajor:
		return ":orange_circle:"
	case review.SeverityMinor:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	for _, indicator := range []string{
		"function ", "const ", "let ", "return ", "import ", "export ",
		"func ", "if (", "=>", "{", "}", "===", "()", "</", "/>",
	} {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

var langByExt = map[string]string{
	".ts":   "typescript",
	".tsx":  "tsx",
	".js":   "javascript",
	".jsx":  "jsx",
	".mjs":  "javascript",
	".go":   "go",
	".py":   "python",
	".css":  "css",
	".scss": "scss",
	".html": "html",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".sql":  "sql",
	".sh":   "bash",
}

func inferLang(p string) string {
	return langByExt[strings.ToLower(path.Ext(p))]
}
