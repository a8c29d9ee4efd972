package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/panel/internal/review"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	ruleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	majorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	minorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// TextWriter outputs a human-readable terminal report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	rev := report.Review
	rule := ruleStyle.Render(strings.Repeat("─", 60))

	ew.println(headerStyle.Render("Panel Code Review") + " " + dimStyle.Render(report.Target))
	ew.println(rule)
	total := rev.Summary.Total()
	ew.printf("Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d critical, %d major, %d minor)",
			rev.Summary.BySeverity(review.SeverityCritical),
			rev.Summary.BySeverity(review.SeverityMajor),
			rev.Summary.BySeverity(review.SeverityMinor),
		)
	}
	ew.println("")
	if len(rev.Specialists) > 0 {
		labels := make([]string, len(rev.Specialists))
		for i, c := range rev.Specialists {
			labels[i] = c.Label()
		}
		ew.printf("Specialists: %s\n", strings.Join(labels, ", "))
	}
	if rev.Degraded {
		ew.println(majorStyle.Render("Degraded: some specialists did not contribute"))
	}
	ew.println(rule)

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
	}

	if len(rev.PriorityActions) > 0 {
		ew.printf("\n%s\n", headerStyle.Render("Priority actions"))
		for i, a := range rev.PriorityActions {
			ew.printf("  %d. %s\n", i+1, a)
		}
	}

	grouped := groupBySeverity(rev.Comments)
	for _, sev := range review.Severities {
		comments := grouped[sev]
		if len(comments) == 0 {
			continue
		}
		ew.printf("\n%s\n", severityStyle(sev).Render(severityIcon(sev)+" "+strings.ToUpper(string(sev))))
		ew.println(ruleStyle.Render(strings.Repeat("─", 40)))

		for _, c := range comments {
			title := c.Title
			if title == "" {
				title = firstLine(c.Message)
			}
			ew.printf("\n  %s:%s  %s\n", c.Path, c.Lines, title)
			ew.printf("  %s\n", dimStyle.Render(fmt.Sprintf("Category: %s | Confidence: %.0f%%", c.Category.Label(), c.Confidence*100)))
			for _, line := range wrapText(c.Message, 70) {
				ew.printf("    %s\n", line)
			}
			if c.SuggestedFix != "" {
				ew.println("  Suggested fix:")
				for _, line := range strings.Split(c.SuggestedFix, "\n") {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if len(rev.Notes) > 0 {
		ew.printf("\n%s\n", headerStyle.Render("Run notes"))
		for _, n := range rev.Notes {
			ew.printf("  - %s\n", noteLine(n))
		}
	}

	ew.printf("\n%s\n", rule)
	if report.ReviewURL != "" {
		ew.printf("Posted: %s\n", report.ReviewURL)
	}
	ew.printf("Completed in %dms (run %s)\n", report.Duration.Milliseconds(), rev.RunID)
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// groupBySeverity keeps the aggregated comment order within each severity.
func groupBySeverity(comments []review.InlineComment) map[review.Severity][]review.InlineComment {
	m := make(map[review.Severity][]review.InlineComment)
	for _, c := range comments {
		m[c.Severity] = append(m[c.Severity], c)
	}
	return m
}

func severityStyle(s review.Severity) lipgloss.Style {
	switch s {
	case review.SeverityCritical:
		return criticalStyle
	case review.SeverityMajor:
		return majorStyle
	default:
		return minorStyle
	}
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!]"
	case review.SeverityMajor:
		return "[!]"
	case review.SeverityMinor:
		return "[-]"
	default:
		return "[?]"
	}
}

func noteLine(n review.Note) string {
	if n.Category != "" {
		return fmt.Sprintf("%s (%s): %s", n.Kind, n.Category.Label(), n.Message)
	}
	return fmt.Sprintf("%s: %s", n.Kind, n.Message)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
