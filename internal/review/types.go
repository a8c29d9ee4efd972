package review

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityMajor, SeverityMinor}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// ParseSeverity maps a loosely formatted severity label onto a Severity.
// Labels used by other review tools (high/medium/low) are accepted.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "high", "blocker":
		return SeverityCritical, nil
	case "major", "medium":
		return SeverityMajor, nil
	case "minor", "low", "suggestion", "info":
		return SeverityMinor, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// Label returns the display form of the severity ("Critical").
func (s Severity) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Category identifies the specialist that owns a finding.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryTypeSafety  Category = "typesafety"
	CategoryUXReact     Category = "ux-react"
	CategoryLogic       Category = "logic"
	CategoryOther       Category = "other"
)

// Categories lists every category in declaration order. This is also the
// default specialist dispatch order.
var Categories = []Category{
	CategoryPerformance,
	CategoryTypeSafety,
	CategoryUXReact,
	CategoryLogic,
	CategoryOther,
}

// CategoryIndex returns the declaration position of c, or -1 if unknown.
func CategoryIndex(c Category) int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return -1
}

// ParseCategory maps a category label onto a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "performance", "perf":
		return CategoryPerformance, nil
	case "typesafety", "type-safety", "types", "typescript":
		return CategoryTypeSafety, nil
	case "ux-react", "uxreact", "react", "ux", "reactbestpractices":
		return CategoryUXReact, nil
	case "logic", "quality":
		return CategoryLogic, nil
	case "other":
		return CategoryOther, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Label returns the display form of the category.
func (c Category) Label() string {
	switch c {
	case CategoryPerformance:
		return "Performance"
	case CategoryTypeSafety:
		return "TypeSafety"
	case CategoryUXReact:
		return "UX/React"
	case CategoryLogic:
		return "Logic"
	case CategoryOther:
		return "Other"
	}
	return string(c)
}

// LineRange is an inclusive range of line numbers in the new version of a file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether the two ranges share at least one line.
func (r LineRange) Overlaps(o LineRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r LineRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Finding is a single normalized piece of review feedback produced by one
// specialist. Findings are treated as values: nothing downstream of the
// specialist modifies them.
type Finding struct {
	Category     Category  `json:"category"`
	Severity     Severity  `json:"severity"`
	Confidence   float64   `json:"confidence"`
	FilePath     string    `json:"path"`
	Lines        LineRange `json:"lines"`
	Title        string    `json:"title,omitempty"`
	Message      string    `json:"message"`
	SuggestedFix string    `json:"suggestedFix,omitempty"`
	Source       string    `json:"source,omitempty"`
}

// Validate checks the structural invariants of a finding.
func (f Finding) Validate() error {
	switch {
	case strings.TrimSpace(f.FilePath) == "":
		return fmt.Errorf("empty file path")
	case f.Lines.Start < 1:
		return fmt.Errorf("line range start %d must be >= 1", f.Lines.Start)
	case f.Lines.End < f.Lines.Start:
		return fmt.Errorf("line range %d-%d has end before start", f.Lines.Start, f.Lines.End)
	case f.Confidence < 0 || f.Confidence > 1:
		return fmt.Errorf("confidence %v outside [0,1]", f.Confidence)
	case SeverityRank(f.Severity) == 0:
		return fmt.Errorf("unknown severity %q", f.Severity)
	case CategoryIndex(f.Category) < 0:
		return fmt.Errorf("unknown category %q", f.Category)
	case strings.TrimSpace(f.Message) == "":
		return fmt.Errorf("empty message")
	}
	return nil
}

// InlineComment is a review comment bound to one file and line range.
type InlineComment struct {
	Path         string    `json:"path"`
	Lines        LineRange `json:"lines"`
	Severity     Severity  `json:"severity"`
	Category     Category  `json:"category"`
	Confidence   float64   `json:"confidence"`
	Title        string    `json:"title,omitempty"`
	Message      string    `json:"message"`
	SuggestedFix string    `json:"suggestedFix,omitempty"`
	Body         string    `json:"body"`
}

// SummaryEntry counts surviving findings for one (category, severity) pair.
type SummaryEntry struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}

// Summary is ordered by category declaration order, then severity (most
// severe first). Pairs with a zero count are absent.
type Summary []SummaryEntry

// Count returns the number of findings for the pair, zero if absent.
func (s Summary) Count(c Category, sev Severity) int {
	for _, e := range s {
		if e.Category == c && e.Severity == sev {
			return e.Count
		}
	}
	return 0
}

// Total returns the number of findings across all pairs.
func (s Summary) Total() int {
	n := 0
	for _, e := range s {
		n += e.Count
	}
	return n
}

// BySeverity returns the total count for one severity.
func (s Summary) BySeverity(sev Severity) int {
	n := 0
	for _, e := range s {
		if e.Severity == sev {
			n += e.Count
		}
	}
	return n
}

// HighestSeverity returns the most severe level present, or "".
func (s Summary) HighestSeverity() Severity {
	var best Severity
	for _, e := range s {
		if SeverityRank(e.Severity) > SeverityRank(best) {
			best = e.Severity
		}
	}
	return best
}

// NoteKind classifies a run note.
type NoteKind string

const (
	NoteSkipped    NoteKind = "skipped"
	NoteFailed     NoteKind = "failed"
	NoteRunTimeout NoteKind = "run_timeout"
)

// Note records something the reader of a review should know about how the
// review was produced, such as a specialist that did not contribute.
type Note struct {
	Kind     NoteKind `json:"kind"`
	Category Category `json:"category,omitempty"`
	Message  string   `json:"message"`
}

// Review is the aggregated output of one orchestration run.
type Review struct {
	RunID           string          `json:"runId,omitempty"`
	Comments        []InlineComment `json:"inlineComments"`
	Summary         Summary         `json:"summary"`
	PriorityActions []string        `json:"priorityActions"`
	Specialists     []Category      `json:"specialists,omitempty"`
	Notes           []Note          `json:"notes,omitempty"`
	Degraded        bool            `json:"degraded"`
}
