package specialist

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/panel/internal/review"
)

// Rules is a team rules pack layered on top of the built-in specialist
// instructions. JSON files using the same snake_case keys also load, since
// JSON is valid YAML.
type Rules struct {
	// Focus applies to every specialist.
	Focus []string `yaml:"focus,omitempty" json:"focus,omitempty"`
	// CategoryFocus adds focus areas for one specialist, keyed by category.
	CategoryFocus map[string][]string `yaml:"category_focus,omitempty" json:"categoryFocus,omitempty"`
	// SeverityOverrides forces the severity of every finding a specialist
	// reports, keyed by category.
	SeverityOverrides map[string]string `yaml:"severity_overrides,omitempty" json:"severityOverrides,omitempty"`
	Required          []RequiredCheck   `yaml:"required,omitempty" json:"required,omitempty"`

	overrides map[review.Category]review.Severity
}

// RequiredCheck is a policy check that should always be enforced.
type RequiredCheck struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a rules pack.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	for cat := range rules.CategoryFocus {
		if _, err := review.ParseCategory(cat); err != nil {
			return nil, fmt.Errorf("rules category_focus: %w", err)
		}
	}
	rules.overrides = make(map[review.Category]review.Severity, len(rules.SeverityOverrides))
	for cat, sev := range rules.SeverityOverrides {
		c, err := review.ParseCategory(cat)
		if err != nil {
			return nil, fmt.Errorf("rules severity_overrides: %w", err)
		}
		s, err := review.ParseSeverity(sev)
		if err != nil {
			return nil, fmt.Errorf("rules severity_overrides[%s]: %w", cat, err)
		}
		rules.overrides[c] = s
	}
	for i, req := range rules.Required {
		if req.ID == "" || req.Text == "" {
			return nil, fmt.Errorf("rules required[%d]: id and text are required", i)
		}
	}
	return &rules, nil
}

// promptSection returns additional prompt instructions for one specialist.
func (r *Rules) promptSection(c review.Category) string {
	if r == nil {
		return ""
	}

	var b strings.Builder

	focus := append([]string(nil), r.Focus...)
	keys := make([]string, 0, len(r.CategoryFocus))
	for k := range r.CategoryFocus {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if parsed, _ := review.ParseCategory(k); parsed == c {
			focus = append(focus, r.CategoryFocus[k]...)
		}
	}
	if len(focus) > 0 {
		fmt.Fprintf(&b, "\nTeam focus areas: %s. Prioritize findings in these areas.\n", strings.Join(focus, ", "))
	}

	if sev, ok := r.overrides[c]; ok {
		fmt.Fprintf(&b, "\nSeverity policy: rate every finding as %s.\n", sev)
	}

	if len(r.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		reqs := append([]RequiredCheck(nil), r.Required...)
		sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
		for _, req := range reqs {
			fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
		}
	}

	return b.String()
}

// severityFor returns the forced severity for a category, if any.
func (r *Rules) severityFor(c review.Category) (review.Severity, bool) {
	if r == nil {
		return "", false
	}
	s, ok := r.overrides[c]
	return s, ok
}
