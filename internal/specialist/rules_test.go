package specialist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/panel/internal/review"
)

func TestLoadRules_Empty(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules != nil {
		t.Error("expected nil rules for empty path")
	}
}

func TestLoadRules_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `focus:
  - accessibility
  - error handling
category_focus:
  react: [keyboard navigation]
severity_overrides:
  typesafety: critical
required:
  - id: no-any
    text: Flag every new use of any
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}
	if len(rules.Focus) != 2 || rules.Focus[0] != "accessibility" {
		t.Errorf("Focus = %v", rules.Focus)
	}
	if sev, ok := rules.severityFor(review.CategoryTypeSafety); !ok || sev != review.SeverityCritical {
		t.Errorf("severityFor(typesafety) = %s, %v", sev, ok)
	}
	if _, ok := rules.severityFor(review.CategoryLogic); ok {
		t.Error("logic has no override")
	}

	react := rules.promptSection(review.CategoryUXReact)
	if !strings.Contains(react, "keyboard navigation") || !strings.Contains(react, "accessibility") {
		t.Errorf("react section = %q", react)
	}
	if strings.Contains(rules.promptSection(review.CategoryLogic), "keyboard navigation") {
		t.Error("category focus leaked into another specialist")
	}
	if !strings.Contains(react, "[no-any]") {
		t.Error("required checks should appear for every specialist")
	}
}

func TestLoadRules_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	os.WriteFile(path, []byte(`{"focus": ["security"], "required": [{"id": "r1", "text": "check"}]}`), 0o644)
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}
	if len(rules.Focus) != 1 || len(rules.Required) != 1 {
		t.Errorf("rules = %+v", rules)
	}
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []string{
		"severity_overrides:\n  security: major\n",
		"severity_overrides:\n  logic: urgent\n",
		"category_focus:\n  backend: [x]\n",
		"required:\n  - id: a\n",
		"focus: [unclosed",
	}
	for _, in := range tests {
		if _, err := ParseRules([]byte(in)); err == nil {
			t.Errorf("ParseRules(%q) expected error", in)
		}
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNilRules(t *testing.T) {
	var r *Rules
	if r.promptSection(review.CategoryLogic) != "" {
		t.Error("nil rules should add nothing")
	}
}
