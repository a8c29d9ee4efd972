package specialist

import (
	"testing"

	"github.com/dshills/panel/internal/review"
)

func TestExtractJSONPayload(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[]", "[]"},
		{"```json\n[1]\n```", "[1]"},
		{"Findings below:\n[{\"a\":1}]\nThanks.", `[{"a":1}]`},
		{`{"findings": [{"a": 1}]}`, `[{"a": 1}]`},
		{"no json here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractJSONPayload(tt.in); got != tt.want {
			t.Errorf("extractJSONPayload(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFindings_Aliases(t *testing.T) {
	text := `[{"severity":"high","message":" Unsafe cast ","file":"b/src/a.ts","line":7,"suggestion":"narrow it"}]`
	got, err := parseFindings(text, review.CategoryTypeSafety, "TS", nil)
	if err != nil {
		t.Fatalf("parseFindings error: %v", err)
	}
	f := got[0]
	if f.FilePath != "src/a.ts" {
		t.Errorf("FilePath = %q", f.FilePath)
	}
	if f.Lines != (review.LineRange{Start: 7, End: 7}) {
		t.Errorf("Lines = %v", f.Lines)
	}
	if f.Severity != review.SeverityCritical {
		t.Errorf("Severity = %s", f.Severity)
	}
	if f.Confidence != defaultConfidence {
		t.Errorf("Confidence = %v, want default", f.Confidence)
	}
	if f.Message != "Unsafe cast" || f.SuggestedFix != "narrow it" {
		t.Errorf("text fields = %q / %q", f.Message, f.SuggestedFix)
	}
}

func TestParseFindings_EndBeforeStart(t *testing.T) {
	text := `[{"severity":"minor","message":"m","path":"a.ts","startLine":9,"endLine":3,"confidence":0.4}]`
	got, err := parseFindings(text, review.CategoryOther, "x", nil)
	if err != nil {
		t.Fatalf("parseFindings error: %v", err)
	}
	if got[0].Lines != (review.LineRange{Start: 9, End: 9}) {
		t.Errorf("Lines = %v", got[0].Lines)
	}
}

func TestParseFindings_SeverityOverride(t *testing.T) {
	rules, err := ParseRules([]byte("severity_overrides:\n  logic: major\n"))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	text := `[{"severity":"minor","message":"m","path":"a.ts","startLine":1}]`
	got, err := parseFindings(text, review.CategoryLogic, "x", rules)
	if err != nil {
		t.Fatalf("parseFindings error: %v", err)
	}
	if got[0].Severity != review.SeverityMajor {
		t.Errorf("Severity = %s, want major", got[0].Severity)
	}
}

func TestParseFindings_NotArray(t *testing.T) {
	if _, err := parseFindings(`{"severity":"minor"}`, review.CategoryLogic, "x", nil); err == nil {
		t.Error("expected error for object response")
	}
}
