package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/panel/internal/review"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	agg := review.Aggregator{MaxActions: 3}
	rev, err := agg.Aggregate([]review.Finding{
		{
			Category:     review.CategoryLogic,
			Severity:     review.SeverityCritical,
			Confidence:   0.9,
			FilePath:     "src/cart.ts",
			Lines:        review.LineRange{Start: 10, End: 12},
			Title:        "Total ignores discounts",
			Message:      "The cart total is computed before discounts are applied.",
			SuggestedFix: "const total = applyDiscounts(items);",
		},
		{
			Category:   review.CategoryUXReact,
			Severity:   review.SeverityMinor,
			Confidence: 0.6,
			FilePath:   "src/App.tsx",
			Lines:      review.LineRange{Start: 4, End: 4},
			Message:    "Button has no accessible label",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	rev.RunID = "run-42"
	rev.Specialists = []review.Category{review.CategoryLogic, review.CategoryUXReact}
	rev.Notes = []review.Note{{Kind: review.NoteFailed, Category: review.CategoryPerformance, Message: "upstream 503"}}
	rev.Degraded = true
	return &Report{
		Tool:     "panel",
		Version:  "1.0",
		Target:   "acme/web#7",
		Review:   rev,
		Duration: 1500 * time.Millisecond,
	}
}

func emptyReport() *Report {
	return &Report{Tool: "panel", Version: "1.0", Target: "working tree", Review: &review.Review{RunID: "run-0"}}
}

func TestGetWriter(t *testing.T) {
	for _, f := range []string{"text", "", "json", "markdown", "md", "sarif"} {
		if _, err := GetWriter(f); err != nil {
			t.Errorf("GetWriter(%q) error: %v", f, err)
		}
	}
	if _, err := GetWriter("xml"); err == nil {
		t.Error("GetWriter(xml) should fail")
	}
}

func TestTextWriter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"working tree", "Findings: 0 total", "No issues found"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextWriter_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, sampleReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Findings: 2 total (1 critical, 0 major, 1 minor)",
		"src/cart.ts:10-12",
		"Total ignores discounts",
		"src/App.tsx:4",
		"Priority actions",
		"Degraded",
		"failed (Performance): upstream 503",
		"run run-42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "CRITICAL") > strings.Index(out, "MINOR") {
		t.Error("critical comments should come before minor ones")
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"## Panel Code Review",
		"| Logic | 1 | 0 | 0 |",
		"| UX/React | 0 | 0 | 1 |",
		"| **Total** | **1** | **0** | **1** |",
		"### Priority Actions",
		"<summary>:red_circle: CRITICAL (1)</summary>",
		"```typescript\nconst total = applyDiscounts(items);\n```",
		"<summary>Run notes</summary>",
		"*Reviewed in 1500ms*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "| Performance |") {
		t.Error("categories without findings should not get a row")
	}
}

func TestMarkdownWriter_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No issues found.") || strings.Contains(buf.String(), "<details>") {
		t.Errorf("unexpected markdown:\n%s", buf.String())
	}
}

func TestMarkdownHelpers(t *testing.T) {
	tests := []struct {
		in   string
		code bool
	}{
		{"const x = useMemo(() => a, [a]);", true},
		{"Add an aria-label to the button.", false},
		{"<Button aria-label=\"Close\" />", true},
	}
	for _, tt := range tests {
		if got := looksLikeCode(tt.in); got != tt.code {
			t.Errorf("looksLikeCode(%q) = %v, want %v", tt.in, got, tt.code)
		}
	}
	if got := inferLang("src/App.TSX"); got != "tsx" {
		t.Errorf("inferLang = %q, want tsx", got)
	}
	if got := inferLang("Makefile"); got != "" {
		t.Errorf("inferLang(Makefile) = %q, want empty", got)
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, sampleReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var parsed Report
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.Target != "acme/web#7" || parsed.DurationMs != 1500 {
		t.Errorf("parsed = %+v", parsed)
	}
	if parsed.Review == nil || len(parsed.Review.Comments) != 2 || parsed.Review.RunID != "run-42" {
		t.Fatalf("review = %+v", parsed.Review)
	}
	if parsed.Review.Comments[0].Path != "src/App.tsx" {
		t.Errorf("comments should be ordered by path, first = %s", parsed.Review.Comments[0].Path)
	}
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, sampleReport(t)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if sarif.Version != "2.1.0" || len(sarif.Runs) != 1 {
		t.Fatalf("sarif = %+v", sarif)
	}
	run := sarif.Runs[0]
	if len(run.Results) != 2 || len(run.Tool.Driver.Rules) != 2 {
		t.Fatalf("results = %d, rules = %d", len(run.Results), len(run.Tool.Driver.Rules))
	}
	if run.Results[0].Level != "note" {
		t.Errorf("minor level = %q, want note", run.Results[0].Level)
	}
	cart := run.Results[1]
	if cart.Level != "error" || cart.Locations[0].PhysicalLocation.Region.StartLine != 10 || len(cart.Fixes) != 1 {
		t.Errorf("critical result = %+v", cart)
	}
	if !run.Properties.Degraded || run.Properties.RunID != "run-42" {
		t.Errorf("properties = %+v", run.Properties)
	}
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatal(err)
	}
	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatal(err)
	}
	if len(sarif.Runs[0].Results) != 0 {
		t.Errorf("results = %d, want 0", len(sarif.Runs[0].Results))
	}
}

func TestRuleIDStable(t *testing.T) {
	c := review.InlineComment{Category: review.CategoryLogic, Title: "Off by one"}
	if ruleIDFor(c) != ruleIDFor(c) {
		t.Error("rule ID is not stable")
	}
	other := c
	other.Category = review.CategoryOther
	if ruleIDFor(c) == ruleIDFor(other) {
		t.Error("rule ID should depend on category")
	}
	if !strings.HasPrefix(ruleIDFor(c), "panel/logic/") {
		t.Errorf("rule ID = %q", ruleIDFor(c))
	}
}

func TestWriteReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.json")
	if err := WriteReport(sampleReport(t), "json", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Errorf("file is not valid JSON: %s", data)
	}
	if err := WriteReport(sampleReport(t), "xml", path); err == nil {
		t.Error("unknown format should fail")
	}
}
