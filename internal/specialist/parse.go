package specialist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dshills/panel/internal/review"
)

const findingsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["severity", "message"],
    "properties": {
      "severity": { "type": "string" },
      "category": { "type": "string" },
      "title": { "type": "string" },
      "message": { "type": "string", "minLength": 1 },
      "suggestedFix": { "type": "string" },
      "suggestion": { "type": "string" },
      "confidence": { "type": "number", "minimum": 0, "maximum": 1 },
      "path": { "type": "string" },
      "file": { "type": "string" },
      "startLine": { "type": "integer", "minimum": 1 },
      "endLine": { "type": "integer", "minimum": 1 },
      "line": { "type": "integer", "minimum": 1 }
    },
    "allOf": [
      { "anyOf": [ { "required": ["path"] }, { "required": ["file"] } ] },
      { "anyOf": [ { "required": ["startLine"] }, { "required": ["line"] } ] }
    ]
  }
}`

var findingsSchemaLoader = gojsonschema.NewStringLoader(findingsSchemaJSON)

// defaultConfidence is used when a backend omits confidence.
const defaultConfidence = 0.5

type wireFinding struct {
	Severity     string   `json:"severity"`
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggestedFix"`
	Suggestion   string   `json:"suggestion"`
	Confidence   *float64 `json:"confidence"`
	Path         string   `json:"path"`
	File         string   `json:"file"`
	StartLine    int      `json:"startLine"`
	EndLine      int      `json:"endLine"`
	Line         int      `json:"line"`
}

// parseFindings validates a backend response and converts it into
// findings owned by category c. Whatever category the backend claims is
// ignored.
func parseFindings(text string, c review.Category, source string, rules *Rules) ([]review.Finding, error) {
	payload := extractJSONPayload(text)
	if payload == "" {
		return nil, fmt.Errorf("response contains no JSON")
	}

	result, err := gojsonschema.Validate(findingsSchemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("decoding response JSON: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for i, desc := range result.Errors() {
			if i == 3 {
				issues = append(issues, fmt.Sprintf("and %d more", len(result.Errors())-3))
				break
			}
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("response does not match finding schema: %s", strings.Join(issues, "; "))
	}

	var raw []wireFinding
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decoding findings: %w", err)
	}

	forced, hasForced := rules.severityFor(c)
	findings := make([]review.Finding, 0, len(raw))
	for i, w := range raw {
		f, err := w.toFinding(c, source)
		if err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		if hasForced {
			f.Severity = forced
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func (w wireFinding) toFinding(c review.Category, source string) (review.Finding, error) {
	sev, err := review.ParseSeverity(w.Severity)
	if err != nil {
		return review.Finding{}, err
	}

	path := w.Path
	if path == "" {
		path = w.File
	}
	start := w.StartLine
	if start == 0 {
		start = w.Line
	}
	end := w.EndLine
	if end < start {
		end = start
	}
	conf := defaultConfidence
	if w.Confidence != nil {
		conf = *w.Confidence
	}
	fix := w.SuggestedFix
	if fix == "" {
		fix = w.Suggestion
	}

	return review.Finding{
		Category:     c,
		Severity:     sev,
		Confidence:   conf,
		FilePath:     strings.TrimPrefix(strings.TrimSpace(path), "b/"),
		Lines:        review.LineRange{Start: start, End: end},
		Title:        strings.TrimSpace(w.Title),
		Message:      strings.TrimSpace(w.Message),
		SuggestedFix: strings.TrimSpace(fix),
		Source:       source,
	}, nil
}

// extractJSONPayload strips code fences and surrounding prose, returning
// the outermost JSON array. A lone object wrapping an array (for example
// {"findings": [...]}) yields the inner array.
func extractJSONPayload(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(clean[start : end+1])
}
