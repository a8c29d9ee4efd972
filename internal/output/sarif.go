package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/panel/internal/review"
)

// SARIFWriter outputs inline comments in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *Report) error {
	data, err := json.MarshalIndent(buildSARIF(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool     `json:"tool"`
	Results    []sarifResult `json:"results"`
	Properties sarifRunProps `json:"properties"`
}

type sarifRunProps struct {
	RunID           string   `json:"runId,omitempty"`
	PriorityActions []string `json:"priorityActions,omitempty"`
	Degraded        bool     `json:"degraded"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *Report) sarifLog {
	rev := report.Review
	var rules []sarifRule
	seen := make(map[string]bool)
	results := make([]sarifResult, 0, len(rev.Comments))

	for _, c := range rev.Comments {
		ruleID := ruleIDFor(c)
		if !seen[ruleID] {
			seen[ruleID] = true
			name := c.Title
			if name == "" {
				name = firstLine(c.Message)
			}
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             string(c.Category),
				ShortDescription: sarifMessage{Text: name},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(c.Severity)},
				Properties:       sarifRuleProperties{Tags: []string{string(c.Category), string(c.Severity)}},
			})
		}

		result := sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(c.Severity),
			Message: sarifMessage{Text: c.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: c.Path},
					Region:           sarifRegion{StartLine: c.Lines.Start, EndLine: c.Lines.End},
				},
			}},
		}
		if c.SuggestedFix != "" {
			result.Fixes = []sarifFix{{Description: sarifMessage{Text: c.SuggestedFix}}}
		}
		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "panel",
				Version:        report.Version,
				InformationURI: "https://github.com/dshills/panel",
				Rules:          rules,
			}},
			Results: results,
			Properties: sarifRunProps{
				RunID:           rev.RunID,
				PriorityActions: rev.PriorityActions,
				Degraded:        rev.Degraded,
			},
		}},
	}
}

func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "error"
	case review.SeverityMajor:
		return "warning"
	default:
		return "note"
	}
}

// ruleIDFor derives a stable rule ID from category and title.
func ruleIDFor(c review.InlineComment) string {
	key := c.Title
	if key == "" {
		key = firstLine(c.Message)
	}
	h := sha256.Sum256([]byte(string(c.Category) + "/" + key))
	return fmt.Sprintf("panel/%s/%x", c.Category, h[:4])
}
