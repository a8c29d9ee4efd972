package specialist

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const findingFormat = `You MUST respond with ONLY a JSON array of findings. No markdown, no explanation, no preamble. Just the JSON array.

Each finding must have this exact structure:
{
  "severity": "critical|major|minor",
  "title": "Short descriptive title",
  "message": "What is wrong and why it matters",
  "suggestedFix": "How to fix it, with code if helpful",
  "confidence": 0.0-1.0,
  "path": "relative/file/path",
  "startLine": 1,
  "endLine": 1
}

If there are no issues, respond with an empty array: []`

// systemPrompt builds the instructions for one specialist.
func systemPrompt(p Profile, rules *Rules) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the %s on a pull-request review panel. %s.\n\n", p.Name, p.Description)
	b.WriteString("Rules:\n")
	b.WriteString("1. Only review the changes shown in the diff. Do not comment on unchanged code.\n")
	fmt.Fprintf(&b, "2. Report only issues in your area: %s. Other reviewers cover everything else.\n", strings.Join(p.FocusAreas, ", "))
	b.WriteString("3. Be concise and actionable. Every finding must include a concrete fix.\n")
	b.WriteString("4. Use line numbers from the new side of the diff hunks.\n")
	b.WriteString("5. Rate severity as \"critical\" (must fix before merge), \"major\" (should fix) or \"minor\" (nice to have).\n")
	b.WriteString("6. Rate your confidence from 0.0 to 1.0.\n")

	if section := rules.promptSection(p.Category); section != "" {
		b.WriteString(section)
	}

	b.WriteString("\n")
	b.WriteString(findingFormat)
	return b.String()
}

// userPrompt wraps the diff with review instructions.
func userPrompt(diff string, files []string, maxFindings int) string {
	var b strings.Builder

	b.WriteString("Review the following pull request diff and identify issues in your area of expertise.\n\n")

	if maxFindings > 0 {
		fmt.Fprintf(&b, "Return at most %d findings.\n", maxFindings)
	}

	// Language hints from file extensions
	if langs := detectLanguages(files); len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(diff)
	b.WriteString("\n--- END DIFF ---\n")

	return b.String()
}

var langMap = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".js":   "JavaScript",
	".mjs":  "JavaScript",
	".ts":   "TypeScript",
	".mts":  "TypeScript",
	".cts":  "TypeScript",
	".tsx":  "TypeScript/React",
	".jsx":  "JavaScript/React",
	".css":  "CSS",
	".scss": "SCSS",
	".html": "HTML",
	".rs":   "Rust",
	".java": "Java",
	".rb":   "Ruby",
	".sql":  "SQL",
	".sh":   "Shell",
	".yaml": "YAML",
	".yml":  "YAML",
	".json": "JSON",
}

func detectLanguages(files []string) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, f := range files {
		lang, ok := langMap[strings.ToLower(filepath.Ext(f))]
		if ok && !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}
