package redact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/panel/internal/diffctx"
)

const placeholder = "[REDACTED]"

// defaultPatterns are regex heuristics for common secret types.
var defaultPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	// Database URLs with inline credentials
	regexp.MustCompile(`(?i)(postgres(ql)?|mysql|mongodb(\+srv)?|redis|amqp)://[^:\s/]+:[^@\s]+@`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Redactor scrubs secrets from diff content before it leaves the process.
// It is safe for concurrent use.
type Redactor struct {
	paths    []string
	patterns []*regexp.Regexp
}

// Stats reports what a redaction pass removed.
type Stats struct {
	Secrets int
	Files   []string
}

// New returns a Redactor that fully redacts files matching any of paths and
// scans everything else with the built-in patterns plus extra.
func New(paths []string, extra ...string) (*Redactor, error) {
	r := &Redactor{
		paths:    paths,
		patterns: append([]*regexp.Regexp(nil), defaultPatterns...),
	}
	for _, expr := range extra {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", expr, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// Text replaces detected secrets in s and returns the number of matches.
func (r *Redactor) Text(s string) (string, int) {
	n := 0
	for _, pat := range r.patterns {
		s = pat.ReplaceAllStringFunc(s, func(string) string {
			n++
			return placeholder
		})
	}
	return s, n
}

// Diff reassembles c as unified diff text with secrets removed. Files
// matching a redaction path keep their headers but lose every hunk.
func (r *Redactor) Diff(c *diffctx.Context) (string, Stats) {
	var sb strings.Builder
	var st Stats
	if c == nil {
		return "", st
	}
	for _, f := range c.Files {
		if diffctx.MatchesAny(f.Path, r.paths) {
			st.Files = append(st.Files, f.Path)
			sb.WriteString(fileHeader(f.Raw()))
			sb.WriteString(placeholder + " (file content redacted by path policy)\n")
			continue
		}
		text, n := r.Text(f.Raw())
		st.Secrets += n
		sb.WriteString(text)
	}
	return sb.String(), st
}

// fileHeader returns the lines of a file diff before its first hunk.
func fileHeader(raw string) string {
	if i := strings.Index(raw, "\n@@"); i >= 0 {
		return raw[:i+1]
	}
	return raw
}

var std, _ = New(nil)

// Secrets replaces detected secrets in text with [REDACTED] using the
// built-in patterns.
func Secrets(text string) string {
	out, _ := std.Text(text)
	return out
}
