package diffctx

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// LineKind classifies a line inside a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineDeleted
)

// Line is one line of a hunk. OldNo is zero for added lines and NewNo is
// zero for deleted lines.
type Line struct {
	Kind    LineKind
	Content string
	OldNo   int
	NewNo   int
}

// Hunk is one "@@" section of a file diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// FileStatus describes what happened to a file.
type FileStatus string

const (
	StatusModified FileStatus = "modified"
	StatusAdded    FileStatus = "added"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
)

// File is the diff of a single file.
type File struct {
	Path      string
	OldPath   string
	Status    FileStatus
	Binary    bool
	Hunks     []Hunk
	Additions int
	Deletions int
	raw       strings.Builder
}

// Raw returns the unified diff text of this file.
func (f *File) Raw() string { return f.raw.String() }

// Context is the changed-file and hunk data a review run operates on. It is
// built once and only read afterwards.
type Context struct {
	Files []*File
	// Source describes where the diff came from ("github-pr", "staged", ...).
	Source string
	// Ref is a human readable reference such as "owner/repo#12" or a range.
	Ref string
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse reads a unified diff, either git-style ("diff --git") or plain
// ("---"/"+++" pairs).
func Parse(raw string) (*Context, error) {
	c := &Context{}
	var cur *File
	var hunk *Hunk
	var oldNo, newNo int
	var oldLeft, newLeft int

	flush := func() {
		if cur != nil {
			if cur.Path == "" {
				cur.Path = cur.OldPath
			}
			if cur.Path != "" {
				c.Files = append(c.Files, cur)
			}
		}
		cur = nil
		hunk = nil
	}

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			cur = &File{Status: StatusModified}
			if a, b, ok := gitHeaderPaths(line); ok {
				cur.OldPath, cur.Path = a, b
			}

		case hunk == nil && strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			if cur == nil || len(cur.Hunks) > 0 {
				flush()
				cur = &File{Status: StatusModified}
			}
			if p := stripPrefix(strings.TrimPrefix(line, "--- ")); p != "" {
				cur.OldPath = p
			} else {
				cur.Status = StatusAdded
			}

		case cur != nil && hunk == nil && strings.HasPrefix(line, "+++ "):
			if p := stripPrefix(strings.TrimPrefix(line, "+++ ")); p != "" {
				cur.Path = p
			} else {
				cur.Status = StatusDeleted
				cur.Path = cur.OldPath
			}

		case cur != nil && strings.HasPrefix(line, "new file mode"):
			cur.Status = StatusAdded
		case cur != nil && strings.HasPrefix(line, "deleted file mode"):
			cur.Status = StatusDeleted
		case cur != nil && strings.HasPrefix(line, "rename from "):
			cur.Status = StatusRenamed
			cur.OldPath = strings.TrimPrefix(line, "rename from ")
		case cur != nil && strings.HasPrefix(line, "rename to "):
			cur.Path = strings.TrimPrefix(line, "rename to ")
		case cur != nil && strings.HasPrefix(line, "Binary files "):
			cur.Binary = true

		case cur != nil && strings.HasPrefix(line, "@@"):
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("line %d: malformed hunk header %q", i+1, line)
			}
			h := Hunk{
				OldStart: atoi(m[1]),
				OldLines: atoiDefault(m[2], 1),
				NewStart: atoi(m[3]),
				NewLines: atoiDefault(m[4], 1),
			}
			cur.Hunks = append(cur.Hunks, h)
			hunk = &cur.Hunks[len(cur.Hunks)-1]
			oldNo, newNo = h.OldStart, h.NewStart
			oldLeft, newLeft = h.OldLines, h.NewLines

		case hunk != nil && strings.HasPrefix(line, "+"):
			hunk.Lines = append(hunk.Lines, Line{Kind: LineAdded, Content: line[1:], NewNo: newNo})
			cur.Additions++
			newNo++
			newLeft--
		case hunk != nil && strings.HasPrefix(line, "-"):
			hunk.Lines = append(hunk.Lines, Line{Kind: LineDeleted, Content: line[1:], OldNo: oldNo})
			cur.Deletions++
			oldNo++
			oldLeft--
		case hunk != nil && (strings.HasPrefix(line, " ") || line == ""):
			content := ""
			if line != "" {
				content = line[1:]
			}
			hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: content, OldNo: oldNo, NewNo: newNo})
			oldNo++
			newNo++
			oldLeft--
			newLeft--
		}

		// A hunk ends when its line counts are used up, so a following
		// "---"/"+++" pair starts a new file rather than being read as content.
		if hunk != nil && oldLeft <= 0 && newLeft <= 0 {
			hunk = nil
		}

		if cur != nil {
			cur.raw.WriteString(line)
			cur.raw.WriteByte('\n')
		}
	}
	flush()

	return c, nil
}

// gitHeaderPaths splits "diff --git a/x b/y". Paths containing " b/" are
// ambiguous and resolved later from the ---/+++ lines.
func gitHeaderPaths(line string) (string, string, bool) {
	rest := strings.TrimPrefix(line, "diff --git ")
	if !strings.HasPrefix(rest, "a/") {
		return "", "", false
	}
	idx := strings.Index(rest, " b/")
	if idx < 0 || strings.Count(rest, " b/") > 1 {
		return "", "", false
	}
	return rest[2:idx], rest[idx+3:], true
}

func stripPrefix(p string) string {
	if i := strings.IndexByte(p, '\t'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoi(s)
}

// IsEmpty reports whether the context contains no changed files.
func (c *Context) IsEmpty() bool {
	return c == nil || len(c.Files) == 0
}

// Paths returns the new-side path of every file, in diff order.
func (c *Context) Paths() []string {
	if c == nil {
		return nil
	}
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// File returns the file diff for path, or nil.
func (c *Context) File(path string) *File {
	if c == nil {
		return nil
	}
	for _, f := range c.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// Text reassembles the unified diff.
func (c *Context) Text() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, f := range c.Files {
		sb.WriteString(f.Raw())
	}
	return sb.String()
}

// Size returns the length of the reassembled diff in bytes.
func (c *Context) Size() int {
	n := 0
	if c == nil {
		return n
	}
	for _, f := range c.Files {
		n += f.raw.Len()
	}
	return n
}

// ContainsAny reports whether any added or context line mentions one of the
// keywords.
func (c *Context) ContainsAny(keywords ...string) bool {
	if c == nil {
		return false
	}
	for _, f := range c.Files {
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if l.Kind == LineDeleted {
					continue
				}
				for _, kw := range keywords {
					if strings.Contains(l.Content, kw) {
						return true
					}
				}
			}
		}
	}
	return false
}

// HasExtension reports whether any file path ends in one of exts.
func (c *Context) HasExtension(exts ...string) bool {
	if c == nil {
		return false
	}
	for _, f := range c.Files {
		ext := strings.ToLower(filepath.Ext(f.Path))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
	}
	return false
}

// FileStats summarizes one file.
type FileStats struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// Stats returns per-file statistics sorted by path.
func (c *Context) Stats() []FileStats {
	if c == nil {
		return nil
	}
	stats := make([]FileStats, 0, len(c.Files))
	for _, f := range c.Files {
		stats = append(stats, FileStats{
			Path:      f.Path,
			Status:    string(f.Status),
			Additions: f.Additions,
			Deletions: f.Deletions,
			Changes:   f.Additions + f.Deletions,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Path < stats[j].Path })
	return stats
}

// Filter returns a new Context without files matching any exclude glob.
func (c *Context) Filter(excludes []string) *Context {
	if c == nil {
		return nil
	}
	out := &Context{Source: c.Source, Ref: c.Ref}
	for _, f := range c.Files {
		if !MatchesAny(f.Path, excludes) {
			out.Files = append(out.Files, f)
		}
	}
	return out
}

// Truncated returns the diff text capped at maxBytes. Whole files are kept
// while they fit; the first file that does not fit is cut and marked.
func (c *Context) Truncated(maxBytes int) string {
	text := c.Text()
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	var sb strings.Builder
	for _, f := range c.Files {
		raw := f.Raw()
		if sb.Len()+len(raw) > maxBytes {
			remaining := maxBytes - sb.Len()
			if remaining > 0 {
				sb.WriteString(CutUTF8(raw, remaining))
			}
			break
		}
		sb.WriteString(raw)
	}
	sb.WriteString("\n... (diff truncated)\n")
	return sb.String()
}

// CutUTF8 returns the longest prefix of s that is at most n bytes and does
// not split a multi-byte character.
func CutUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}
