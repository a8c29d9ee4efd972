package review

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxActions is the number of priority actions kept when the
// Aggregator is not configured otherwise.
const DefaultMaxActions = 3

// AggregationError reports a finding that violates the data model. It is
// fatal to the run: no partial Review is produced.
type AggregationError struct {
	Index   int
	Finding Finding
	Err     error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("invalid finding %d (%s %s): %v", e.Index, e.Finding.Source, e.Finding.FilePath, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Aggregator merges the findings of several specialists into one Review.
// It is synchronous and keeps no state between calls.
type Aggregator struct {
	// MaxActions bounds PriorityActions. Zero means DefaultMaxActions.
	MaxActions int
	// Similar decides message equivalence. Nil means Similar.
	Similar Similarity
}

// entry pairs a finding with its position in the aggregation input, which
// is the specialist dispatch order.
type entry struct {
	f   Finding
	pos int
}

// Aggregate validates, groups, deduplicates and summarizes findings. The
// input slice is not modified. Output depends only on the input contents and
// order.
func (a *Aggregator) Aggregate(findings []Finding) (*Review, error) {
	survivors, err := a.dedupe(findings)
	if err != nil {
		return nil, err
	}

	rev := &Review{
		Comments:        make([]InlineComment, 0, len(survivors)),
		PriorityActions: []string{},
	}
	for _, e := range survivors {
		rev.Comments = append(rev.Comments, newComment(e.f))
	}
	rev.Summary = summarize(survivors)
	rev.PriorityActions = a.priorityActions(survivors)
	return rev, nil
}

// Deduplicate returns the surviving findings in review order: files by
// ascending path, then line start ascending, severity descending and input
// order. Feeding the result back in returns it unchanged.
func (a *Aggregator) Deduplicate(findings []Finding) ([]Finding, error) {
	survivors, err := a.dedupe(findings)
	if err != nil {
		return nil, err
	}
	out := make([]Finding, len(survivors))
	for i, e := range survivors {
		out[i] = e.f
	}
	return out, nil
}

func (a *Aggregator) similar() Similarity {
	if a.Similar != nil {
		return a.Similar
	}
	return Similar
}

func (a *Aggregator) maxActions() int {
	if a.MaxActions > 0 {
		return a.MaxActions
	}
	return DefaultMaxActions
}

func (a *Aggregator) dedupe(findings []Finding) ([]entry, error) {
	byFile := make(map[string][]entry)
	var paths []string
	for i, f := range findings {
		if err := f.Validate(); err != nil {
			return nil, &AggregationError{Index: i, Finding: f, Err: err}
		}
		if _, ok := byFile[f.FilePath]; !ok {
			paths = append(paths, f.FilePath)
		}
		byFile[f.FilePath] = append(byFile[f.FilePath], entry{f: f, pos: i})
	}
	sort.Strings(paths)

	sim := a.similar()
	var out []entry
	for _, path := range paths {
		group := byFile[path]
		sortEntries(group)

		var kept []entry
		for _, cand := range group {
			kept = insert(kept, cand, sim)
		}
		sortEntries(kept)
		out = append(out, kept...)
	}
	return out, nil
}

// insert adds cand to kept, merging it with any duplicate already kept. The
// winner of a merge is re-inserted so that kept stays pairwise distinct.
func insert(kept []entry, cand entry, sim Similarity) []entry {
	for {
		j := -1
		for i, k := range kept {
			if duplicates(k.f, cand.f, sim) {
				j = i
				break
			}
		}
		if j < 0 {
			return append(kept, cand)
		}
		cand = better(kept[j], cand)
		kept = append(kept[:j], kept[j+1:]...)
	}
}

func duplicates(a, b Finding, sim Similarity) bool {
	return a.FilePath == b.FilePath &&
		a.Category == b.Category &&
		a.Lines.Overlaps(b.Lines) &&
		sim(a.Message, b.Message)
}

// better picks the finding to keep: higher confidence, then higher
// severity, then earlier dispatch position.
func better(x, y entry) entry {
	if x.f.Confidence != y.f.Confidence {
		if x.f.Confidence > y.f.Confidence {
			return x
		}
		return y
	}
	rx, ry := SeverityRank(x.f.Severity), SeverityRank(y.f.Severity)
	if rx != ry {
		if rx > ry {
			return x
		}
		return y
	}
	if x.pos <= y.pos {
		return x
	}
	return y
}

func sortEntries(es []entry) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.f.Lines.Start != b.f.Lines.Start {
			return a.f.Lines.Start < b.f.Lines.Start
		}
		ra, rb := SeverityRank(a.f.Severity), SeverityRank(b.f.Severity)
		if ra != rb {
			return ra > rb
		}
		return a.pos < b.pos
	})
}

func summarize(survivors []entry) Summary {
	var counts [5][3]int
	for _, e := range survivors {
		counts[CategoryIndex(e.f.Category)][3-SeverityRank(e.f.Severity)]++
	}

	s := Summary{}
	for ci, cat := range Categories {
		for si, sev := range Severities {
			if n := counts[ci][si]; n > 0 {
				s = append(s, SummaryEntry{Category: cat, Severity: sev, Count: n})
			}
		}
	}
	return s
}

// issue is one distinct underlying problem, possibly reported at several
// locations.
type issue struct {
	rep   Finding
	extra int
}

func (a *Aggregator) priorityActions(survivors []entry) []string {
	// Rank by review position rather than input position so that the
	// result is the same whether or not the input was already deduplicated.
	ranked := make([]int, len(survivors))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := survivors[ranked[i]].f, survivors[ranked[j]].f
		ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity)
		if ra != rb {
			return ra > rb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return ranked[i] < ranked[j]
	})

	sim := a.similar()
	var issues []*issue
	for _, idx := range ranked {
		f := survivors[idx].f
		var match *issue
		for _, is := range issues {
			if is.rep.Category == f.Category && sim(is.rep.Message, f.Message) {
				match = is
				break
			}
		}
		if match != nil {
			match.extra++
			continue
		}
		issues = append(issues, &issue{rep: f})
	}

	limit := a.maxActions()
	actions := []string{}
	for _, is := range issues {
		if len(actions) == limit {
			break
		}
		actions = append(actions, formatAction(is))
	}
	return actions
}

func formatAction(is *issue) string {
	f := is.rep
	s := fmt.Sprintf("[%s/%s] %s (%s:%s", f.Severity.Label(), f.Category.Label(), headline(f), f.FilePath, f.Lines)
	if is.extra > 0 {
		s += fmt.Sprintf(", +%d more", is.extra)
	}
	return s + ")"
}

// headline is the title when present, else the first sentence of the
// message, capped at 120 characters.
func headline(f Finding) string {
	if t := strings.TrimSpace(f.Title); t != "" {
		return t
	}
	msg := strings.TrimSpace(f.Message)
	if i := strings.IndexAny(msg, ".\n"); i > 0 {
		msg = msg[:i]
	}
	if r := []rune(msg); len(r) > 120 {
		msg = string(r[:117]) + "..."
	}
	return msg
}
