// Package diffctx parses unified diffs into a read-only Context of changed
// files and hunks, and collects local diffs from git.
package diffctx
