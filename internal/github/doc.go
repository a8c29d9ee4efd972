// Package github fetches pull request diffs from GitHub, posts panel
// reviews back as pull request reviews, and verifies and decodes
// pull_request webhooks.
//
// A review is posted as one COMMENT review. Each inline comment is placed
// on the last line of its range on the new side of the diff, with a start
// line for multi-line ranges. Comments outside the diff hunks are listed in
// the review body together with the summary counts and priority actions.
package github
