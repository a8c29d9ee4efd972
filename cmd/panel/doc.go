// Panel reviews pull requests with a panel of specialist reviewers and posts
// one consolidated review.
//
// Each specialist (performance, type safety, React/UX, logic and a general
// reviewer) analyzes the diff independently. Their findings are validated,
// deduplicated and ranked into inline comments, a severity summary and a
// short list of priority actions.
//
// Usage:
//
//	panel serve                             # webhook receiver and review API
//	panel review pr https://github.com/o/r/pull/7 --post
//	panel review pr 7                       # resolved against the origin remote
//	panel review local --staged             # review staged changes
//	panel review local --range origin/main..HEAD
//	panel review diff change.patch          # review a unified diff file
//	panel specialists                       # list the specialists
//
// See https://github.com/dshills/panel for full documentation.
package main
