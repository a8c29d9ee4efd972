// Package output formats aggregated reviews for display or machine
// consumption.
//
// Four formats are supported:
//   - text: styled terminal output (default)
//   - json: the full structured report
//   - markdown: a summary table and collapsible sections per severity
//   - sarif: SARIF v2.1.0 for code scanning upload
//
// Use [GetWriter] to obtain a [Writer] for a format string, or
// [WriteReport] to pick a destination as well.
package output
