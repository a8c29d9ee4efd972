// Package specialist implements the Specialist Client: one focused
// reviewer (performance, type safety, React/UX, logic, other) backed by an
// analysis provider.
//
// Analyze makes a single outbound call. The diff is redacted and truncated,
// the category's instructions and any team rules pack are added to the
// prompt, and the answer is validated against a JSON schema before being
// converted into findings. Failures are reported as *AnalysisError with a
// Kind of timeout, upstream failure or malformed response; retrying is left
// to the caller.
//
// Relevant is the routing predicate. When a diff holds nothing for a
// specialist (say, only Markdown files for the type-safety reviewer),
// Analyze returns an empty result without calling out.
package specialist
