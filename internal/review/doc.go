// Package review contains the data model and the aggregation step of a
// multi-specialist code review.
//
// A Finding is one piece of feedback from one specialist. The Aggregator
// takes the union of all specialists' findings, in dispatch order, and turns
// it into a single Review: findings are grouped per file, duplicates (same
// category, overlapping lines, equivalent messages) are collapsed to the
// most confident one, and the survivors become inline comments, a
// per-category/per-severity summary and a short list of priority actions.
//
// Message equivalence is decided by Similar, a deterministic token-overlap
// measure; callers may substitute their own Similarity.
//
// Aggregation is pure. Identical input (including order) always yields an
// identical Review.
package review
