// Package orchestrator runs a set of specialists over one diff in parallel
// and aggregates their findings into a single review.
//
// Each specialist runs in its own goroutine on a worker pool shared by all
// runs. A run waits for every specialist or for its run deadline, whichever
// comes first; results that arrive later are dropped. Specialists that fail
// or are cancelled contribute nothing and are reported as notes on the
// review. A run in which every dispatched specialist fails returns an
// [*OrchestrationError] and no review.
//
// The aggregator always sees the findings in dispatch order, so the review
// does not depend on which specialist answered first.
package orchestrator
