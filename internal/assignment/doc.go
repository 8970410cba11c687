// Package assignment implements capacity-constrained bill assignment:
// the transactional assignment protocol, its bounded retry controller,
// the advisory capacity cache, and the error taxonomy callers pattern
// match on.
//
// Correctness does not depend on the cache or any in-process lock. The
// protocol re-derives the authoritative assignment count inside every
// transaction, so a user can never end up holding more active bills
// than the workflow policy allows, no matter how stale the cache is or
// how many assignment calls race.
package assignment
