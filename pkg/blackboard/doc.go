// Package blackboard provides the shared scratchpad used by concurrently
// executing plan nodes and protocol phases to exchange intermediate results.
//
// The board is a key/value store with append-only version history: every
// Set records the prior value before replacing it, so the full sequence of
// writes for a key can always be audited after a request completes.
//
// A single mutex guards every operation. This serializes all board access
// across concurrent writers, which makes read-modify-write races impossible.
// Call volumes are low (one write per plan node or protocol phase), so the
// coarse lock is not a throughput concern.
package blackboard
