// Package diff computes edit scripts between generations of ordered data.
//
// Flat diffs one sequence of comparable symbols. Nested diffs a two-level
// structure (sections of item identities) by running Flat over section keys
// and then over the items of every section present in both generations.
//
// Index conventions follow batch-update list APIs:
//   - deletions index the old generation
//   - insertions, updates and move targets index the new generation
//
// Consumers apply deletions before insertions within one batch.
package diff
