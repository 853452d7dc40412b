// Package queryir provides an abstract query intermediate representation (IR)
// for reading ordered, filtered record sequences.
//
// QueryIR is the abstraction boundary between the controller's configuration
// (predicates, sort terms, search predicate) and the store backend:
//
//	[controller config] → [Query IR] → [SQL Backend]  (querysql)
//	                                 → [in-memory]    (Match / CompareBy)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement Query or Predicate interfaces.
//
// This enables:
//   - Exhaustive type switches in backends
//   - Compile-time safety against external extensions
//
// ORDERING:
//
// Every Select is ordered. Sort terms apply in order and the record id is the
// final tiebreaker, so a sectioned view built from the result is stable
// across reads. The sectioning engine requires the first sort term to be the
// section key path.
package queryir
