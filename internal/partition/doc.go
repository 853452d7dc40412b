// Package partition groups an ordered record sequence into sections.
//
// Builder scans the sequence once and fills a Partition: an insertion-ordered
// mapping from section key to members. Section order is the order in which
// each key first appears, so it is a projection of the source sort, never a
// separate sort. Optional index titles are formatted per section and may be
// reordered independently of the sections.
//
// Records without a usable key are skipped by default (SkipInvalid) and
// counted in Result.Skipped; RejectInvalid turns them into a *KeyError.
package partition
