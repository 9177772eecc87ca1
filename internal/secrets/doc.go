// Package secrets redacts credentials that users paste into a conversation
// before the exchange is written to long-term memory.
//
// Classification always sees the original text; only the persisted copy is
// scrubbed. Findings record rule ids and offsets, never the matched value.
package secrets
