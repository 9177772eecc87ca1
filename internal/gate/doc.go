// Package gate is the Triviality Gate facade.
//
// Process runs one exchange through the whole pipeline:
//
//	text -> classifier -> (PERSIST) category tagger -> (AutoPersist) scrub -> memory store
//
// FLUSH exchanges are never written. A failure anywhere in the pipeline is
// returned to the caller; it is never turned into a FLUSH.
package gate
