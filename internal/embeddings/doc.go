// Package embeddings turns exchange text into fixed-dimension sentence vectors.
//
// Providers:
//   - fastembed: local ONNX model (default all-MiniLM-L6-v2, 384 dims, requires cgo)
//   - tei: HuggingFace Text-Embeddings-Inference over HTTP
//   - hashing: deterministic feature-hashing bag of words, offline and used by tests
//
// Every provider handed to the classifier should be wrapped with Guard, which
// rejects degenerate vectors (all zero, NaN, wrong length) for non-empty input.
package embeddings
