// Package classifier decides whether a conversational exchange is worth
// remembering.
//
// A Model is an L2-regularised logistic regression over sentence embeddings,
// trained with class-balanced sample weights on a labelled corpus. The
// Classifier pairs a Model with the embedder it was trained against and
// turns P(PERSIST | text) into a FLUSH/PERSIST verdict at a configurable
// threshold.
//
// Models are immutable. Retraining produces a new Model, and a running
// process picks it up through a Reloader that swaps the active model
// atomically.
package classifier
