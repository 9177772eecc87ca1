package classifier

import "errors"

var (
	// ErrInvalidInput indicates blank text or an out-of-range threshold.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable indicates no trained model could be loaded or built.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrModelCorrupted indicates a model artifact that exists but cannot be decoded.
	ErrModelCorrupted = errors.New("model artifact corrupted")

	// ErrInsufficientData indicates a training set missing one of the classes.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrDimensionMismatch indicates an embedding whose size differs from the model's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
