package domain

import "errors"

// Error taxonomy shared by every layer. Only ErrDevice is allowed to block
// the start of an interview; the rest are absorbed at component boundaries.
var (
	// ErrDevice is returned when camera or microphone permission is missing or
	// the device stream cannot be opened
	ErrDevice = errors.New("camera or microphone unavailable")

	// ErrUnsupportedCapability is returned when speech synthesis or recognition
	// is not available for the current session
	ErrUnsupportedCapability = errors.New("speech capability not supported")

	// ErrEvaluationFailure marks a remote scoring call that failed or returned
	// an unusable payload
	ErrEvaluationFailure = errors.New("answer evaluation failed")

	// ErrInvalidCatalog marks a question catalog that returned an unusable shape
	ErrInvalidCatalog = errors.New("question catalog is unusable")

	ErrInvalidTransition = errors.New("invalid interview state transition")
	ErrSessionTerminated = errors.New("interview session already terminated")
	ErrNoQuestions       = errors.New("topic has no questions")
	ErrNotFound          = errors.New("not found")
)
