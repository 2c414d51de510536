package usecase

import "errors"

// Error taxonomy for the guidance and analytics services. All of these
// are recoverable at the caller; handlers map them to HTTP statuses.
var (
	// ErrTemplateNotFound is returned for template ids unknown to the
	// catalog.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrNoActiveGuidance is returned when a step mutation arrives for a
	// user without an in-progress guidance record.
	ErrNoActiveGuidance = errors.New("no active guidance")

	// ErrUnknownStep is returned when a step id does not belong to the
	// guidance's template. Foreign step ids are rejected, never silently
	// ignored.
	ErrUnknownStep = errors.New("step does not belong to template")

	// ErrDataUnavailable is returned when the record store is unreachable
	// or timed out. Retry policy belongs to the caller.
	ErrDataUnavailable = errors.New("record store unavailable")
)
