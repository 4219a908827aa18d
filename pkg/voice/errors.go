package voice

import "fmt"

// ValidationError reports a synthesis parameter outside its permitted range.
// Out-of-range values are rejected, never clamped — clamping would silently
// change the requested output.
type ValidationError struct {
	// Field names the offending parameter ("speed", "pitch", "amplitude",
	// "gap", or "text").
	Field string

	// Min and Max are the permitted bounds. A negative Max means the field
	// has no upper bound.
	Min, Max int

	// Got is the received value.
	Got int
}

func (e *ValidationError) Error() string {
	if e.Max < 0 {
		return fmt.Sprintf("voice: %s %d is out of range (must be >= %d)", e.Field, e.Got, e.Min)
	}
	return fmt.Sprintf("voice: %s %d is out of range [%d, %d]", e.Field, e.Got, e.Min, e.Max)
}

// NotFoundError reports an unknown voice preset id at resolve time. It is
// recoverable — callers may fall back to the default voice.
type NotFoundError struct {
	// ID is the requested preset id.
	ID string

	// Suggestion is the closest known id by string similarity, or empty when
	// nothing is remotely close.
	Suggestion string
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("voice: preset %q not found (did you mean %q?)", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("voice: preset %q not found", e.ID)
}
