package relay

// ValidationError wraps the single rule ValidateAndNormalize tripped on,
// letting the HTTP layer distinguish a 400 from any other pipeline
// failure without inspecting error message text.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }
