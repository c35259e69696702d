package engine

import "fmt"

// notLoadedError signals that the session is not ready (failed or still
// loading) so generation endpoints can answer 503.
type notLoadedError struct{ state State }

func (e notLoadedError) Error() string { return "model not loaded (state: " + string(e.state) + ")" }

// IsNotLoaded reports whether err indicates the session is not ready.
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}

// unsupportedModeError signals a caller error: the variant does not wire the
// requested operation shape.
type unsupportedModeError struct{ mode, variant string }

func (e unsupportedModeError) Error() string {
	return "mode " + e.mode + " not supported by variant " + e.variant
}

// IsUnsupportedMode reports whether err indicates an operation the variant
// does not support.
func IsUnsupportedMode(err error) bool {
	_, ok := err.(unsupportedModeError)
	return ok
}

// invalidRequestError signals malformed request content discovered inside the
// engine (e.g., too many input images). It never affects session state.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest constructs an invalidRequestError.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err is a request validation failure.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}

// dependencyUnavailableError signals a missing runtime dependency (e.g., a
// caption model compiled out of this binary) so the HTTP layer can answer 503.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime
// dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}

// exhaustedError is the terminal loader error after every candidate failed.
// Only the final candidate's failure is carried; the full attempt list stays
// on the engine for diagnostics.
type exhaustedError struct {
	attempts int
	last     error
}

func (e exhaustedError) Error() string {
	return fmt.Sprintf("all %d backend candidates failed to load: %v", e.attempts, e.last)
}

func (e exhaustedError) Unwrap() error { return e.last }

// IsExhausted reports whether err is the terminal all-candidates-failed error.
func IsExhausted(err error) bool {
	_, ok := err.(exhaustedError)
	return ok
}
