package adaptor

import "fmt"

// ErrorCode classifies an error raised while operating on the registry.
// Modeled on store.ErrorCode in the teacher library: one Error type,
// one closed enum, so callers can switch on Code rather than type-assert
// across seven distinct error types.
type ErrorCode int

// ErrorCode values, per spec.md section 7.
const (
	// ErrorBadInput covers a missing required argument: no species, no
	// group, no URL, a nil config.
	ErrorBadInput ErrorCode = iota
	// ErrorType covers a structural mismatch in a decoded configuration
	// document (aliases not a map, adaptors not a list).
	ErrorType
	// ErrorNotFound covers a species/alias that does not resolve to any
	// registered adaptor.
	ErrorNotFound
	// ErrorAlreadyExists covers a duplicate (species, group) registration
	// attempted without a reset.
	ErrorAlreadyExists
	// ErrorBadURL covers a malformed or unsupported-scheme registry URL.
	ErrorBadURL
	// ErrorUnavailableModule covers a group whose adaptor factory is not
	// registered. StructLoader and DatabaseLoader recover it locally
	// (logged, group skipped); URLLoader.LoadAdaptor returns it.
	ErrorUnavailableModule
	// ErrorBackend covers any failure surfaced by the QueryRunner.
	ErrorBackend
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorBadInput:
		return "BadInputError"
	case ErrorType:
		return "TypeError"
	case ErrorNotFound:
		return "NotFoundError"
	case ErrorAlreadyExists:
		return "AlreadyExistsError"
	case ErrorBadURL:
		return "BadUrlError"
	case ErrorUnavailableModule:
		return "UnavailableModuleError"
	case ErrorBackend:
		return "BackendError"
	default:
		return "UnknownError"
	}
}

// Error is the single error implementation used across the registry.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new registry Error with the given code, message and
// optional cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
