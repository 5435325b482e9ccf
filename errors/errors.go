package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ERROR CODES
// =============================================================================

// Error code constants for structured errors.
const (
	CodeTokenNotFound        = "TOKEN_NOT_FOUND"
	CodeTokenNotVisible      = "TOKEN_NOT_VISIBLE"
	CodeMissingDependency    = "MISSING_DEPENDENCY"
	CodeCircularDependency   = "CIRCULAR_DEPENDENCY"
	CodeInvalidExport        = "INVALID_EXPORT"
	CodeInvalidProvider      = "INVALID_PROVIDER"
	CodeDuplicateProvider    = "DUPLICATE_PROVIDER"
	CodeRegistrySealed       = "REGISTRY_SEALED"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeLifecycleError       = "LIFECYCLE_ERROR"
	CodeConfigError          = "CONFIG_ERROR"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeContainerStarted     = "CONTAINER_STARTED"
	CodeInstantiationFailure = "INSTANTIATION_FAILED"
)

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error represents a structured error with context.
type Error struct {
	Code      string
	Message   string
	Cause     error
	Timestamp time.Time
	Context   map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is interface for Error.
// Compares by error code, allowing matching against sentinel errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Code != "" && e.Code == t.Code
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value

	return e
}

func newError(code, message string, cause error, ctx map[string]any) *Error {
	if ctx == nil {
		ctx = make(map[string]any)
	}

	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   ctx,
	}
}

// =============================================================================
// RESOLUTION ERRORS
// =============================================================================

// ErrTokenNotFound reports a token that no module in the registry provides.
func ErrTokenNotFound(token string) *Error {
	return newError(CodeTokenNotFound,
		"token '"+token+"' is not provided by any module",
		nil, map[string]any{"token": token})
}

// ErrTokenNotVisible reports a token that exists in the registry but cannot be
// seen from the requesting module.
func ErrTokenNotVisible(token, module string) *Error {
	return newError(CodeTokenNotVisible,
		"token '"+token+"' is not visible from module '"+module+"'",
		nil, map[string]any{"token": token, "module": module})
}

// ErrMissingDependency reports a required constructor argument that could not be resolved.
func ErrMissingDependency(provider string, index int, token string, cause error) *Error {
	return newError(CodeMissingDependency,
		fmt.Sprintf("cannot resolve dependency '%s' at index [%d] of provider '%s'", token, index, provider),
		cause, map[string]any{"provider": provider, "index": index, "token": token})
}

// ErrMissingProperty reports a required property dependency that could not be resolved.
func ErrMissingProperty(provider, field, token string, cause error) *Error {
	return newError(CodeMissingDependency,
		fmt.Sprintf("cannot resolve dependency '%s' for property '%s' of provider '%s'", token, field, provider),
		cause, map[string]any{"provider": provider, "property": field, "token": token})
}

// ErrCircularDependency reports a dependency cycle. The chain starts and ends
// with the same token.
func ErrCircularDependency(chain []string) *Error {
	return newError(CodeCircularDependency,
		"circular dependency detected: "+strings.Join(chain, " -> "),
		nil, map[string]any{"chain": chain})
}

// ErrInvalidExport reports a module exporting something it neither owns nor imports.
func ErrInvalidExport(module, export string) *Error {
	return newError(CodeInvalidExport,
		"module '"+module+"' cannot export '"+export+"': it is neither provided nor imported by the module",
		nil, map[string]any{"module": module, "export": export})
}

// ErrInvalidProvider reports a malformed provider definition.
func ErrInvalidProvider(provider string, cause error) *Error {
	return newError(CodeInvalidProvider,
		"invalid provider '"+provider+"'",
		cause, map[string]any{"provider": provider})
}

// ErrInvalidFactory reports a constructor or factory that is not a function.
func ErrInvalidFactory(got string) *Error {
	return newError(CodeInvalidProvider,
		"factory must be a function, got "+got,
		nil, map[string]any{"got": got})
}

// ErrDuplicateProvider reports a token registered twice in the same module.
func ErrDuplicateProvider(module, token string) *Error {
	return newError(CodeDuplicateProvider,
		"provider '"+token+"' is already registered in module '"+module+"'",
		nil, map[string]any{"module": module, "token": token})
}

// ErrRegistrySealed reports a mutation attempted after the registry was built.
func ErrRegistrySealed(operation string) *Error {
	return newError(CodeRegistrySealed,
		"registry is sealed: cannot "+operation+" after build",
		nil, map[string]any{"operation": operation})
}

// ErrTypeMismatch reports a resolved value that cannot be assigned to its target.
func ErrTypeMismatch(target, want, got string) *Error {
	return newError(CodeTypeMismatch,
		fmt.Sprintf("%s expects %s, got %s", target, want, got),
		nil, map[string]any{"target": target, "want": want, "got": got})
}

// ErrLifecycleError creates a lifecycle error.
func ErrLifecycleError(phase string, cause error) *Error {
	return newError(CodeLifecycleError, "lifecycle error during "+phase,
		cause, map[string]any{"phase": phase})
}

// ErrContainerStarted reports a second Start on the same graph.
func ErrContainerStarted() *Error {
	return newError(CodeContainerStarted, "container already started", nil, nil)
}

// ErrConfigError creates a config error.
func ErrConfigError(message string, cause error) *Error {
	return newError(CodeConfigError, message, cause, nil)
}

// ErrValidationError creates a validation error.
func ErrValidationError(field string, cause error) *Error {
	return newError(CodeValidationError,
		fmt.Sprintf("validation error for field '%s'", field),
		cause, map[string]any{"field": field})
}

// Chain returns the token chain carried by a circular dependency error.
func Chain(err error) []string {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == CodeCircularDependency {
			chain, _ := e.Context["chain"].([]string)
			return chain
		}
		err = e.Cause
	}

	return nil
}

// =============================================================================
// PROVIDER ERROR
// =============================================================================

// ProviderError wraps a failure raised by a provider's constructor or hooks.
type ProviderError struct {
	Module    string
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (module %s): %s: %v", e.Provider, e.Module, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}

	return (e.Provider == "" || t.Provider == "" || e.Provider == t.Provider) &&
		(e.Operation == "" || t.Operation == "" || e.Operation == t.Operation)
}

// NewProviderError creates a new provider error.
func NewProviderError(module, provider, operation string, err error) *ProviderError {
	return &ProviderError{
		Module:    module,
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}

// =============================================================================
// STANDARD ERRORS PACKAGE INTEGRATION
// =============================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// =============================================================================
// SENTINEL ERRORS (for use with Is)
// =============================================================================

var (
	ErrTokenNotFoundSentinel      = &Error{Code: CodeTokenNotFound}
	ErrTokenNotVisibleSentinel    = &Error{Code: CodeTokenNotVisible}
	ErrMissingDependencySentinel  = &Error{Code: CodeMissingDependency}
	ErrCircularDependencySentinel = &Error{Code: CodeCircularDependency}
	ErrInvalidExportSentinel      = &Error{Code: CodeInvalidExport}
	ErrInvalidProviderSentinel    = &Error{Code: CodeInvalidProvider}
	ErrDuplicateProviderSentinel  = &Error{Code: CodeDuplicateProvider}
	ErrRegistrySealedSentinel     = &Error{Code: CodeRegistrySealed}
	ErrTypeMismatchSentinel       = &Error{Code: CodeTypeMismatch}
	ErrLifecycleErrorSentinel     = &Error{Code: CodeLifecycleError}
	ErrContainerStartedSentinel   = &Error{Code: CodeContainerStarted}
	ErrConfigErrorSentinel        = &Error{Code: CodeConfigError}
	ErrValidationErrorSentinel    = &Error{Code: CodeValidationError}
)

// Causes carried by validation and provider errors.
var (
	ErrNilModule     = New("module definition is nil")
	ErrNilProvider   = New("provider is nil")
	ErrForeignModule = New("module is not registered in this registry")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsTokenNotFound checks if the error is a token not found error.
func IsTokenNotFound(err error) bool {
	return Is(err, ErrTokenNotFoundSentinel)
}

// IsTokenNotVisible checks if the error is a token not visible error.
func IsTokenNotVisible(err error) bool {
	return Is(err, ErrTokenNotVisibleSentinel)
}

// IsMissingDependency checks if the error is a missing dependency error.
func IsMissingDependency(err error) bool {
	return Is(err, ErrMissingDependencySentinel)
}

// IsCircularDependency checks if the error is a circular dependency error.
func IsCircularDependency(err error) bool {
	return Is(err, ErrCircularDependencySentinel)
}

// IsInvalidExport checks if the error is an invalid export error.
func IsInvalidExport(err error) bool {
	return Is(err, ErrInvalidExportSentinel)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return Is(err, ErrValidationErrorSentinel)
}
