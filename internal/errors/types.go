package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeProtocol   ErrorType = "protocol"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeInternal   ErrorType = "internal"
)

// GreeterError is a structured error type with context.
type GreeterError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Session     string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *GreeterError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Session != "" {
		parts = append(parts, "session:"+e.Session)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *GreeterError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code.
func (e *GreeterError) Is(target error) bool {
	var t *GreeterError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *GreeterError) WithContext(key string, value interface{}) *GreeterError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithSession attaches the bridge session the error occurred in.
func (e *GreeterError) WithSession(id string) *GreeterError {
	e.Session = id

	return e
}

// WithFile attaches a file path.
func (e *GreeterError) WithFile(path string) *GreeterError {
	e.FilePath = path

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *GreeterError {
	return &GreeterError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewProtocolError creates a bridge protocol error. Protocol errors are
// always recoverable: the offending frame is dropped and the session goes on.
func NewProtocolError(code, message string, cause error) *GreeterError {
	return &GreeterError{
		Type:        ErrorTypeProtocol,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewRenderError creates a render error.
func NewRenderError(code, message string, cause error) *GreeterError {
	return &GreeterError{
		Type:        ErrorTypeRender,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *GreeterError {
	return &GreeterError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *GreeterError {
	return &GreeterError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ge *GreeterError
	if errors.As(err, &ge) {
		return ge.Recoverable
	}

	return false
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// HasCode reports whether err wraps a GreeterError with the given code.
func HasCode(err error, code string) bool {
	var ge *GreeterError
	return errors.As(err, &ge) && ge.Code == code
}

func hasType(err error, t ErrorType) bool {
	var ge *GreeterError
	if errors.As(err, &ge) {
		return ge.Type == t
	}

	return false
}

// Logger is the subset of the logging interface the handler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler logs errors at a level chosen from their type.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error with appropriate logging.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ge *GreeterError
	if !errors.As(err, &ge) {
		h.logger.Error(ctx, err, "Unexpected error")
		return
	}

	fields := []interface{}{"type", ge.Type, "code", ge.Code}
	if ge.Session != "" {
		fields = append(fields, "session", ge.Session)
	}
	for k, v := range ge.Context {
		fields = append(fields, k, v)
	}

	if ge.Recoverable {
		h.logger.Warn(ctx, ge, "Recoverable error", fields...)
		return
	}
	h.logger.Error(ctx, ge, "Error occurred", fields...)
}
