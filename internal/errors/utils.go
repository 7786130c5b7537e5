package errors

import (
	"errors"
	"fmt"
	"maps"
)

// Wrap wraps an error with additional context, creating a GreeterError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *GreeterError {
	if err == nil {
		return nil
	}

	var ge *GreeterError
	if errors.As(err, &ge) {
		return &GreeterError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       ge,
			Context:     maps.Clone(ge.Context),
			Session:     ge.Session,
			FilePath:    ge.FilePath,
			Recoverable: ge.Recoverable,
		}
	}

	return &GreeterError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeProtocol,
	}
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *GreeterError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapProtocol wraps an error as a bridge protocol error
func WrapProtocol(err error, code, message string) *GreeterError {
	return Wrap(err, ErrorTypeProtocol, code, message)
}

// WrapNetwork wraps an error as a network error
func WrapNetwork(err error, code, message string) *GreeterError {
	return Wrap(err, ErrorTypeNetwork, code, message)
}

// FormatError renders an error for CLI output, expanding suggestions when present.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ee *EnhancedError
	if errors.As(err, &ee) {
		if ee.OriginalError == nil {
			return ee.Error()
		}
		return FormatSuggestions(fmt.Sprintf("%s: %v", ee.Title, ee.OriginalError), ee.Suggestions)
	}

	var ge *GreeterError
	if errors.As(err, &ge) {
		return fmt.Sprintf("%s error: %s", ge.Type, ge.Error())
	}

	return err.Error()
}
