package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of the
// innermost AppError when there is one
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the first coded error in the chain.
// Unknown errors are internal errors.
func GetCode(err error) string {
	for err != nil {
		switch e := err.(type) {
		case *AppError:
			if e.Code != "" {
				return e.Code
			}
		case *StageError:
			return CodeComputationError
		}
		err = stderrors.Unwrap(err)
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeComputationError = "COMPUTATION_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string, cause error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Cause:   cause,
	}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// FieldViolation names one rejected input field
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// InputError is the INVALID_INPUT error carrying every violated field
type InputError struct {
	*AppError
	Violations []FieldViolation
}

func (e *InputError) Unwrap() error {
	return e.AppError
}

// NewInputError joins violations into a single INVALID_INPUT error
func NewInputError(violations []FieldViolation, cause error) *InputError {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.Field+" "+v.Reason)
	}
	return &InputError{
		AppError: &AppError{
			Code:    CodeInvalidInput,
			Message: "invalid application: " + strings.Join(parts, "; "),
			Cause:   cause,
		},
		Violations: violations,
	}
}

// StageError reports a defect inside a scoring stage, tagged with the stage
// and the application it was evaluating
type StageError struct {
	Stage         string
	ApplicationID string
	Cause         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed for application %s: %v", e.Stage, e.ApplicationID, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// ComputationError builds a StageError
func ComputationError(stage, applicationID string, cause error) *StageError {
	return &StageError{Stage: stage, ApplicationID: applicationID, Cause: cause}
}

// AsStageError extracts a StageError from the chain
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if stderrors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}

// AsInputError extracts an InputError from the chain
func AsInputError(err error) (*InputError, bool) {
	var inputErr *InputError
	if stderrors.As(err, &inputErr) {
		return inputErr, true
	}
	return nil, false
}
