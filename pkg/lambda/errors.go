package lambda

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common adapter error types
var (
	ErrInvalidEnvelope = errors.New("envelope must be an object or absent")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidRecord   = errors.New("invalid batch record")
	ErrEmptyBatch      = errors.New("batch contained no records")
)

// ClassificationError is returned when an envelope is present but matches none
// of the known invocation shapes. It is a caller contract violation and is
// never retried.
type ClassificationError struct {
	Function string
}

func (e *ClassificationError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %v", e.Function, ErrInvalidEnvelope)
	}
	return ErrInvalidEnvelope.Error()
}

func (e *ClassificationError) Unwrap() error {
	return ErrInvalidEnvelope
}

// PayloadError reports a payload that could not be decoded into the business
// function's input type
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidPayload, e.Err)
}

func (e *PayloadError) Unwrap() []error {
	return []error{ErrInvalidPayload, e.Err}
}

// StatusCode maps malformed payloads to a client error
func (e *PayloadError) StatusCode() int {
	return http.StatusBadRequest
}

// StatusError is a business error carrying the HTTP status a gateway caller
// should see
type StatusError struct {
	Code int
	Err  error
}

// NewStatusError creates a new StatusError
func NewStatusError(code int, err error) *StatusError {
	return &StatusError{Code: code, Err: err}
}

// Errorf creates a StatusError with a formatted message
func Errorf(code int, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Code)
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code attached to the error
func (e *StatusError) StatusCode() int {
	return e.Code
}

// RecordError is the failure of a single batch record
type RecordError struct {
	Index     int
	MessageID string
	Err       error
}

func (e *RecordError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("record %d (%s): %v", e.Index, e.MessageID, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// AggregateBatchError is returned only when every record of a batch failed.
// Its message joins the messages of the individual failures in input order.
type AggregateBatchError struct {
	Failures []*RecordError
}

func (e *AggregateBatchError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("batch processing failed: %v", ErrEmptyBatch)
	}

	messages := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		messages = append(messages, failure.Err.Error())
	}
	return "batch processing failed: " + strings.Join(messages, ", ")
}

func (e *AggregateBatchError) Unwrap() []error {
	if len(e.Failures) == 0 {
		return []error{ErrEmptyBatch}
	}

	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		errs = append(errs, failure)
	}
	return errs
}

// IsInvalidEnvelope returns true if the error is a classification failure
func IsInvalidEnvelope(err error) bool {
	return errors.Is(err, ErrInvalidEnvelope)
}

// StatusCodeOf extracts an HTTP status code from anywhere in the error chain,
// falling back to 500
func StatusCodeOf(err error) int {
	var coder interface{ StatusCode() int }
	if errors.As(err, &coder) {
		if code := coder.StatusCode(); code > 0 {
			return code
		}
	}
	return http.StatusInternalServerError
}
