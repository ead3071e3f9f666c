package worker

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error class reported to the job dispatcher.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindAcquisition     Kind = "acquisition_error"
	KindModelLoad       Kind = "model_load_error"
	KindInference       Kind = "inference_error"
	KindPayloadTooLarge Kind = "payload_too_large"
)

// Error is a structured job failure. None of these are retried inside the
// core; retry policy belongs to the dispatcher.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a structured failure of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error class; unclassified errors count as inference
// failures so nothing is ever swallowed as success.
func KindOf(err error) Kind {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Kind
	}
	return KindInference
}
