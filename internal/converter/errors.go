package converter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
)

// ErrNotImplemented is returned by directions a converter deliberately does
// not support.
var ErrNotImplemented = errors.New("conversion not implemented")

// RequestProcessError carries every problem found while converting one
// inbound resource.
type RequestProcessError struct {
	Messages []string
}

func (e *RequestProcessError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// ConversionError reports domain data that cannot be represented in FHIR,
// typically a required relationship that is missing.
type ConversionError struct {
	Relation string
	Message  string
}

func (e *ConversionError) Error() string { return e.Message }

// Unwrap lets callers treat a ConversionError as a single-message
// RequestProcessError.
func (e *ConversionError) Unwrap() error {
	return &RequestProcessError{Messages: []string{e.Message}}
}

// UnsupportedReferenceTypeError is returned when a record kind has no
// attribute backing the requested reference mode.
type UnsupportedReferenceTypeError struct {
	Kind imis.Kind
	Mode ReferenceType
}

func (e *UnsupportedReferenceTypeError) Error() string {
	return fmt.Sprintf("reference type %s is not supported for %s", e.Mode, e.Kind)
}

// AttachmentError reports a document that failed the MIME allow-list or the
// hash check.
type AttachmentError struct {
	Title   string
	Message string
}

func (e *AttachmentError) Error() string { return e.Message }

// Errors accumulates validation messages across independent field builders.
// The zero value is ready to use.
type Errors struct {
	messages []string
}

// Require records msg when ok is false and reports ok.
func (e *Errors) Require(ok bool, msg string) bool {
	if !ok {
		e.messages = append(e.messages, msg)
	}
	return ok
}

// Add records a message unconditionally.
func (e *Errors) Add(format string, args ...any) {
	e.messages = append(e.messages, fmt.Sprintf(format, args...))
}

// Merge appends the messages of err, or err's text when it is not a
// RequestProcessError.
func (e *Errors) Merge(err error) {
	if err == nil {
		return
	}
	var rpe *RequestProcessError
	if errors.As(err, &rpe) {
		e.messages = append(e.messages, rpe.Messages...)
		return
	}
	e.messages = append(e.messages, err.Error())
}

// Len returns the number of recorded messages.
func (e *Errors) Len() int { return len(e.messages) }

// Check returns a RequestProcessError holding every recorded message, or nil.
func (e *Errors) Check() error {
	if len(e.messages) == 0 {
		return nil
	}
	out := make([]string, len(e.messages))
	copy(out, e.messages)
	return &RequestProcessError{Messages: out}
}
