package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode categorizes fabrication errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates an entity is missing a required field.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates no candidate exists for a required aspect.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeFabrication indicates any other failure during craft.
	ErrCodeFabrication ErrorCode = "FABRICATION"

	// ErrCodeStore indicates a store invariant violation (no id, unregistered type).
	ErrCodeStore ErrorCode = "STORE"
)

// Error is the typed error used across the fabrication engine.
// SegmentID and Phase are filled in as the error crosses component boundaries.
type Error struct {
	Code      ErrorCode
	Message   string
	SegmentID uuid.UUID
	Phase     string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.SegmentID != uuid.Nil && e.Phase != "":
		msg = fmt.Sprintf("%s (segment=%s, phase=%s)", msg, e.SegmentID, e.Phase)
	case e.SegmentID != uuid.Nil:
		msg = fmt.Sprintf("%s (segment=%s)", msg, e.SegmentID)
	case e.Phase != "":
		msg = fmt.Sprintf("%s (phase=%s)", msg, e.Phase)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidationError(err error, format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewFabricationError(err error, format string, args ...any) *Error {
	return &Error{Code: ErrCodeFabrication, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewStoreError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeStore, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsValidationError(err error) bool  { return CodeOf(err) == ErrCodeValidation }
func IsNotFoundError(err error) bool    { return CodeOf(err) == ErrCodeNotFound }
func IsFabricationError(err error) bool { return CodeOf(err) == ErrCodeFabrication }
func IsStoreError(err error) bool       { return CodeOf(err) == ErrCodeStore }

// WithPhase attaches segment and craft-phase context to err. Typed errors keep
// their code; anything else becomes a fabrication error.
func WithPhase(err error, segmentID uuid.UUID, phase string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.SegmentID != uuid.Nil && e.Phase != "" {
			return err
		}
		wrapped := *e
		if wrapped.SegmentID == uuid.Nil {
			wrapped.SegmentID = segmentID
		}
		if wrapped.Phase == "" {
			wrapped.Phase = phase
		}
		return &wrapped
	}
	return &Error{
		Code:      ErrCodeFabrication,
		Message:   "craft failed",
		SegmentID: segmentID,
		Phase:     phase,
		Err:       err,
	}
}
