package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindFatal is any failure not covered by a more specific kind.
	KindFatal Kind = iota
	// KindDecode means the uploaded bytes are not a decodable image.
	KindDecode
	// KindOCRUnavailable means the OCR engine could not be started.
	KindOCRUnavailable
	// KindModel means the external analysis call failed.
	KindModel
	// KindBadRequest means the request itself was malformed.
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindOCRUnavailable:
		return "ocr_unavailable"
	case KindModel:
		return "model"
	case KindBadRequest:
		return "bad_request"
	default:
		return "fatal"
	}
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	if k == KindBadRequest {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a classified failure from one pipeline step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds an *Error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Errors that are not, and do not wrap, an
// *Error are KindFatal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindFatal
}
