package codec

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUTF8        = errors.New("invalid UTF-8")
	ErrInvalidJSON        = errors.New("invalid JSON")
	ErrMalformedHeader    = errors.New("malformed header")
	ErrMissingDisposition = errors.New("missing Content-Disposition header")
)

// DecodeError reports why a body could not be decoded. Kind is one of the
// package sentinels, so callers can use errors.Is on the returned error.
type DecodeError struct {
	Kind   error
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.Kind == ErrInvalidUTF8 || e.Kind == ErrInvalidJSON {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
