package core

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can tell "fix your credentials" from
// "try again later" from "your board file is corrupted".
type Kind string

const (
	KindAuthentication    Kind = "authentication"
	KindNotFound          Kind = "not_found"
	KindTransient         Kind = "transient"
	KindBackendResponse   Kind = "backend_response"
	KindMalformedDocument Kind = "malformed_document"
	KindUnknownBackend    Kind = "unknown_backend"
	KindIO                Kind = "io"
)

// Sentinels matching each Kind, usable with errors.Is.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrNotFound          = errors.New("not found")
	ErrTransient         = errors.New("transient failure")
	ErrBackendResponse   = errors.New("unexpected backend response")
	ErrMalformedDocument = errors.New("malformed board document")
	ErrUnknownBackend    = errors.New("unknown backend")
	ErrIO                = errors.New("i/o failure")

	// ErrReadOnly is returned by stores opened without write access.
	ErrReadOnly = errors.New("store is in read-only mode")
)

// kinds fixes the order in which KindOf tests the sentinels.
var kinds = []Kind{
	KindAuthentication,
	KindNotFound,
	KindTransient,
	KindBackendResponse,
	KindMalformedDocument,
	KindUnknownBackend,
	KindIO,
}

var sentinels = map[Kind]error{
	KindAuthentication:    ErrAuthentication,
	KindNotFound:          ErrNotFound,
	KindTransient:         ErrTransient,
	KindBackendResponse:   ErrBackendResponse,
	KindMalformedDocument: ErrMalformedDocument,
	KindUnknownBackend:    ErrUnknownBackend,
	KindIO:                ErrIO,
}

// Error carries a Kind together with the operation and backend that failed.
type Error struct {
	Kind    Kind
	Op      string
	Backend string
	Err     error
}

func (e *Error) Error() string {
	msg := sentinels[e.Kind].Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Backend != "" {
		msg = e.Backend + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError builds an *Error. A nil cause is allowed.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first classified error in err's chain,
// or "" when err is nil or unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, sentinels[k]) {
			return k
		}
	}
	return ""
}

// IsRetryable reports whether re-triggering the sync may succeed unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Hint returns user-facing advice for a Kind.
func Hint(k Kind) string {
	switch k {
	case KindAuthentication:
		return "check your username and access token"
	case KindNotFound:
		return "check the instance, collection, project and team settings"
	case KindTransient:
		return "the backend is unreachable right now, try again later"
	case KindBackendResponse:
		return "the backend answered with data that could not be understood"
	case KindMalformedDocument:
		return "the board file is corrupted; fix or move it and sync again"
	case KindUnknownBackend:
		return "choose one of the registered backends"
	case KindIO:
		return "the board file could not be read or written"
	}
	return ""
}
