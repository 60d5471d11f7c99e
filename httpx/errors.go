package httpx

import (
	"errors"
	"fmt"
)

// ErrorKind classifies request parse failures.
type ErrorKind int

const (
	KindMalformedRequestLine ErrorKind = iota + 1
	KindUnknownMethod
	KindUnknownVersion
	KindInvalidContentLength
	KindTruncatedBody
	KindInvalidEncoding
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedRequestLine:
		return "malformed request line"
	case KindUnknownMethod:
		return "unknown method"
	case KindUnknownVersion:
		return "unknown version"
	case KindInvalidContentLength:
		return "invalid content length"
	case KindTruncatedBody:
		return "truncated body"
	case KindInvalidEncoding:
		return "invalid encoding"
	default:
		return "unknown error"
	}
}

// ParseError reports why a request could not be parsed. Its text is safe to
// send back to the client.
type ParseError struct {
	Kind ErrorKind
	Msg  string
	// Err is the underlying transport error, if any. It is not part of Error().
	Err error
}

func (e *ParseError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is a ParseError of the same kind, so the Err*
// sentinels below can be used with errors.Is.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func parseErrorf(kind ErrorKind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorKind carried by err, if err is a parse failure.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

var (
	ErrMalformedRequestLine = &ParseError{Kind: KindMalformedRequestLine}
	ErrUnknownMethod        = &ParseError{Kind: KindUnknownMethod}
	ErrUnknownVersion       = &ParseError{Kind: KindUnknownVersion}
	ErrInvalidContentLength = &ParseError{Kind: KindInvalidContentLength}
	ErrTruncatedBody        = &ParseError{Kind: KindTruncatedBody}
	ErrInvalidEncoding      = &ParseError{Kind: KindInvalidEncoding}
)

var (
	ErrMissingStatus      = errors.New("httpx: response status code not set")
	ErrMissingCookieKey   = errors.New("httpx: cookie key not set")
	ErrMissingCookieValue = errors.New("httpx: cookie value not set")
	ErrServerClosed       = errors.New("httpx: server closed")
	ErrNoAddress          = errors.New("httpx: no listen address")

	// ErrBodyTooLarge is wrapped by the parse error for a Content-Length over
	// Limits.MaxBodyBytes. The announced body is left unread on the stream.
	ErrBodyTooLarge = errors.New("httpx: body exceeds limit")
)
