package httpx

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"dqx0.com/go/verglas/httpx/internal/http1"
)

// Request represents a parsed HTTP/1.x request.
//
// Headers are matched by exact, case-sensitive name; a repeated header keeps
// its last value. Body is nil unless a positive Content-Length was given.
type Request struct {
	Method  Method
	URI     URI
	Version Version
	Headers map[string]string
	Body    []byte
	Cookies []RequestCookie
}

// Header returns the value of the named header.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[name]
	return v, ok
}

// HasHeader reports whether the named header was sent.
func (r *Request) HasHeader(name string) bool {
	_, ok := r.Headers[name]
	return ok
}

// HasBody reports whether the request carried a body.
func (r *Request) HasBody() bool { return r.Body != nil }

// BodyString returns the body as text, or "" when there is none.
func (r *Request) BodyString() string { return string(r.Body) }

// Cookie returns the value of the first request cookie named key.
func (r *Request) Cookie(key string) (string, bool) {
	for _, c := range r.Cookies {
		if c.Key == key {
			return c.Value, true
		}
	}
	return "", false
}

// WantsClose reports whether the client asked to close the connection
// after this request.
func (r *Request) WantsClose() bool {
	v, ok := r.Headers["Connection"]
	return ok && v == "close"
}

// Limits bounds what ReadRequestLimits accepts. Zero fields mean unlimited.
type Limits struct {
	// MaxHeaderBytes caps the request line and header lines together,
	// line terminators excluded.
	MaxHeaderBytes int
	// MaxBodyBytes caps Content-Length. A larger value is rejected with an
	// error matching ErrBodyTooLarge before any body byte is read.
	MaxBodyBytes int64
}

// ParseRequest parses a complete request held in memory.
//
// The body is taken as the last Content-Length bytes of raw, so raw must hold
// the whole message. Use ReadRequest for data arriving on a stream.
func ParseRequest(raw string) (*Request, error) {
	r, err := parseHead(http1.SplitHeaderBlock(raw))
	if err != nil {
		return nil, err
	}
	n, err := contentLength(r.Headers, 0)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return r, nil
	}
	if n > int64(len(raw)) {
		return nil, parseErrorf(KindTruncatedBody, "want %d bytes, have %d", n, len(raw))
	}
	if err := r.setBody([]byte(raw[int64(len(raw))-n:])); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadRequest reads one request from br. Errors from the stream itself are
// returned unchanged; malformed input yields a *ParseError.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	return ReadRequestLimits(br, Limits{})
}

// ReadRequestLimits is ReadRequest with size bounds applied.
func ReadRequestLimits(br *bufio.Reader, lim Limits) (*Request, error) {
	rd := &http1.Reader{BR: br, MaxHeaderBytes: lim.MaxHeaderBytes}
	lines, err := rd.ReadHeaderBlock()
	if err != nil {
		return nil, err
	}
	r, err := parseHead(lines)
	if err != nil {
		return nil, err
	}
	n, err := contentLength(r.Headers, lim.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return r, nil
	}
	body, err := rd.ReadBody(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ParseError{Kind: KindTruncatedBody, Msg: "want " + strconv.FormatInt(n, 10) + " bytes", Err: err}
		}
		return nil, err
	}
	if err := r.setBody(body); err != nil {
		return nil, err
	}
	return r, nil
}

func parseHead(lines []string) (*Request, error) {
	if len(lines) == 0 {
		return nil, parseErrorf(KindMalformedRequestLine, "empty request")
	}
	tokens := strings.Fields(lines[0])
	if len(tokens) < 1 {
		return nil, parseErrorf(KindMalformedRequestLine, "no method found")
	}
	if len(tokens) < 2 {
		return nil, parseErrorf(KindMalformedRequestLine, "no uri found")
	}
	if len(tokens) < 3 {
		return nil, parseErrorf(KindMalformedRequestLine, "no http version found")
	}
	method, err := ParseMethod(tokens[0])
	if err != nil {
		return nil, err
	}
	uri, err := ParseURI(tokens[1])
	if err != nil {
		return nil, err
	}
	version, err := ParseVersion(tokens[2])
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		if name, value, ok := http1.SplitHeader(line); ok {
			headers[name] = value
		}
	}

	r := &Request{
		Method:  method,
		URI:     uri,
		Version: version,
		Headers: headers,
	}
	if v, ok := headers["Cookie"]; ok {
		r.Cookies = ParseCookieHeader(v)
	}
	return r, nil
}

// contentLength returns 0 when the header is absent.
func contentLength(h map[string]string, limit int64) (int64, error) {
	v, ok := h["Content-Length"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, parseErrorf(KindInvalidContentLength, "%q", v)
	}
	if limit > 0 && n > limit {
		pe := parseErrorf(KindInvalidContentLength, "%d exceeds limit of %d bytes", n, limit)
		pe.Err = ErrBodyTooLarge
		return 0, pe
	}
	return n, nil
}

func (r *Request) setBody(b []byte) error {
	if !utf8.Valid(b) {
		return parseErrorf(KindInvalidEncoding, "body is not valid UTF-8")
	}
	r.Body = b
	return nil
}
