package httpx

import (
	"bufio"
	"bytes"
	"io"

	"dqx0.com/go/verglas/httpx/internal/http1"
)

// Response is what a handler hands back to the connection.
type Response struct {
	StatusCode int
	Body       []byte
	// Cookies never holds two entries with the same Key when filled through
	// AddCookie or ResponseBuilder.
	Cookies []Cookie
}

// Empty returns a 200 response without a body.
func Empty() *Response { return &Response{StatusCode: 200} }

// NotFound returns a 404 response without a body.
func NotFound() *Response { return &Response{StatusCode: 404} }

// InternalServerError returns a 500 response without a body.
func InternalServerError() *Response { return &Response{StatusCode: 500} }

// Text returns a response with the given status and body.
func Text(code int, body string) *Response {
	return &Response{StatusCode: code, Body: []byte(body)}
}

// AddCookie appends c unless a cookie with the same key is already present.
// It reports whether c was added.
func (r *Response) AddCookie(c Cookie) bool {
	for _, have := range r.Cookies {
		if have.Key == c.Key {
			return false
		}
	}
	r.Cookies = append(r.Cookies, c)
	return true
}

// ReasonPhrase maps a status code to the text used on the status line.
// Only 200 and 404 have their own phrase; every other code is rendered as
// "Internal Server Error".
func ReasonPhrase(code int) string {
	switch code {
	case 200:
		return "OK"
	case 404:
		return "Not Found"
	default:
		return "Internal Server Error"
	}
}

// WriteTo serializes r in HTTP/1.1 wire format.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)
	if err := r.write(bw); err != nil {
		return cw.n, err
	}
	err := bw.Flush()
	return cw.n, err
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.Bytes()
}

func (r *Response) write(bw *bufio.Writer) error {
	cookies := make([]string, len(r.Cookies))
	for i, c := range r.Cookies {
		cookies[i] = c.String()
	}
	return http1.WriteResponse(bw, r.StatusCode, ReasonPhrase(r.StatusCode), cookies, r.Body)
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ResponseBuilder assembles a Response. Status must be called before Build.
type ResponseBuilder struct {
	r         Response
	hasStatus bool
}

func NewResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.r.StatusCode, b.hasStatus = code, true
	return b
}

func (b *ResponseBuilder) Body(body []byte) *ResponseBuilder {
	b.r.Body = body
	return b
}

func (b *ResponseBuilder) BodyString(body string) *ResponseBuilder {
	b.r.Body = []byte(body)
	return b
}

// Cookie adds c with the same first-write-wins rule as Response.AddCookie.
func (b *ResponseBuilder) Cookie(c Cookie) *ResponseBuilder {
	b.r.AddCookie(c)
	return b
}

// Build returns the response, or ErrMissingStatus if Status was never called.
func (b *ResponseBuilder) Build() (*Response, error) {
	if !b.hasStatus {
		return nil, ErrMissingStatus
	}
	r := b.r
	r.Cookies = append([]Cookie(nil), b.r.Cookies...)
	return &r, nil
}
