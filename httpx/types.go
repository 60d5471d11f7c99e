package httpx

import "strings"

// Method is a request method token as defined in RFC 2616 section 5.1.1.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// ParseMethod matches tok exactly against the supported methods.
// Matching is case-sensitive: "get" is not a method.
func ParseMethod(tok string) (Method, error) {
	switch m := Method(tok); m {
	case MethodGet, MethodHead, MethodPost, MethodPut,
		MethodDelete, MethodConnect, MethodOptions, MethodTrace:
		return m, nil
	}
	return "", parseErrorf(KindUnknownMethod, "%q", tok)
}

func (m Method) String() string { return string(m) }

// Version is the protocol version from the request line.
type Version string

const (
	HTTP10 Version = "HTTP/1.0"
	HTTP11 Version = "HTTP/1.1"
)

// ParseVersion accepts only "HTTP/1.0" and "HTTP/1.1".
func ParseVersion(tok string) (Version, error) {
	switch v := Version(tok); v {
	case HTTP10, HTTP11:
		return v, nil
	}
	return "", parseErrorf(KindUnknownVersion, "%q", tok)
}

func (v Version) String() string { return string(v) }

// Attribute is one key/value pair of a query string.
type Attribute struct {
	Key   string
	Value string
}

// URI is a request target split into its path and query attributes.
// Attributes keep their order of appearance, duplicates included.
type URI struct {
	Path       string
	Attributes []Attribute
}

// ParseURI splits tok on the first '?'. The query is split on '&' and each
// pair on its first '='; pairs without '=' are dropped. Nothing is
// percent-decoded.
func ParseURI(tok string) (URI, error) {
	path, query, hasQuery := strings.Cut(tok, "?")
	u := URI{Path: path}
	if !hasQuery {
		return u, nil
	}
	for _, pair := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		u.Attributes = append(u.Attributes, Attribute{Key: k, Value: v})
	}
	return u, nil
}

// Attribute returns the value of the first attribute named key.
func (u URI) Attribute(key string) (string, bool) {
	for _, a := range u.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (u URI) String() string {
	if len(u.Attributes) == 0 {
		return u.Path
	}
	var b strings.Builder
	b.WriteString(u.Path)
	for i, a := range u.Attributes {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value)
	}
	return b.String()
}

// RequestCookie is one key/value pair from a Cookie request header.
type RequestCookie struct {
	Key   string
	Value string
}
