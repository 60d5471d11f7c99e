package httpx

import (
	"strings"

	"dqx0.com/go/verglas/httpx/internal/http1"
)

// Cookie is a cookie sent to the client in a Set-Cookie header.
// Empty string attributes are omitted.
type Cookie struct {
	Key      string
	Value    string
	Domain   string
	Path     string
	Expires  string
	MaxAge   string
	SameSite string
	Secure   bool
	HTTPOnly bool
}

// String renders the Set-Cookie value. Attributes always appear in the
// order Domain, Path, Expires, Max-Age, SameSite, Secure, HttpOnly.
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Key)
	b.WriteByte('=')
	b.WriteString(c.Value)
	attr := func(name, v string) {
		if v != "" {
			b.WriteString("; ")
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	attr("Domain", c.Domain)
	attr("Path", c.Path)
	attr("Expires", c.Expires)
	attr("Max-Age", c.MaxAge)
	attr("SameSite", c.SameSite)
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

// HeaderLine renders the complete "Set-Cookie: ...\r\n" line.
func (c Cookie) HeaderLine() string {
	return http1.SetCookieLine(c.String())
}

// CookieBuilder assembles a Cookie. Key and Value must be set before Build.
type CookieBuilder struct {
	c        Cookie
	hasKey   bool
	hasValue bool
}

func NewCookieBuilder() *CookieBuilder { return &CookieBuilder{} }

func (b *CookieBuilder) Key(key string) *CookieBuilder {
	b.c.Key, b.hasKey = key, true
	return b
}

func (b *CookieBuilder) Value(value string) *CookieBuilder {
	b.c.Value, b.hasValue = value, true
	return b
}

func (b *CookieBuilder) Secure(v bool) *CookieBuilder {
	b.c.Secure = v
	return b
}

func (b *CookieBuilder) HTTPOnly(v bool) *CookieBuilder {
	b.c.HTTPOnly = v
	return b
}

func (b *CookieBuilder) Domain(v string) *CookieBuilder {
	b.c.Domain = v
	return b
}

func (b *CookieBuilder) Path(v string) *CookieBuilder {
	b.c.Path = v
	return b
}

func (b *CookieBuilder) Expires(v string) *CookieBuilder {
	b.c.Expires = v
	return b
}

func (b *CookieBuilder) MaxAge(v string) *CookieBuilder {
	b.c.MaxAge = v
	return b
}

func (b *CookieBuilder) SameSite(v string) *CookieBuilder {
	b.c.SameSite = v
	return b
}

// Build returns the cookie, or an error if Key or Value was never set.
func (b *CookieBuilder) Build() (Cookie, error) {
	if !b.hasKey {
		return Cookie{}, ErrMissingCookieKey
	}
	if !b.hasValue {
		return Cookie{}, ErrMissingCookieValue
	}
	return b.c, nil
}

// MustBuild is like Build but panics on a missing field.
func (b *CookieBuilder) MustBuild() Cookie {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCookieHeader decodes a Cookie request header value. Pairs are
// separated by "; " and split on their first '='; pairs without '=' are
// skipped.
func ParseCookieHeader(v string) []RequestCookie {
	var out []RequestCookie
	for _, pair := range strings.Split(v, "; ") {
		k, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out = append(out, RequestCookie{Key: k, Value: val})
	}
	return out
}
