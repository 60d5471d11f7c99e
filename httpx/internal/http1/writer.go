package http1

import (
	"bufio"
	"fmt"
	"strings"
)

// WriteResponse writes a status line, Content-Length, one Set-Cookie line per
// cookie value, the blank line and then the body. The caller flushes bw.
func WriteResponse(bw *bufio.Writer, status int, reason string, cookies []string, body []byte) error {
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", status, reason); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Content-Length: %d\r\n", len(body)); err != nil {
		return err
	}
	for _, c := range cookies {
		if _, err := bw.WriteString(SetCookieLine(c)); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// SetCookieLine renders a full Set-Cookie header line, CRLF included.
func SetCookieLine(v string) string {
	return "Set-Cookie: " + sanitizeHeaderValue(v) + "\r\n"
}

func sanitizeHeaderValue(v string) string {
	if v == "" {
		return v
	}
	// Remove CR/LF and other control chars except HTAB
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' || c == '\n' || c == 0x7f {
			continue
		}
		if c < 0x20 && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
