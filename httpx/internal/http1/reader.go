package http1

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

var (
	// ErrLineTooLong is returned when one line exceeds MaxLineBytes.
	ErrLineTooLong = errors.New("http1: header line too long")
	// ErrHeaderTooLarge is returned when a header block exceeds MaxHeaderBytes.
	ErrHeaderTooLarge = errors.New("http1: header block too large")
)

// Reader pulls header lines and body bytes off a buffered stream.
type Reader struct {
	BR *bufio.Reader
	// MaxLineBytes caps a single line. Zero means unlimited.
	MaxLineBytes int
	// MaxHeaderBytes caps the request line and all header lines together,
	// line terminators excluded. Zero means unlimited.
	MaxHeaderBytes int
}

// ReadHeaderBlock reads lines up to and excluding the first empty line.
func (r *Reader) ReadHeaderBlock() ([]string, error) {
	var lines []string
	total := 0
	for {
		limit, tooLong := r.lineLimit(), ErrLineTooLong
		if r.MaxHeaderBytes > 0 {
			if rem := r.MaxHeaderBytes - total; limit < 0 || rem < limit {
				limit, tooLong = rem, ErrHeaderTooLarge
			}
		}
		line, err := r.readLine(limit, tooLong)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return lines, nil
		}
		total += len(line)
		lines = append(lines, line)
	}
}

// ReadLine returns one line without its trailing "\r\n" or "\n".
// A stream that ends in the middle of a line yields io.ErrUnexpectedEOF.
func (r *Reader) ReadLine() (string, error) {
	return r.readLine(r.lineLimit(), ErrLineTooLong)
}

func (r *Reader) lineLimit() int {
	if r.MaxLineBytes > 0 {
		return r.MaxLineBytes
	}
	return -1
}

// readLine fails with tooLong once the line holds more than limit bytes.
// A negative limit means none; a final '\r' is not counted.
func (r *Reader) readLine(limit int, tooLong error) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.BR.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == '\n' {
			break
		}
		sb.WriteByte(b)
		if n := sb.Len(); limit >= 0 && n > limit && !(n == limit+1 && b == '\r') {
			return "", tooLong
		}
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}

// ReadBody reads exactly n bytes. A short stream yields io.ErrUnexpectedEOF
// (or io.EOF when nothing at all was read).
func (r *Reader) ReadBody(n int64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.BR, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// SplitHeaderBlock splits an in-memory message into lines and returns those
// preceding the first empty line. A trailing "\r" is stripped from each line.
func SplitHeaderBlock(raw string) []string {
	var lines []string
	for raw != "" {
		var line string
		if i := strings.IndexByte(raw, '\n'); i >= 0 {
			line, raw = raw[:i], raw[i+1:]
		} else {
			line, raw = raw, ""
		}
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return lines
}

// SplitHeader splits a header line on its first colon and trims the value.
// ok is false for lines without a colon.
func SplitHeader(line string) (name, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return line[:i], strings.TrimSpace(line[i+1:]), true
}
