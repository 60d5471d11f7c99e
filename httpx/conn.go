package httpx

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"time"

	"dqx0.com/go/verglas/internal/obs"
)

// conn serves the request/response cycles of one accepted connection.
// Only its own goroutine touches rwc.
type conn struct {
	srv  *Server
	rwc  net.Conn
	id   string
	br   *bufio.Reader
	bw   *bufio.Writer
	done chan struct{}

	// logger carries the connection ID as a field when tagged is set.
	logger obs.Logger
	tagged bool
}

func newConn(srv *Server, rwc net.Conn) *conn {
	c := &conn{
		srv:    srv,
		rwc:    rwc,
		id:     genID(),
		br:     bufio.NewReader(rwc),
		bw:     bufio.NewWriter(rwc),
		done:   make(chan struct{}),
		logger: srv.logger,
	}
	if t, ok := srv.logger.(obs.Tagger); ok {
		c.logger, c.tagged = t.With("conn", c.id), true
	}
	return c
}

func (c *conn) logf(level obs.Level, format string, args ...interface{}) {
	if c.tagged {
		c.logger.Logf(level, format, args...)
		return
	}
	c.logger.Logf(level, "conn %s: "+format, append([]interface{}{c.id}, args...)...)
}

// finished reports whether serve has returned.
func (c *conn) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *conn) serve() {
	defer close(c.done)
	defer c.rwc.Close()
	defer func() {
		if v := recover(); v != nil {
			c.logf(obs.Error, "handler panic: %v", v)
		}
	}()

	c.logf(obs.Info, "connection established with %s", c.rwc.RemoteAddr())
	defer c.logf(obs.Info, "connection closed")

	failures := 0
	for n := 0; ; n++ {
		closeAfter := false
		c.setReadDeadline(n)
		req, err := ReadRequestLimits(c.br, c.srv.limits)
		start := time.Now()

		var res *Response
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				// Peer went away or the transport failed; nothing to answer.
				c.logf(obs.Debug, "read: %v", err)
				return
			}
			failures++
			// The rejected body is still on the wire and must not be read
			// as the next request.
			closeAfter = errors.Is(err, ErrBodyTooLarge)
			c.srv.meter.Counter(obs.MetricParseFailures, 1, obs.L("kind", pe.Kind.String()))
			c.logf(obs.Warn, "parse failure: %v", pe)
			res = Text(500, pe.Error())
		} else {
			failures = 0
			res = c.srv.router.Dispatch(req)
			c.logf(obs.Debug, "%s %s %s -> %d", req.Method, req.URI.Path, req.Version, res.StatusCode)
		}

		if err := c.write(res); err != nil {
			c.logf(obs.Error, "write: %v", err)
			return
		}
		c.srv.meter.Counter(obs.MetricRequests, 1, obs.L("status", strconv.Itoa(res.StatusCode)))
		c.srv.meter.Histogram(obs.MetricRequestDuration, time.Since(start).Seconds())

		if closeAfter || (req != nil && req.WantsClose()) {
			return
		}
		if limit := c.srv.maxParseFailures; limit > 0 && failures >= limit {
			c.logf(obs.Warn, "closing after %d consecutive parse failures", failures)
			return
		}
	}
}

func (c *conn) write(res *Response) error {
	if d := c.srv.writeTimeout; d > 0 {
		_ = c.rwc.SetWriteDeadline(time.Now().Add(d))
	}
	if err := res.write(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}

// setReadDeadline applies ReadTimeout to the first request and IdleTimeout
// (falling back to ReadTimeout) to every later one.
func (c *conn) setReadDeadline(n int) {
	d := c.srv.readTimeout
	if n > 0 && c.srv.idleTimeout > 0 {
		d = c.srv.idleTimeout
	}
	if d > 0 {
		_ = c.rwc.SetReadDeadline(time.Now().Add(d))
	} else {
		_ = c.rwc.SetReadDeadline(time.Time{})
	}
}
