package httpx

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"dqx0.com/go/verglas/internal/obs"
)

type wireResponse struct {
	Code    int
	Reason  string
	Headers []string
	Body    string
}

// readResponse reads one response written by Response.WriteTo.
func readResponse(t *testing.T, br *bufio.Reader) (wireResponse, error) {
	t.Helper()
	var res wireResponse
	status, err := br.ReadString('\n')
	if err != nil {
		return res, err
	}
	parts := strings.SplitN(strings.TrimSuffix(status, "\r\n"), " ", 3)
	if len(parts) != 3 || parts[0] != "HTTP/1.1" {
		t.Fatalf("bad status line %q", status)
	}
	res.Code, _ = strconv.Atoi(parts[1])
	res.Reason = parts[2]
	length := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return res, err
		}
		line = strings.TrimSuffix(line, "\r\n")
		if line == "" {
			break
		}
		res.Headers = append(res.Headers, line)
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			length, _ = strconv.Atoi(v)
		}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(br, body); err != nil {
		return res, err
	}
	res.Body = string(body)
	return res, nil
}

type recordingMeter struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (m *recordingMeter) Counter(name string, value float64, labels ...obs.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	key := name
	for _, l := range labels {
		key += "," + l.Key + "=" + l.Value
	}
	m.counters[key] += value
}

func (m *recordingMeter) Histogram(name string, value float64, labels ...obs.Label) {}

func (m *recordingMeter) get(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func testRouter() *Router {
	return NewRouterBuilder().
		Get("/", func(*Request) *Response { return Text(200, "root") }).
		Post("/echo", func(r *Request) *Response { return Text(200, r.BodyString()) }).
		Get("/panic", func(*Request) *Response { panic("boom") }).
		Get("/cookie", func(*Request) *Response {
			res := Empty()
			res.AddCookie(Cookie{Key: "session", Value: "abc", HTTPOnly: true})
			return res
		}).
		Build()
}

// pipeConn starts serving one end of a net.Pipe and returns the other end.
func pipeConn(t *testing.T, opts ...Option) (net.Conn, *bufio.Reader, *conn) {
	t.Helper()
	s := NewServer(nil, testRouter(), opts...)
	server, client := net.Pipe()
	c := newConn(s, server)
	go c.serve()
	t.Cleanup(func() { client.Close() })
	return client, bufio.NewReader(client), c
}

func send(t *testing.T, w io.Writer, raw string) {
	t.Helper()
	if _, err := io.WriteString(w, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// sendAsync is for goroutines, where a failed write must not call t.Fatal.
func sendAsync(w io.Writer, raw string) { _, _ = io.WriteString(w, raw) }

func waitDone(t *testing.T, c *conn) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection handler did not finish")
	}
}

func TestConn_KeepAliveThenClose(t *testing.T) {
	client, br, c := pipeConn(t)

	for i := 0; i < 3; i++ {
		go sendAsync(client, "GET / HTTP/1.1\r\n\r\n")
		res, err := readResponse(t, br)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if res.Code != 200 || res.Body != "root" {
			t.Fatalf("request %d: %+v", i, res)
		}
	}

	go sendAsync(client, "POST /echo HTTP/1.1\r\nContent-Length: 4\r\nConnection: close\r\n\r\nping")
	res, err := readResponse(t, br)
	if err != nil || res.Body != "ping" {
		t.Fatalf("close request: %+v %v", res, err)
	}
	waitDone(t, c)
	if _, err := br.ReadByte(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestConn_ParseFailureKeepsConnection(t *testing.T) {
	m := &recordingMeter{}
	client, br, c := pipeConn(t, WithMeter(m))

	go sendAsync(client, "BREW /pot HTTP/1.1\r\n\r\n")
	res, err := readResponse(t, br)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Code != 500 || res.Reason != "Internal Server Error" || res.Body != `unknown method: "BREW"` {
		t.Fatalf("got %+v", res)
	}

	go sendAsync(client, "GET / HTTP/1.1\r\n\r\n")
	res, err = readResponse(t, br)
	if err != nil || res.Code != 200 {
		t.Fatalf("follow-up: %+v %v", res, err)
	}

	client.Close()
	waitDone(t, c)
	if got := m.get(obs.MetricParseFailures + ",kind=unknown method"); got != 1 {
		t.Fatalf("parse failure counter=%v", got)
	}
	if got := m.get(obs.MetricRequests + ",status=200"); got != 1 {
		t.Fatalf("200 counter=%v", got)
	}
	if got := m.get(obs.MetricRequests + ",status=500"); got != 1 {
		t.Fatalf("500 counter=%v", got)
	}
}

func TestConn_MaxParseFailures(t *testing.T) {
	client, br, c := pipeConn(t, WithMaxParseFailures(2))
	for i := 0; i < 2; i++ {
		go sendAsync(client, "GET / HTTP/9\r\n\r\n")
		if res, err := readResponse(t, br); err != nil || res.Code != 500 {
			t.Fatalf("failure %d: %+v %v", i, res, err)
		}
	}
	waitDone(t, c)
}

func TestConn_PeerDisconnect(t *testing.T) {
	client, _, c := pipeConn(t)
	go sendAsync(client, "GET / HT")
	time.Sleep(10 * time.Millisecond)
	client.Close()
	waitDone(t, c)
}

func TestConn_HandlerPanicClosesConnection(t *testing.T) {
	client, br, c := pipeConn(t)
	go sendAsync(client, "GET /panic HTTP/1.1\r\n\r\n")
	waitDone(t, c)
	if _, err := br.ReadByte(); err == nil {
		t.Fatal("expected closed connection after panic")
	}
}

func TestConn_Cookie(t *testing.T) {
	client, br, _ := pipeConn(t)
	go sendAsync(client, "GET /cookie HTTP/1.1\r\nConnection: close\r\n\r\n")
	res, err := readResponse(t, br)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"Content-Length: 0", "Set-Cookie: session=abc; HttpOnly"}
	if strings.Join(res.Headers, "|") != strings.Join(want, "|") {
		t.Fatalf("headers=%q", res.Headers)
	}
}

func TestConn_ReadTimeout(t *testing.T) {
	_, _, c := pipeConn(t, WithReadTimeout(50*time.Millisecond))
	waitDone(t, c)
}

func TestConn_BodyOverLimitClosesConnection(t *testing.T) {
	client, br, c := pipeConn(t, WithLimits(Limits{MaxBodyBytes: 4}))
	// The announced body is itself a valid request and must not be served.
	go sendAsync(client, "POST /echo HTTP/1.1\r\nContent-Length: 24\r\n\r\nGET /cookie HTTP/1.1\r\n\r\n")

	res, err := readResponse(t, br)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Code != 500 || res.Body != "invalid content length: 24 exceeds limit of 4 bytes" {
		t.Fatalf("got %+v", res)
	}
	waitDone(t, c)
	if _, err := br.ReadByte(); err == nil {
		t.Fatal("body of the rejected request was read as another request")
	}
}

func TestConn_BodyWithinLimitKeepsConnection(t *testing.T) {
	client, br, c := pipeConn(t, WithLimits(Limits{MaxBodyBytes: 4}))
	go sendAsync(client, "POST /echo HTTP/1.1\r\nContent-Length: 4\r\n\r\nping")
	if res, err := readResponse(t, br); err != nil || res.Body != "ping" {
		t.Fatalf("first: %+v %v", res, err)
	}
	go sendAsync(client, "GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	if res, err := readResponse(t, br); err != nil || res.Body != "root" {
		t.Fatalf("second: %+v %v", res, err)
	}
	waitDone(t, c)
}

func TestConn_IdleTimeoutAfterFirstRequest(t *testing.T) {
	client, br, c := pipeConn(t, WithReadTimeout(10*time.Second), WithIdleTimeout(50*time.Millisecond))
	go sendAsync(client, "GET / HTTP/1.1\r\n\r\n")
	if res, err := readResponse(t, br); err != nil || res.Code != 200 {
		t.Fatalf("first: %+v %v", res, err)
	}
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("idle connection outlived IdleTimeout")
	}
}

func TestConn_ReadTimeoutCoversIdleWhenUnset(t *testing.T) {
	client, br, c := pipeConn(t, WithReadTimeout(50*time.Millisecond))
	go sendAsync(client, "GET / HTTP/1.1\r\n\r\n")
	if res, err := readResponse(t, br); err != nil || res.Code != 200 {
		t.Fatalf("first: %+v %v", res, err)
	}
	waitDone(t, c)
}

func TestConn_WriteTimeout(t *testing.T) {
	client, _, c := pipeConn(t, WithWriteTimeout(50*time.Millisecond))
	// Nobody reads the response, so the write can only end by deadline.
	go sendAsync(client, "GET / HTTP/1.1\r\n\r\n")
	waitDone(t, c)
}

func TestConn_LogsTaggedWithConnID(t *testing.T) {
	var buf bytes.Buffer
	client, br, c := pipeConn(t, WithLogger(obs.NewZeroLogger(&buf, "json", obs.Debug)))
	go sendAsync(client, "GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	if _, err := readResponse(t, br); err != nil {
		t.Fatalf("read: %v", err)
	}
	waitDone(t, c)

	dec := json.NewDecoder(&buf)
	lines := 0
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decode: %v", err)
		}
		lines++
		if line["conn"] != c.id {
			t.Fatalf("line without conn=%s: %v", c.id, line)
		}
		if msg, _ := line["message"].(string); strings.HasPrefix(msg, "conn ") {
			t.Fatalf("conn id repeated in message: %q", msg)
		}
	}
	if lines < 2 {
		t.Fatalf("got %d log lines", lines)
	}
}

func TestConn_PlainLoggerPrefixesConnID(t *testing.T) {
	var lines []string
	var mu sync.Mutex
	rec := loggerFunc(func(_ obs.Level, format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, args...))
	})
	client, br, c := pipeConn(t, WithLogger(rec))
	go sendAsync(client, "GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	if _, err := readResponse(t, br); err != nil {
		t.Fatalf("read: %v", err)
	}
	waitDone(t, c)
	mu.Lock()
	defer mu.Unlock()
	for _, l := range lines {
		if !strings.HasPrefix(l, "conn "+c.id+": ") {
			t.Fatalf("line %q lacks conn prefix", l)
		}
	}
}

type loggerFunc func(level obs.Level, format string, args ...interface{})

func (f loggerFunc) Logf(level obs.Level, format string, args ...interface{}) { f(level, format, args...) }
