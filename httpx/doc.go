// Package httpx is a small HTTP/1.1 server engine: it parses requests off a
// byte stream, dispatches them to handlers by exact path and method, and
// writes the handler's response back in wire format.
//
// Highlights
//   - Parsing: request line, headers (exact names, last value wins),
//     query attributes and cookies kept in order, Content-Length bodies.
//     Malformed input yields a *ParseError with a closed ErrorKind.
//   - Responses: status line, Content-Length, Set-Cookie lines with a
//     fixed attribute order, at most one cookie per key.
//   - Routing: a flat routing table scanned in registration order; the
//     first exact match wins, otherwise 404.
//   - Connections: keep-alive until the client sends "Connection: close"
//     or goes away; unparsable requests are answered with 500 and the
//     connection stays open.
//   - Server: one goroutine per connection, optional connection cap,
//     accept rate, timeouts and graceful shutdown; logging/metrics hooks.
//
// Not supported: TLS, HTTP/2 and HTTP/3, chunked transfer-encoding,
// pipelining, streaming bodies and pattern routing.
//
// Quick start:
//
//	router := httpx.NewRouterBuilder().
//	    Get("/", func(r *httpx.Request) *httpx.Response {
//	        return httpx.Text(200, "hello")
//	    }).
//	    Build()
//	httpx.NewServer([]string{"127.0.0.1:8080"}, router).Run()
package httpx
