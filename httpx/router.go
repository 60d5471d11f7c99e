package httpx

// Handler answers a single request.
type Handler interface {
	ServeHTTP(*Request) *Response
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(*Request) *Response

func (f HandlerFunc) ServeHTTP(r *Request) *Response {
	return f(r)
}

// Route binds a handler to an exact path and method.
type Route struct {
	Path    string
	Method  Method
	Handler Handler
}

// Router dispatches requests to routes in registration order. It is never
// modified after Build and is safe for concurrent use.
type Router struct {
	routes []Route
}

// RouterBuilder collects routes for a Router. Registering the same path and
// method twice is allowed; the earlier route wins.
type RouterBuilder struct {
	routes []Route
}

func NewRouterBuilder() *RouterBuilder { return &RouterBuilder{} }

func (b *RouterBuilder) Route(rt Route) *RouterBuilder {
	b.routes = append(b.routes, rt)
	return b
}

func (b *RouterBuilder) Handle(method Method, path string, h Handler) *RouterBuilder {
	return b.Route(Route{Path: path, Method: method, Handler: h})
}

func (b *RouterBuilder) HandleFunc(method Method, path string, f func(*Request) *Response) *RouterBuilder {
	return b.Handle(method, path, HandlerFunc(f))
}

func (b *RouterBuilder) Get(path string, f func(*Request) *Response) *RouterBuilder {
	return b.HandleFunc(MethodGet, path, f)
}

func (b *RouterBuilder) Head(path string, f func(*Request) *Response) *RouterBuilder {
	return b.HandleFunc(MethodHead, path, f)
}

func (b *RouterBuilder) Post(path string, f func(*Request) *Response) *RouterBuilder {
	return b.HandleFunc(MethodPost, path, f)
}

func (b *RouterBuilder) Put(path string, f func(*Request) *Response) *RouterBuilder {
	return b.HandleFunc(MethodPut, path, f)
}

func (b *RouterBuilder) Delete(path string, f func(*Request) *Response) *RouterBuilder {
	return b.HandleFunc(MethodDelete, path, f)
}

// Build returns a Router holding a copy of the registered routes.
func (b *RouterBuilder) Build() *Router {
	return &Router{routes: append([]Route(nil), b.routes...)}
}

// Dispatch runs the first route whose path and method equal the request's.
// Paths are compared byte for byte. Without a match the result is NotFound.
func (rt *Router) Dispatch(r *Request) *Response {
	for i := range rt.routes {
		route := &rt.routes[i]
		if route.Path != r.URI.Path || route.Method != r.Method {
			continue
		}
		if res := route.Handler.ServeHTTP(r); res != nil {
			return res
		}
		return InternalServerError()
	}
	return NotFound()
}

// Len returns the number of registered routes.
func (rt *Router) Len() int { return len(rt.routes) }

// Routes returns a copy of the routing table.
func (rt *Router) Routes() []Route {
	return append([]Route(nil), rt.routes...)
}
