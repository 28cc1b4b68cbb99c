package http

// Router collects routes during startup. It is not safe for concurrent use;
// call Routes to obtain the table shared with connections.
type Router struct {
	routes     map[RouteKey]Handler
	Middleware []Middleware
}

func NewRouter() Router {
	return Router{
		routes: make(map[RouteKey]Handler),
	}
}

func (router *Router) GET(path string, handler Handler, middleware ...Middleware) {
	router.Register(MethodGet, path, handler, middleware...)
}

func (router *Router) HEAD(path string, handler Handler, middleware ...Middleware) {
	router.Register(MethodHead, path, handler, middleware...)
}

func (router *Router) POST(path string, handler Handler, middleware ...Middleware) {
	router.Register(MethodPost, path, handler, middleware...)
}

func (router *Router) PATCH(path string, handler Handler, middleware ...Middleware) {
	router.Register(MethodPatch, path, handler, middleware...)
}

func (router *Router) DELETE(path string, handler Handler, middleware ...Middleware) {
	router.Register(MethodDelete, path, handler, middleware...)
}

// Any registers a handler served for every method lacking its own entry on path.
func (router *Router) Any(path string, handler Handler, middleware ...Middleware) {
	router.Register(MethodAny, path, handler, middleware...)
}

// Register inserts or overwrites the handler for the exact (method, path) pair.
func (router *Router) Register(method Method, path string, handler Handler, middleware ...Middleware) {
	if router.routes == nil {
		router.routes = make(map[RouteKey]Handler)
	}

	for _, middleware := range middleware {
		handler = middleware(handler)
	}

	router.routes[RouteKey{Method: method, Path: path}] = handler
}

// Routes freezes the registered routes into an immutable table. Router-wide
// middleware is applied to every handler at this point.
func (router *Router) Routes() *Routes {
	table := make(map[RouteKey]Handler, len(router.routes))
	for key, handler := range router.routes {
		for _, middleware := range router.Middleware {
			handler = middleware(handler)
		}
		table[key] = handler
	}

	return &Routes{table: table}
}

// Routes is the read-only route table. It is safe for concurrent use.
type Routes struct {
	table map[RouteKey]Handler
}

// Resolve looks up the exact (method, path) pair, then the MethodAny entry
// for path. Paths are compared byte for byte.
func (routes *Routes) Resolve(method Method, path string) (Handler, bool) {
	if handler, ok := routes.table[RouteKey{Method: method, Path: path}]; ok {
		return handler, true
	}

	if method != MethodAny {
		if handler, ok := routes.table[RouteKey{Method: MethodAny, Path: path}]; ok {
			return handler, true
		}
	}

	return nil, false
}

func (routes *Routes) Len() int {
	return len(routes.table)
}
