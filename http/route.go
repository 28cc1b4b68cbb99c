package http

type RouteKey struct {
	Method Method
	Path   string
}

const notFoundBody = "NOT_FOUND"

// NotFoundHandler answers requests that resolve to no route. The connection
// handler pairs it with a 404 status line.
var NotFoundHandler Handler = func(req *Request) string {
	return notFoundBody
}
