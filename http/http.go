package http

const (
	DefaultAddr    = "0.0.0.0:7878"
	ReadChunkSize  = 1024            // 1kB
	MaxRequestSize = 1 * 1024 * 1024 // 1MB
)

var (
	crlf              = []byte("\r\n")
	protocolHttp11    = []byte("HTTP/1.1")
	headerLength      = []byte("Content-Length: ")
	headerEncodingGz  = []byte("Content-Encoding: gzip\r\n")
	headerKeyEncoding = "accept-encoding"
)

// Handler produces the response body for a parsed request. Handlers are
// registered once and shared by every connection.
type Handler func(req *Request) string

type Method uint8

const (
	MethodAny Method = iota
	MethodGet
	MethodPost
	MethodHead
	MethodDelete
	MethodPatch
)

var methodNames = [...]string{
	MethodAny:    "ANY",
	MethodGet:    "GET",
	MethodPost:   "POST",
	MethodHead:   "HEAD",
	MethodDelete: "DELETE",
	MethodPatch:  "PATCH",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "UNKNOWN"
}

// ParseMethod maps a request-line token to a Method. Tokens outside the
// enumerated set resolve as MethodGet.
func ParseMethod(token string) Method {
	switch token {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "HEAD":
		return MethodHead
	case "DELETE":
		return MethodDelete
	case "PATCH":
		return MethodPatch
	}
	return MethodGet
}
