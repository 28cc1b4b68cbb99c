package http

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

type Request struct {
	Method  string
	Path    string
	Version string
	Headers []Header

	// Body is the first line after the header separator, nil when the
	// request carries nothing past it.
	Body *string
}

// ReadRequest reads one request off r in ReadChunkSize chunks. A zero-byte
// read, io.EOF or a short read ends the request; there is no
// Content-Length framing.
func ReadRequest(r io.Reader) ([]byte, error) {
	data := make([]byte, 0, ReadChunkSize)
	buf := make([]byte, ReadChunkSize)

	for {
		n, err := r.Read(buf)
		data = append(data, buf[:n]...)

		if len(data) > MaxRequestSize {
			return nil, ErrRequestTooLarge
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}

		if n == 0 || n < ReadChunkSize {
			break
		}
	}

	return data, nil
}

// ParseRequest builds a Request from the raw bytes of one request. Invalid
// UTF-8 is replaced with U+FFFD before splitting.
func ParseRequest(raw []byte) (*Request, error) {
	lines := strings.Split(strings.ToValidUTF8(string(raw), "\uFFFD"), "\r\n")

	parts := strings.Split(lines[0], " ")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, lines[0])
	}

	req := Request{
		Method:  parts[0],
		Path:    parts[1],
		Version: parts[2],
		Headers: make([]Header, 0, len(lines)),
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			end = i
			break
		}

		header, ok := parseHeader(lines[i])
		if !ok {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedRequest, lines[i])
		}
		req.Headers = append(req.Headers, header)
	}
	if end < 0 {
		return nil, fmt.Errorf("%w: missing header separator", ErrMalformedRequest)
	}

	rest := lines[end+1:]
	if len(rest) > 1 || (len(rest) == 1 && rest[0] != "") {
		body := rest[0]
		req.Body = &body
	}

	return &req, nil
}

// HeaderValue returns the first header whose key matches name, ignoring case.
func (req *Request) HeaderValue(name string) (string, bool) {
	for _, h := range req.Headers {
		if strings.EqualFold(h.Key, name) {
			return h.Value, true
		}
	}
	return "", false
}

func (req *Request) AcceptsGzip() bool {
	for _, h := range req.Headers {
		if strings.EqualFold(h.Key, headerKeyEncoding) && strings.Contains(h.Value, "gzip") {
			return true
		}
	}
	return false
}

// FormValues splits the body on '&'. The pairs are not decoded.
func (req *Request) FormValues() []string {
	if req.Body == nil || *req.Body == "" {
		return nil
	}
	return strings.Split(*req.Body, "&")
}
