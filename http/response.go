package http

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
)

type Response struct {
	Status  uint16
	Payload []byte
	Gzipped bool
}

// NewResponse encodes body for the wire, compressing it when gz is set.
func NewResponse(status uint16, body string, gz bool) (*Response, error) {
	payload, err := EncodeBody(body, gz)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status:  status,
		Payload: payload,
		Gzipped: gz,
	}, nil
}

// EncodeBody returns body as bytes, or as a finished gzip stream at best
// compression when gz is set.
func EncodeBody(body string, gz bool) ([]byte, error) {
	if !gz {
		return []byte(body), nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	if _, err := io.WriteString(zw, body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}

	return buf.Bytes(), nil
}

// WriteTo serializes the status line, Content-Encoding (gzip only),
// Content-Length and payload in a single write.
func (res *Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Grow(64 + len(res.Payload))

	buf.Write(protocolHttp11)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(int(res.Status)))
	buf.WriteByte(' ')
	buf.WriteString(StatusText(res.Status))
	buf.Write(crlf)

	if res.Gzipped {
		buf.Write(headerEncodingGz)
	}

	buf.Write(headerLength)
	buf.WriteString(strconv.Itoa(len(res.Payload)))
	buf.Write(crlf)
	buf.Write(crlf)

	buf.Write(res.Payload)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
