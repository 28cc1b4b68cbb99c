package http

import "errors"

var (
	ErrMalformedRequest = errors.New("http: malformed request")
	ErrRead             = errors.New("http: read failed")
	ErrRequestTooLarge  = errors.New("http: request too large")
	ErrCompression      = errors.New("http: compression failed")
	ErrServerStarted    = errors.New("http: server already started")
	ErrServerClosed     = errors.New("http: server closed")
)
