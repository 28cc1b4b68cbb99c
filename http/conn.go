package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type connState uint8

const (
	stateAccepted connState = iota
	stateReading
	stateParsed
	stateRouting
	stateHandled
	stateEncoding
	stateWritten
	stateClosed
)

var connStateNames = [...]string{
	stateAccepted: "ACCEPTED",
	stateReading:  "READING",
	stateParsed:   "PARSED",
	stateRouting:  "ROUTING",
	stateHandled:  "HANDLED",
	stateEncoding: "ENCODING",
	stateWritten:  "WRITTEN",
	stateClosed:   "CLOSED",
}

func (s connState) String() string {
	return connStateNames[s]
}

const (
	badRequestBody      = "BAD_REQUEST"
	tooLargeBody        = "REQUEST_TOO_LARGE"
	internalErrorBody   = "INTERNAL_SERVER_ERROR"
	connSpanName        = "minihttp.conn"
	connStateAttribute  = "conn.state"
	connIDAttribute     = "conn.id"
	connRouteAttribute  = "http.route"
	connMethodAttribute = "http.request.method"
)

// ServeConn runs one request/response cycle on conn and closes it. Every
// failure stays contained in this connection.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	routes := s.table()

	start := time.Now()
	connID := newConnID()
	logger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())

	ctx, span := s.inst.tracer.Start(ctx, connSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(connIDAttribute, connID)),
	)
	s.inst.connOpened(ctx)

	state := stateAccepted
	var status uint16

	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("close connection", "error", err)
		} else if state == stateWritten {
			state = stateClosed
		}

		span.SetAttributes(attribute.String(connStateAttribute, state.String()))
		s.inst.connClosed(ctx, status, time.Since(start))
		span.End()
	}()

	fail := func(msg string, err error) {
		logger.Warn(msg, "state", state.String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
	}

	if s.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			fail("set read deadline", err)
			return
		}
	}

	state = stateReading
	raw, err := ReadRequest(conn)
	if err != nil {
		fail("read request", err)
		if errors.Is(err, ErrRequestTooLarge) {
			status = StatusRequestEntityTooLarge
			s.writeStatus(conn, status, tooLargeBody)
		}
		return
	}

	req, err := ParseRequest(raw)
	if err != nil {
		fail("parse request", err)
		status = StatusBadRequest
		s.writeStatus(conn, status, badRequestBody)
		return
	}
	state = stateParsed

	if form := req.FormValues(); form != nil {
		logger.Debug("request body", "form", form)
	}

	state = stateRouting
	method := ParseMethod(req.Method)
	span.SetAttributes(
		attribute.String(connMethodAttribute, req.Method),
		attribute.String(connRouteAttribute, req.Path),
	)

	status = StatusOK
	handler, ok := routes.Resolve(method, req.Path)
	if !ok {
		logger.Info("route not found", "method", method.String(), "path", req.Path)
		handler = NotFoundHandler
		status = StatusNotFound
	}

	body, err := invoke(handler, req)
	if err != nil {
		fail("handler", err)
		status = StatusInternalServerError
		body = internalErrorBody
	}
	state = stateHandled

	state = stateEncoding
	res, err := NewResponse(status, body, req.AcceptsGzip())
	if err != nil {
		fail("encode response", err)
		return
	}

	if _, err := res.WriteTo(conn); err != nil {
		fail("write response", err)
		return
	}
	state = stateWritten

	logger.Debug("served", "method", req.Method, "path", req.Path, "status", status, "gzip", res.Gzipped)
}

// invoke runs handler, converting a panic into an error.
func invoke(handler Handler, req *Request) (body string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()

	return handler(req), nil
}

func (s *Server) writeStatus(conn net.Conn, status uint16, body string) {
	res := &Response{Status: status, Payload: []byte(body)}
	if _, err := res.WriteTo(conn); err != nil {
		s.logger.Debug("write error response", "status", status, "error", err)
	}
}

// newConnID returns a random version 4 UUID string.
func newConnID() string {
	var id [16]byte
	if _, err := rand.Read(id[:]); err != nil {
		return "00000000-0000-0000-0000-000000000000"
	}

	id[6] = (id[6] & 0x0f) | 0x40 // Version 4
	id[8] = (id[8] & 0x3f) | 0x80 // Variant is 10

	var buf [36]byte
	hex.Encode(buf[:], id[:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], id[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], id[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], id[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], id[10:])

	return string(buf[:])
}
