package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freekieb7/minihttp/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serveConn runs one connection over net.Pipe and returns the response.
func serveConn(t *testing.T, s *Server, raw string) test.Response {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeConn(context.Background(), serverConn)
	}()

	res := test.Exchange(t, clientConn, raw)
	<-done

	return res
}

// startServer serves s on a loopback listener until the test ends.
func startServer(t *testing.T, s *Server) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, listener)
	}()

	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-errCh, ErrServerClosed)

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		assert.NoError(t, s.Shutdown(shutdownCtx))
	})

	return listener.Addr().String()
}

func TestServeConn_Hello(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))

	res := serveConn(t, s, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")

	assert.Equal(t, "HTTP/1.1 200 OK", res.StatusLine)
	assert.Equal(t, []byte("HELLO"), res.Body)
	assert.Equal(t, []string{"5"}, res.Headers["content-length"])
	assert.NotContains(t, res.Headers, "content-encoding")
}

func TestServeConn_Gzip(t *testing.T) {
	page := strings.Repeat("<li>item</li>", 100)

	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/list", body(page))

	res := serveConn(t, s, "GET /list HTTP/1.1\r\nHost: x\r\nAccept-Encoding: gzip, deflate\r\n\r\n")

	assert.Equal(t, "HTTP/1.1 200 OK", res.StatusLine)
	v, ok := res.Header("Content-Encoding")
	require.True(t, ok)
	assert.Equal(t, "gzip", v)
	assert.Equal(t, page, test.Gunzip(t, res.Body))
}

func TestServeConn_RoutingExactness(t *testing.T) {
	var getCalls, postCalls int

	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/home", func(req *Request) string {
		getCalls++
		return "GET HOME"
	})
	s.Router.POST("/home", func(req *Request) string {
		postCalls++
		return "POST HOME HANDLED"
	})

	res := serveConn(t, s, "POST /home HTTP/1.1\r\nHost: x\r\n\r\nname=value")
	assert.Equal(t, "POST HOME HANDLED", string(res.Body))
	assert.Equal(t, 0, getCalls)
	assert.Equal(t, 1, postCalls)

	res = serveConn(t, s, "DELETE /home HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 404 Not Found", res.StatusLine)
	assert.Equal(t, 0, getCalls)
}

func TestServeConn_UnknownMethodDefaultsToGet(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/home", func(req *Request) string {
		return "GET HANDLER saw " + req.Method
	})

	res := serveConn(t, s, "PUT /home HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 200 OK", res.StatusLine)
	assert.Equal(t, "GET HANDLER saw PUT", string(res.Body))
}

func TestServeConn_NotFound(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))

	res := serveConn(t, s, "GET /missing HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 404 Not Found", res.StatusLine)
	assert.Equal(t, "NOT_FOUND", test.Gunzip(t, res.Body))
}

func TestServeConn_Malformed(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))

	for _, raw := range []string{
		"GET /\r\n\r\n",
		"GET / HTTP/1.1\r\nno colon here\r\n\r\n",
		"GET / HTTP/1.1\r\nHost: x",
	} {
		res := serveConn(t, s, raw)
		assert.Equal(t, "HTTP/1.1 400 Bad Request", res.StatusLine, raw)
		assert.Equal(t, "BAD_REQUEST", string(res.Body))
	}
}

func TestServeConn_HandlerPanic(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/boom", func(req *Request) string {
		panic("boom")
	})

	res := serveConn(t, s, "GET /boom HTTP/1.1\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", res.StatusLine)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", string(res.Body))
}

func TestServeConn_RequestTooLarge(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))

	// Every byte is consumed: full chunks up to the cap, then one more.
	raw := "GET / HTTP/1.1\r\n\r\n" + strings.Repeat("a", MaxRequestSize+1-len("GET / HTTP/1.1\r\n\r\n"))

	res := serveConn(t, s, raw)
	assert.Equal(t, "HTTP/1.1 413 Request Entity Too Large", res.StatusLine)
	assert.Equal(t, "REQUEST_TOO_LARGE", string(res.Body))
}

func TestServeConn_ReadTimeout(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()), WithReadTimeout(50*time.Millisecond))

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeConn(context.Background(), serverConn)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not dropped after the read deadline")
	}

	data, err := io.ReadAll(clientConn)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestServe_NotFoundContainment(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))
	addr := startServer(t, s)

	res := test.RoundTrip(t, addr, "GET /nope HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 404 Not Found", res.StatusLine)

	res = test.RoundTrip(t, addr, "garbage\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 400 Bad Request", res.StatusLine)

	for i := 0; i < 3; i++ {
		res = test.RoundTrip(t, addr, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
		assert.Equal(t, "HTTP/1.1 200 OK", res.StatusLine)
		assert.Equal(t, "HELLO", string(res.Body))
	}
}

func TestServe_ConcurrentIndependence(t *testing.T) {
	if testing.Short() {
		t.Skip("slow handler sleeps 5s")
	}

	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/sleep", func(req *Request) string {
		time.Sleep(5 * time.Second)
		return ""
	})
	s.Router.GET("/fast", body("FAST"))
	addr := startServer(t, s)

	slowDone := make(chan test.Response, 1)
	go func() {
		slowDone <- test.RoundTrip(t, addr, "GET /sleep HTTP/1.1\r\nHost: x\r\n\r\n")
	}()

	// Give the slow request time to reach its handler.
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	res := test.RoundTrip(t, addr, "GET /fast HTTP/1.1\r\nHost: x\r\n\r\n")
	elapsed := time.Since(start)

	assert.Equal(t, "FAST", string(res.Body))
	assert.Less(t, elapsed, time.Second)

	slow := <-slowDone
	assert.Equal(t, "HTTP/1.1 200 OK", slow.StatusLine)
	assert.Equal(t, []string{"0"}, slow.Headers["content-length"])
}

func TestServe_NetHTTPClient(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))
	s.Router.POST("/home", func(req *Request) string {
		if req.Body == nil {
			return "no body"
		}
		return "got " + *req.Body
	})
	addr := startServer(t, s)

	client := &nethttp.Client{
		Transport: otelhttp.NewTransport(&nethttp.Transport{DisableKeepAlives: true}),
		Timeout:   5 * time.Second,
	}

	// The transport asks for gzip itself and decompresses transparently.
	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.True(t, resp.Uncompressed)
	assert.Equal(t, "HELLO", string(got))

	resp, err = client.Post("http://"+addr+"/home", "application/x-www-form-urlencoded", strings.NewReader("a=1&b=2"))
	require.NoError(t, err)
	got, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "got a=1&b=2", string(got))

	resp, err = client.Get("http://" + addr + "/missing")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestServe_MaxConns(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 4)

	s := NewServer("test", WithLogger(discardLogger()), WithMaxConns(1))
	s.Router.GET("/block", func(req *Request) string {
		entered <- struct{}{}
		<-release
		return "done"
	})
	addr := startServer(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := test.RoundTrip(t, addr, "GET /block HTTP/1.1\r\n\r\n")
			assert.Equal(t, "done", string(res.Body))
		}()
	}

	<-entered
	select {
	case <-entered:
		t.Fatal("second connection served while the first held the only slot")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 1, s.limiter.inUse())

	close(release)
	wg.Wait()
}

// flakyListener returns an error from the first failures calls to Accept.
type flakyListener struct {
	net.Listener

	mu       sync.Mutex
	failures int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	if l.failures > 0 {
		l.failures--
		l.mu.Unlock()
		return nil, errors.New("accept: too many open files")
	}
	l.mu.Unlock()

	return l.Listener.Accept()
}

func TestServe_AcceptErrorsDoNotStopLoop(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))

	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	listener := &flakyListener{Listener: inner, failures: 3}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, listener)
	}()

	res := test.RoundTrip(t, inner.Addr().String(), "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 200 OK", res.StatusLine)
	assert.Equal(t, "HELLO", string(res.Body))

	listener.mu.Lock()
	assert.Zero(t, listener.failures)
	listener.mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-errCh, ErrServerClosed)
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestServe_SecondCallClosesListener(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/", body("HELLO"))

	addr := startServer(t, s)
	assert.Equal(t, "HELLO", string(test.RoundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n").Body))

	second, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Serve(context.Background(), second), ErrServerStarted)

	_, err = second.Accept()
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestRegisterAfterStart(t *testing.T) {
	s := NewServer("test", WithLogger(discardLogger()))
	require.NoError(t, s.Register(MethodGet, "/", body("HELLO")))

	addr := startServer(t, s)
	assert.Equal(t, "HELLO", string(test.RoundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n").Body))

	err := s.Register(MethodGet, "/late", body("LATE"))
	assert.ErrorIs(t, err, ErrServerStarted)

	res := test.RoundTrip(t, addr, "GET /late HTTP/1.1\r\n\r\n")
	assert.Equal(t, "HTTP/1.1 404 Not Found", res.StatusLine)
}

func TestListenAndServeBindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	s := NewServer("test", WithLogger(discardLogger()))
	err = s.ListenAndServe(context.Background(), taken.Addr().String())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrServerClosed))
}

func TestShutdownWaitsForConnections(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	s := NewServer("test", WithLogger(discardLogger()))
	s.Router.GET("/slow", func(req *Request) string {
		close(entered)
		<-release
		return "finished"
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(context.Background(), listener)
	}()

	resCh := make(chan test.Response, 1)
	go func() {
		resCh <- test.RoundTrip(t, listener.Addr().String(), "GET /slow HTTP/1.1\r\n\r\n")
	}()
	<-entered

	expired, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(expired), context.DeadlineExceeded)
	assert.ErrorIs(t, <-errCh, ErrServerClosed)

	close(release)
	assert.Equal(t, "finished", string((<-resCh).Body))
	assert.NoError(t, s.Shutdown(context.Background()))

	assert.ErrorIs(t, s.Serve(context.Background(), listener), ErrServerClosed)
}

func BenchmarkServeConn(b *testing.B) {
	s := NewServer("bench", WithLogger(discardLogger()))
	s.Router.GET("/", body("OK"))
	raw := "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serverConn, clientConn := net.Pipe()
		go s.ServeConn(context.Background(), serverConn)

		if _, err := io.WriteString(clientConn, raw); err != nil {
			b.Fatalf("write error: %v", err)
		}
		if _, err := io.Copy(io.Discard, clientConn); err != nil {
			b.Fatalf("read error: %v", err)
		}
		clientConn.Close()
	}
}
