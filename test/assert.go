// Package test holds helpers for talking to a server over raw sockets.
package test

import (
	"bytes"
	"compress/gzip"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Response is a response split at the header separator.
type Response struct {
	StatusLine string
	Headers    map[string][]string
	Body       []byte
}

func (res Response) Header(name string) (string, bool) {
	values, ok := res.Headers[strings.ToLower(name)]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// RoundTrip dials addr, writes raw as one request and reads until the
// server closes the connection.
func RoundTrip(t testing.TB, addr string, raw string) Response {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	return Exchange(t, conn, raw)
}

// Exchange writes raw on conn and reads the whole response.
func Exchange(t testing.TB, conn net.Conn, raw string) Response {
	t.Helper()

	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	_, err := io.WriteString(conn, raw)
	require.NoError(t, err)

	data, err := io.ReadAll(conn)
	require.NoError(t, err)

	return SplitResponse(t, data)
}

func SplitResponse(t testing.TB, data []byte) Response {
	t.Helper()

	head, body, found := bytes.Cut(data, []byte("\r\n\r\n"))
	require.True(t, found, "no header separator in %q", data)

	lines := strings.Split(string(head), "\r\n")
	res := Response{
		StatusLine: lines[0],
		Headers:    make(map[string][]string),
		Body:       body,
	}

	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		require.True(t, ok, "malformed header line %q", line)

		key = strings.ToLower(key)
		res.Headers[key] = append(res.Headers[key], strings.TrimSpace(value))
	}

	return res
}

func Gunzip(t testing.TB, data []byte) string {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()

	out, err := io.ReadAll(zr)
	require.NoError(t, err)

	return string(out)
}
