package httpcore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/protond/internal/arena"
	"github.com/momentics/protond/internal/httpcore"
)

func TestParseNeedsMoreUntilHeaderTerminator(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	status, err := httpcore.Parse([]byte("GET /hello HTTP/1.1\r\nHost: x\r\n"), &req, a)
	require.NoError(t, err)
	require.Equal(t, httpcore.NeedMore, status)
}

func TestParseSimpleGet(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	status, err := httpcore.Parse([]byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"), &req, a)
	require.NoError(t, err)
	require.Equal(t, httpcore.OK, status)
	require.Equal(t, httpcore.MethodGET, req.Method)
	require.Equal(t, httpcore.Version11, req.Version)
	require.Equal(t, "/hello", req.Path)
	require.False(t, req.HasQuery)

	v, ok := req.Header("host")
	require.True(t, ok)
	require.Equal(t, "x", v)
}

func TestParseQueryStringSplit(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	status, err := httpcore.Parse([]byte("GET /search?q=go&x=1 HTTP/1.1\r\n\r\n"), &req, a)
	require.NoError(t, err)
	require.Equal(t, httpcore.OK, status)
	require.Equal(t, "/search", req.Path)
	require.True(t, req.HasQuery)
	require.Equal(t, "q=go&x=1", req.Query)
}

func TestParseQueryStringAbsentIsNotEmptyString(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	_, err := httpcore.Parse([]byte("GET / HTTP/1.1\r\n\r\n"), &req, a)
	require.NoError(t, err)
	require.False(t, req.HasQuery)
}

func TestParseHeaderWithEmptyValuePreserved(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	_, err := httpcore.Parse([]byte("GET / HTTP/1.1\r\nX-Empty:\r\n\r\n"), &req, a)
	require.NoError(t, err)
	v, ok := req.Header("X-Empty")
	require.True(t, ok)
	require.Equal(t, "", v)
}

func TestParseHeaderOWSTrimmed(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	_, err := httpcore.Parse([]byte("GET / HTTP/1.1\r\nX-Foo: \t bar \t \r\n\r\n"), &req, a)
	require.NoError(t, err)
	v, ok := req.Header("X-Foo")
	require.True(t, ok)
	require.Equal(t, "bar", v)
}

func TestParseUnknownMethodIsParseError(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	status, err := httpcore.Parse([]byte("WRONG / HTTP/1.1\r\n\r\n"), &req, a)
	require.Error(t, err)
	require.Equal(t, httpcore.ParseErr, status)
}

func TestParseUnknownVersionIsParseError(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request

	status, err := httpcore.Parse([]byte("GET / HTTP/2.0\r\n\r\n"), &req, a)
	require.Error(t, err)
	require.Equal(t, httpcore.ParseErr, status)
}

func TestParseIdempotentOnRepeatedCalls(t *testing.T) {
	a := arena.New(4096)
	data := []byte("GET /x HTTP/1.1\r\nHost: a\r\n\r\n")

	var req1, req2 httpcore.Request
	_, err := httpcore.Parse(data, &req1, a)
	require.NoError(t, err)
	_, err = httpcore.Parse(data, &req2, a)
	require.NoError(t, err)

	require.Equal(t, req1.Method, req2.Method)
	require.Equal(t, req1.Path, req2.Path)
	require.Equal(t, req1.Version, req2.Version)
}

func TestParseAllMethods(t *testing.T) {
	cases := map[string]httpcore.Method{
		"GET":    httpcore.MethodGET,
		"POST":   httpcore.MethodPOST,
		"HEAD":   httpcore.MethodHEAD,
		"PUT":    httpcore.MethodPUT,
		"DELETE": httpcore.MethodDELETE,
	}
	for name, want := range cases {
		a := arena.New(4096)
		var req httpcore.Request
		status, err := httpcore.Parse([]byte(name+" / HTTP/1.1\r\n\r\n"), &req, a)
		require.NoError(t, err)
		require.Equal(t, httpcore.OK, status)
		require.Equal(t, want, req.Method)
	}
}

func TestTryExtractBodyWhenFullyBuffered(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request
	data := []byte("POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")

	_, err := httpcore.Parse(data, &req, a)
	require.NoError(t, err)
	require.NoError(t, httpcore.TryExtractBody(data, &req, a))
	require.True(t, req.HasBody)
	require.Equal(t, "hello", string(req.Body))
}

func TestTryExtractBodyNotYetFullyBuffered(t *testing.T) {
	a := arena.New(4096)
	var req httpcore.Request
	data := []byte("POST /submit HTTP/1.1\r\nContent-Length: 10\r\n\r\nhello")

	_, err := httpcore.Parse(data, &req, a)
	require.NoError(t, err)
	require.NoError(t, httpcore.TryExtractBody(data, &req, a))
	require.False(t, req.HasBody)
}
