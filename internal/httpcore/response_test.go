package httpcore_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/protond/internal/buffer"
	"github.com/momentics/protond/internal/httpcore"
)

func TestSerializeSimpleGet(t *testing.T) {
	res := httpcore.NewResponse()
	res.Write([]byte("hello\n"))

	w := buffer.New(256)
	require.NoError(t, res.Serialize(w))

	out := string(w.Bytes())
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, out, "Content-Length: 6\r\n")
	require.True(t, strings.HasSuffix(out, "\r\nhello\n"))
}

func TestSerializeExactlyOneBlankLineAndContentLengthMatchesBody(t *testing.T) {
	res := httpcore.NewResponse()
	res.AddHeader("X-Test", "1")
	res.Write([]byte("0123456789"))

	w := buffer.New(256)
	require.NoError(t, res.Serialize(w))

	out := string(w.Bytes())
	parts := strings.SplitN(out, "\r\n\r\n", 2)
	require.Len(t, parts, 2)
	require.Equal(t, "0123456789", parts[1])

	expected := "Content-Length: " + strconv.Itoa(10) + "\r\n"
	require.Contains(t, out, expected)
}

func TestUnknownStatusReasonPhrase(t *testing.T) {
	res := httpcore.NewResponse()
	res.SetStatus(418)

	w := buffer.New(128)
	require.NoError(t, res.Serialize(w))
	require.True(t, strings.HasPrefix(string(w.Bytes()), "HTTP/1.1 418 Unknown\r\n"))
}

func TestAllModuleToCoreStatusReasons(t *testing.T) {
	cases := map[int]string{
		200: "OK",
		400: "Bad Request",
		404: "Not Found",
		500: "Internal Server Error",
		501: "Not Implemented",
	}
	for status, reason := range cases {
		require.Equal(t, reason, httpcore.ReasonPhrase(status))
	}
}

func TestServerHeaderAlwaysPresent(t *testing.T) {
	res := httpcore.NewResponse()
	w := buffer.New(128)
	require.NoError(t, res.Serialize(w))
	require.Contains(t, string(w.Bytes()), "Server: protond/0.1.0\r\n")
}
