package static_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/protond/internal/httpcore"
	"github.com/momentics/protond/internal/module"
	"github.com/momentics/protond/internal/module/static"
)

type fakeConn struct {
	req *httpcore.Request
	res *httpcore.Response
}

func (c *fakeConn) Request() *httpcore.Request   { return c.req }
func (c *fakeConn) Response() *httpcore.Response { return c.res }

func newFakeConn(method httpcore.Method, path string) *fakeConn {
	return &fakeConn{req: &httpcore.Request{Method: method, Path: path}, res: httpcore.NewResponse()}
}

func TestHandleServesFileWithMimeType(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.html"), []byte("<p>hi</p>"), 0644))

	h, err := static.New(root, nil)
	require.NoError(t, err)

	c := newFakeConn(httpcore.MethodGET, "/hello.html")
	result := h.Handle(c)
	require.Equal(t, module.Handled, result)
	require.Equal(t, 200, c.res.Status)
	require.Equal(t, "<p>hi</p>", string(c.res.Body()))
}

func TestHandleDeclinesUnknownFile(t *testing.T) {
	root := t.TempDir()
	h, err := static.New(root, nil)
	require.NoError(t, err)

	c := newFakeConn(httpcore.MethodGET, "/missing.html")
	result := h.Handle(c)
	require.Equal(t, module.Declined, result)
}

func TestHandleDeclinesNonGetHead(t *testing.T) {
	root := t.TempDir()
	h, err := static.New(root, nil)
	require.NoError(t, err)

	c := newFakeConn(httpcore.MethodPOST, "/anything")
	result := h.Handle(c)
	require.Equal(t, module.Declined, result)
}

func TestHandleServesIndexForDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "index.html"), []byte("index"), 0644))

	h, err := static.New(root, nil)
	require.NoError(t, err)

	c := newFakeConn(httpcore.MethodGET, "/sub")
	result := h.Handle(c)
	require.Equal(t, module.Handled, result)
	require.Equal(t, 200, c.res.Status)
}

func TestHandleRejectsDirectoryTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("nope"), 0644))

	h, err := static.New(root, nil)
	require.NoError(t, err)

	c := newFakeConn(httpcore.MethodGET, "/../secret.txt")
	result := h.Handle(c)
	require.Equal(t, module.Handled, result)
	require.Equal(t, 400, c.res.Status)
}

func TestHandleHeadOmitsBody(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("content"), 0644))

	h, err := static.New(root, nil)
	require.NoError(t, err)

	c := newFakeConn(httpcore.MethodHEAD, "/f.txt")
	result := h.Handle(c)
	require.Equal(t, module.Handled, result)
	require.Equal(t, 0, c.res.BodyLen())
}
