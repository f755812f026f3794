// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package static implements a static-file module, adapted from
// original_source/src/modules/mod_static.c. Directory-traversal
// protection is redesigned: paths are canonicalized with filepath.Clean
// and checked for containment under the document root rather than
// rejected on a ".." substring match, which the original's own comments
// acknowledge is incomplete.
package static

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/momentics/protond/internal/httpcore"
	"github.com/momentics/protond/internal/logging"
	"github.com/momentics/protond/internal/module"
)

var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".txt":  "text/plain",
	".xml":  "application/xml",
}

func mimeType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// Handler serves files from root. Zero value is unusable; build one with
// New.
type Handler struct {
	root string
	log  *logging.Logger
}

// New builds a static-file handler rooted at root, canonicalized once at
// construction.
func New(root string, log *logging.Logger) (*Handler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Handler{root: filepath.Clean(abs), log: log}, nil
}

// Module wraps Handler in the module.Module contract, named "static" to
// match the original table entry.
func (h *Handler) Module() module.Module {
	return module.Module{
		Name:   "static",
		Handle: h.Handle,
	}
}

// resolve joins root with the request path, rejecting anything that
// escapes root after cleaning.
func (h *Handler) resolve(reqPath string) (string, bool) {
	joined := filepath.Join(h.root, reqPath)
	cleaned := filepath.Clean(joined)
	if cleaned != h.root && !strings.HasPrefix(cleaned, h.root+string(filepath.Separator)) {
		return "", false
	}
	return cleaned, true
}

// Handle serves GET/HEAD requests for files under root, declining all
// other methods so later modules may still handle the request.
func (h *Handler) Handle(c module.Conn) module.Result {
	req := c.Request()
	res := c.Response()

	if req.Method != httpcore.MethodGET && req.Method != httpcore.MethodHEAD {
		return module.Declined
	}

	path, ok := h.resolve(req.Path)
	if !ok {
		res.SetStatus(400)
		res.Write([]byte("400 Bad Request\n"))
		return module.Handled
	}

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
		info, err = os.Stat(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return module.Declined
		}
		if h.log != nil {
			h.log.Errorf("static: stat %s: %s", path, err)
		}
		res.SetStatus(500)
		res.Write([]byte("500 Internal Server Error\n"))
		return module.Handled
	}

	f, err := os.Open(path)
	if err != nil {
		if h.log != nil {
			h.log.Errorf("static: open %s: %s", path, err)
		}
		res.SetStatus(500)
		res.Write([]byte("500 Internal Server Error\n"))
		return module.Handled
	}
	defer f.Close()

	res.SetStatus(200)
	res.AddHeader("Content-Type", mimeType(path))

	if req.Method == httpcore.MethodGET {
		buf := make([]byte, 4096)
		for {
			n, rerr := f.Read(buf)
			if n > 0 {
				res.Write(buf[:n])
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				if h.log != nil {
					h.log.Errorf("static: read %s: %s", path, rerr)
				}
				break
			}
		}
	}

	if h.log != nil {
		h.log.Infof("served static file: %s (%d bytes)", path, info.Size())
	}
	return module.Handled
}
