// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package httpcore

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/momentics/protond/internal/arena"
)

// Status is the outcome of one Parse call.
type Status int

const (
	// NeedMore means the buffer does not yet contain a full header block
	// (no CRLFCRLF terminator found); call Parse again once more bytes
	// have been read.
	NeedMore Status = iota
	// OK means the request line, version, and headers parsed successfully.
	OK
	// ParseErr means the bytes do not form a well-formed request; the
	// caller must synthesize a 400 response and close the connection.
	ParseErr
)

var headerTerminator = []byte("\r\n\r\n")
var crlf = []byte("\r\n")

// Parse is incremental and restartable: call it repeatedly as more bytes
// accumulate in buf. It returns NeedMore until buf contains a complete
// CRLFCRLF-terminated header block, then parses the request line, URI,
// version, and headers in one pass, grounded on
// original_source/src/http/http_parser.c. All string storage for req is
// allocated from a.
//
// Bytes beyond the header terminator are left untouched in buf; body
// consumption (when Content-Length bytes are already present) is handled
// by TryExtractBody, not by Parse itself.
func Parse(data []byte, req *Request, a *arena.Arena) (Status, error) {
	idx := bytes.Index(data, headerTerminator)
	if idx < 0 {
		return NeedMore, nil
	}
	headerBlock := data[:idx+2] // include trailing CRLF of the last header

	first := true
	pos := 0
	for pos < len(headerBlock) {
		lineEnd := bytes.Index(headerBlock[pos:], crlf)
		if lineEnd < 0 {
			break
		}
		line := headerBlock[pos : pos+lineEnd]
		pos += lineEnd + 2

		if first {
			if err := parseRequestLine(line, req, a); err != nil {
				return ParseErr, err
			}
			first = false
			continue
		}
		if len(line) == 0 {
			continue
		}
		if err := parseHeaderLine(line, req, a); err != nil {
			return ParseErr, err
		}
	}

	return OK, nil
}

var methodTable = []struct {
	prefix string
	method Method
}{
	{"GET ", MethodGET},
	{"POST ", MethodPOST},
	{"HEAD ", MethodHEAD},
	{"PUT ", MethodPUT},
	{"DELETE ", MethodDELETE},
}

func parseRequestLine(line []byte, req *Request, a *arena.Arena) error {
	var method Method
	var rest []byte
	matched := false
	for _, m := range methodTable {
		if bytes.HasPrefix(line, []byte(m.prefix)) {
			method = m.method
			rest = line[len(m.prefix):]
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("httpcore: unrecognized method in request line %q", line)
	}

	sp := bytes.IndexByte(rest, ' ')
	if sp < 0 {
		return fmt.Errorf("httpcore: malformed request line, missing URI/version separator")
	}
	rawURI := rest[:sp]
	rawVersion := rest[sp+1:]

	var version Version
	switch string(rawVersion) {
	case "HTTP/1.1":
		version = Version11
	case "HTTP/1.0":
		version = Version10
	default:
		return fmt.Errorf("httpcore: unsupported HTTP version %q", rawVersion)
	}

	path := rawURI
	var query []byte
	hasQuery := false
	if q := bytes.IndexByte(rawURI, '?'); q >= 0 {
		path = rawURI[:q]
		query = rawURI[q+1:]
		hasQuery = true
	}

	pathStr, err := a.AllocateString(string(path))
	if err != nil {
		return err
	}
	var queryStr string
	if hasQuery {
		queryStr, err = a.AllocateString(string(query))
		if err != nil {
			return err
		}
	}

	req.Method = method
	req.Version = version
	req.Path = pathStr
	req.Query = queryStr
	req.HasQuery = hasQuery
	return nil
}

func parseHeaderLine(line []byte, req *Request, a *arena.Arena) error {
	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return fmt.Errorf("httpcore: malformed header line %q", line)
	}
	name := line[:colon]
	value := trimOWS(line[colon+1:])

	nameStr, err := a.AllocateString(string(name))
	if err != nil {
		return err
	}
	valueStr, err := a.AllocateString(string(value))
	if err != nil {
		return err
	}

	// Prepend, matching the original's push-front list storage.
	req.Headers = append([]Header{{Name: nameStr, Value: valueStr}}, req.Headers...)
	return nil
}

func trimOWS(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return b[start:end]
}

// TryExtractBody exposes Content-Length bytes already buffered past the
// header terminator. It does not perform any additional read; it only
// reports whether the full declared body is already present in
// data[headerEnd:].
func TryExtractBody(data []byte, req *Request, a *arena.Arena) error {
	idx := bytes.Index(data, headerTerminator)
	if idx < 0 {
		return nil
	}
	bodyStart := idx + 4

	lengthStr, ok := req.Header("Content-Length")
	if !ok {
		return nil
	}
	length, err := strconv.Atoi(lengthStr)
	if err != nil || length < 0 {
		return nil
	}
	if len(data)-bodyStart < length {
		return nil // body not fully buffered yet; leave to the module
	}
	if length == 0 {
		req.HasBody = true
		return nil
	}

	buf, err := a.Allocate(length)
	if err != nil {
		return err
	}
	copy(buf, data[bodyStart:bodyStart+length])
	req.Body = buf
	req.BodyLen = length
	req.HasBody = true
	return nil
}

// HeaderBlockEnd returns the byte offset immediately past the CRLFCRLF
// terminator (i.e. where the body begins), or -1 if the terminator has not
// yet been seen.
func HeaderBlockEnd(data []byte) int {
	idx := bytes.Index(data, headerTerminator)
	if idx < 0 {
		return -1
	}
	return idx + 4
}
