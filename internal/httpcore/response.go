// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package httpcore

import (
	"strconv"

	"github.com/momentics/protond/internal/buffer"
)

// ServerProduct/ServerVersion compose the always-emitted Server header,
// grounded on the original PROTON_VERSION constant.
const (
	ServerProduct = "protond"
	ServerVersion = "0.1.0"
)

var statusReasons = map[int]string{
	200: "OK",
	400: "Bad Request",
	404: "Not Found",
	500: "Internal Server Error",
	501: "Not Implemented",
}

// ReasonPhrase returns the static reason phrase for status, or "Unknown"
// for any status not in the small built-in table.
func ReasonPhrase(status int) string {
	if r, ok := statusReasons[status]; ok {
		return r
	}
	return "Unknown"
}

// Response accumulates status, headers, and body for one request; it is
// constructed fresh per request and destroyed when the connection resets
// or closes.
type Response struct {
	Status      int
	Headers     []Header
	body        []byte
	serialized  bool
	bodyWritten bool
}

// NewResponse returns a Response defaulted to status 200.
func NewResponse() *Response {
	return &Response{Status: 200}
}

// SetStatus sets the response status code.
func (res *Response) SetStatus(code int) {
	res.Status = code
}

// AddHeader appends a custom header, preserving insertion order.
func (res *Response) AddHeader(name, value string) {
	res.Headers = append(res.Headers, Header{Name: name, Value: value})
}

// Write appends bytes to the response body.
func (res *Response) Write(p []byte) {
	res.body = append(res.body, p...)
	res.bodyWritten = true
}

// BodyLen returns the current body length.
func (res *Response) BodyLen() int { return len(res.body) }

// Body returns the accumulated body bytes written so far.
func (res *Response) Body() []byte { return res.body }

// Serialized reports whether Serialize has already run for this response.
func (res *Response) Serialized() bool { return res.serialized }

// Serialize appends the wire form of the response to w, in a fixed order:
// status line, Server, Content-Length, custom headers in insertion order,
// blank line, body. The server always advertises HTTP/1.1 regardless of
// the request's version.
func (res *Response) Serialize(w *buffer.Buffer) error {
	status := res.Status
	if status == 0 {
		status = 200
	}

	statusLine := "HTTP/1.1 " + strconv.Itoa(status) + " " + ReasonPhrase(status) + "\r\n"
	if err := w.Append([]byte(statusLine)); err != nil {
		return err
	}

	if err := w.Append([]byte("Server: " + ServerProduct + "/" + ServerVersion + "\r\n")); err != nil {
		return err
	}

	contentLength := "Content-Length: " + strconv.Itoa(len(res.body)) + "\r\n"
	if err := w.Append([]byte(contentLength)); err != nil {
		return err
	}

	for _, h := range res.Headers {
		line := h.Name + ": " + h.Value + "\r\n"
		if err := w.Append([]byte(line)); err != nil {
			return err
		}
	}

	if err := w.Append([]byte("\r\n")); err != nil {
		return err
	}

	if len(res.body) > 0 {
		if err := w.Append(res.body); err != nil {
			return err
		}
	}

	res.serialized = true
	return nil
}
