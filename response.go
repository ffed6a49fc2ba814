package chiwarp

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

type statusSetter interface {
	SetStatus(code int)
}

// responseWriter defers the status line until the first write so Status can
// be called before headers are final.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func wrapResponse(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w}
}

// SetStatus records code as the pending status. It is a no-op once the
// header has been written.
func (rw *responseWriter) SetStatus(code int) {
	if !rw.written {
		rw.status = code
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	rw.written = true
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.commit()
	return rw.ResponseWriter.Write(b)
}

// Written reports whether the status line has been sent.
func (rw *responseWriter) Written() bool { return rw.written }

// StatusCode returns the written or pending status, 200 if none was set.
func (rw *responseWriter) StatusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) commit() {
	if !rw.written {
		rw.WriteHeader(rw.StatusCode())
	}
}

// finish flushes a pending status that no write picked up.
func (rw *responseWriter) finish() {
	if !rw.written && rw.status != 0 {
		rw.WriteHeader(rw.status)
	}
}

func (rw *responseWriter) Flush() {
	rw.commit()
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection over to the caller, for instance for a
// websocket upgrade. The wrapper counts as written afterwards.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("chiwarp: %T does not support hijacking", rw.ResponseWriter)
	}
	conn, buf, err := hj.Hijack()
	if err == nil {
		rw.written = true
	}
	return conn, buf, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
