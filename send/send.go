// Package send writes a status, headers and a body of any supported kind to
// an http.ResponseWriter in one call, ending the response.
package send

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

const (
	// ContentType is the canonical content type header name.
	ContentType = "Content-Type"

	octetStream = "application/octet-stream"
	jsonType    = "application/json;charset=utf-8"
	htmlType    = "text/html;charset=utf-8"
)

// Send writes code, headers and data to w. Supported body kinds:
//
//   - io.Reader: streamed as-is, application/octet-stream by default
//   - []byte: written raw, application/octet-stream by default
//   - string or nil: text/html by default
//   - anything else: JSON encoded, application/json by default
//
// A Content-Type already present on w or in headers always wins. For every
// non-stream body Content-Length is set. Readers that implement io.Closer
// are closed once copied.
func Send(w http.ResponseWriter, code int, data any, headers http.Header) error {
	h := w.Header()
	for k, vs := range headers {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}

	if code == 0 {
		code = http.StatusOK
	}

	var body []byte
	switch v := data.(type) {
	case nil:
		setDefaultType(h, htmlType)
	case string:
		setDefaultType(h, htmlType)
		body = []byte(v)
	case []byte:
		setDefaultType(h, octetStream)
		body = v
	case io.Reader:
		return stream(w, code, v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		setDefaultType(h, jsonType)
		body = encoded
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// JSON is shorthand for Send with a JSON-encoded value. Strings and nil are
// encoded too, so the body is always valid JSON; a []byte is taken as
// already encoded.
func JSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set(ContentType, jsonType)
	switch v.(type) {
	case nil, string:
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return Send(w, code, encoded, nil)
	}
	return Send(w, code, v, nil)
}

func stream(w http.ResponseWriter, code int, r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	setDefaultType(w.Header(), octetStream)
	w.WriteHeader(code)
	_, err := io.Copy(w, r)
	return err
}

func setDefaultType(h http.Header, typ string) {
	if h.Get(ContentType) == "" {
		h.Set(ContentType, typ)
	}
}
