package app

import (
	"net/http"
	"strconv"
)

// Response is a fully buffered rendered response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	cookies []string
}

// NewResponse returns a response with the given status and body.
func NewResponse(status int, contentType string, body []byte) *Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &Response{Status: status, Header: h, Body: body}
}

// Write sends resp to w, adding the given Set-Cookie values. A HEAD request
// gets headers only.
func (resp *Response) Write(w http.ResponseWriter, r *http.Request, cookies []string) error {
	h := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for _, c := range cookies {
		h.Add("Set-Cookie", c)
	}
	if h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if r != nil && r.Method == http.MethodHead {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}
