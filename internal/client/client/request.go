package client

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tillapos/internal/netx"
)

// Request is one logical API call. The body is buffered so the call can be
// rebuilt for the single replay after a token refresh.
type Request struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
}

// NewRequest builds a body-less request.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// NewJSONRequest encodes payload as the JSON body.
func NewJSONRequest(method, path string, payload any) (*Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
	}
	return &Request{Method: method, Path: path, Body: body, ContentType: "application/json"}, nil
}

// NewMultipartRequest encodes fields and optional files as multipart/form-data.
func NewMultipartRequest(method, path string, fields []netx.Field, files ...*netx.FilePart) (*Request, error) {
	body, contentType, err := netx.MultipartBody(fields, files...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s form: %w", method, path, err)
	}
	return &Request{Method: method, Path: path, Body: body, ContentType: contentType}, nil
}
