// Package netx builds HTTP request bodies that need more than encoding/json.
package netx

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// Field is one text part of a multipart form. Parts are written in order.
type Field struct {
	Name  string
	Value string
}

// FilePart is one binary part of a multipart form.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Content     io.Reader
}

// MultipartBody encodes fields and files into a buffered multipart/form-data
// body and returns it together with its Content-Type (including boundary).
// Nil files are skipped, so optional uploads can be passed unconditionally.
func MultipartBody(fields []Field, files ...*FilePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}

	for _, f := range files {
		if f == nil {
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.FileName))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copy part %s: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
