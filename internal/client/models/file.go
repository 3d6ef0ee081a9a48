package models

import "io"

// FileData is an optional binary upload (category image, business logo).
type FileData struct {
	Name        string
	ContentType string
	Content     io.Reader
}
