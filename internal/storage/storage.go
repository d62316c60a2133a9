// Package storage uploads question images and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Uploader stores an image and returns the URL it can be fetched from
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// ObjectName builds a collision-resistant object key from the upload time
// and the escaped original file name
func ObjectName(filename string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	escaped := strings.ReplaceAll(url.QueryEscape(base), "+", "%20")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), escaped)
}

// ContentType guesses the MIME type from the file extension
func ContentType(filename string) string {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType
}
