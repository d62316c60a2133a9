package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local stores images in a directory served under baseURL
type Local struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewLocal creates the directory if needed
func NewLocal(dir, baseURL string) (*Local, error) {
	if dir == "" {
		dir = filepath.Join("data", "images")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Local{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// Dir returns the directory images are written to
func (l *Local) Dir() string { return l.dir }

// Upload writes data to the directory and returns its URL
func (l *Local) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := ObjectName(filename, l.now())

	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return l.baseURL + "/" + name, nil
}
