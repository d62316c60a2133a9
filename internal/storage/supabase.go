package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBucket is the bucket question images are stored in
const DefaultBucket = "question-images"

// Supabase uploads objects to a Supabase storage bucket over its REST API
type Supabase struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
	now     func() time.Time
}

// NewSupabase creates a client for bucket on the project at baseURL
func NewSupabase(baseURL, apiKey, bucket string) (*Supabase, error) {
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("supabase url and key are required")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}, nil
}

// Upload stores data under a timestamped name and returns its public URL
func (s *Supabase) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	name := ObjectName(filename, s.now())

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", ContentType(filename))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("failed to upload image: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return s.PublicURL(name), nil
}

// PublicURL returns the public address of an object in the bucket
func (s *Supabase) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, name)
}
