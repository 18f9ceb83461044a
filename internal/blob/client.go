// Package blob stores record attachments in Supabase Storage and mints
// collision-free object keys for them.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

// Client talks to the Supabase Storage object API. The bucket is assumed
// public, so PublicURL needs no signing.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
}

func NewClient(baseURL, apiKey, bucket string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
}

// Upload stores data under key. Keys are never reused, so upsert stays off
// and a duplicate key is surfaced as an error rather than overwritten.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code %d uploading %s: %s", resp.StatusCode, key, bodySnippet(resp.Body))
	}

	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code %d deleting %s: %s", resp.StatusCode, key, bodySnippet(resp.Body))
	}

	return nil
}

// PublicURL returns the retrieval URL stored on the record row.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key)
}

// KeyFromURL recovers the object key from a URL previously returned by
// PublicURL. It reports false for URLs this store did not issue, so stale
// rows pointing elsewhere never trigger deletes against the bucket.
func (c *Client) KeyFromURL(url string) (string, bool) {
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", c.baseURL, c.bucket)

	key, found := strings.CutPrefix(url, prefix)
	if !found || key == "" {
		return "", false
	}

	return key, true
}

func bodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
