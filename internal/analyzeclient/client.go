// Package analyzeclient is the HTTP transport to the external geometry
// analysis service.
package analyzeclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/joeblew999/geo-analyzer/internal/analysis"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

// Service endpoints.
const (
	AnalyzePath = "/analyze"
	UploadPath  = "/upload"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// Doer abstracts the HTTP client for tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the analysis service.
type Client struct {
	baseURL  string
	endpoint string
	http     Doer
}

// New creates a client. endpoint selects where Submit sends files
// (AnalyzePath or UploadPath); anything else means AnalyzePath.
// A nil doer uses http.DefaultClient.
func New(baseURL, endpoint string, doer Doer) *Client {
	if endpoint == "" {
		endpoint = AnalyzePath
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: endpoint,
		http:     doer,
	}
}

// Submit sends f to the configured endpoint, Upload for UploadPath and
// Analyze otherwise. It satisfies upload.Submitter.
func (c *Client) Submit(ctx context.Context, f upload.File) ([]byte, error) {
	if c.endpoint == UploadPath {
		return c.Upload(ctx, f)
	}
	return c.Analyze(ctx, f)
}

// Analyze sends f as multipart field "file" to POST /analyze.
func (c *Client) Analyze(ctx context.Context, f upload.File) ([]byte, error) {
	return c.postFile(ctx, AnalyzePath, f)
}

// Upload sends f as multipart field "file" to POST /upload.
func (c *Client) Upload(ctx context.Context, f upload.File) ([]byte, error) {
	return c.postFile(ctx, UploadPath, f)
}

// Reanalyze posts a feature collection body to POST /analyze without
// re-uploading the original file.
func (c *Client) Reanalyze(ctx context.Context, featureCollection []byte) ([]byte, error) {
	return c.post(ctx, AnalyzePath, "application/json", bytes.NewReader(featureCollection))
}

func (c *Client) postFile(ctx context.Context, path string, f upload.File) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	return c.post(ctx, path, mw.FormDataContentType(), &buf)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &analysis.ServiceError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}
