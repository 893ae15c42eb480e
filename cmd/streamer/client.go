package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"syscall"

	"streamer/internal/httpapi"
	"streamer/internal/status"
)

// HTTPDoer describes the HTTP client used to reach the server.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type apiClient struct {
	baseURL string
	client  HTTPDoer
}

// apiError carries the server's {"error": ...} message.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, client: http.DefaultClient}
}

// Upload streams path as the "file" part of a multipart request. Bytes read
// from the file are mirrored to progress when it is non-nil.
func (c *apiClient) Upload(ctx context.Context, path string, progress io.Writer) (httpapi.UploadResponse, error) {
	var result httpapi.UploadResponse
	file, err := os.Open(path)
	if err != nil {
		return result, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	if progress != nil {
		src = io.TeeReader(file, progress)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		pr.Close()
		return result, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = c.do(req, &result)
	pr.Close()
	return result, err
}

// Status fetches one job.
func (c *apiClient) Status(ctx context.Context, id string) (status.View, error) {
	var view status.View
	err := c.get(ctx, "/api/status/"+url.PathEscape(id), &view)
	return view, err
}

// Health fetches dispatcher load and job counts.
func (c *apiClient) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var health httpapi.HealthResponse
	err := c.get(ctx, "/api/health", &health)
	return health, err
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return wrapConnectError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &apiError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapConnectError(err error, baseURL string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to server: %s refused the connection; start it with `streamer serve`", baseURL)
	}
	return fmt.Errorf("connect to server: %w", err)
}

func isConnectError(err error) bool {
	var apiErr *apiError
	return err != nil && !errors.As(err, &apiErr)
}
