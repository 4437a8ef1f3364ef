// Package api talks to the web viewer's HTTP API.
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sceneannotate/annotator/internal/storage"
)

// UploadPath is the viewer endpoint that accepts snapshot files.
const UploadPath = "/api/v1/annotations/add"

// Client handles communication with the web viewer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// expectOK drains and closes the body, failing on any non-200 status.
func expectOK(resp *http.Response, what string) error {
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", what, resp.StatusCode)
	}
	return nil
}

// Healthcheck reports whether the viewer answers on /healthcheck.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.endpoint("/healthcheck"))
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	return expectOK(resp, "healthcheck")
}

// Upload streams a snapshot file to the viewer as a multipart form.
func (c *Client) Upload(filePath string, meta storage.UploadMetadata) error {
	snapshot, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open snapshot for upload: %w", err)
	}
	defer snapshot.Close()

	body, form := io.Pipe()
	mw := multipart.NewWriter(form)

	formDone := make(chan error, 1)
	go func() {
		err := writeForm(mw, snapshot, filepath.Base(filePath), c.apiKey, meta)
		if err == nil {
			err = mw.Close()
		}
		form.CloseWithError(err)
		formDone <- err
	}()

	req, err := http.NewRequest(http.MethodPost, c.endpoint(UploadPath), body)
	if err != nil {
		_ = body.Close()
		<-formDone
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	// the server may answer before consuming the whole form
	_ = body.Close()
	formErr := <-formDone
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	if err := expectOK(resp, "upload"); err != nil {
		return err
	}
	return formErr
}

func writeForm(w *multipart.Writer, file io.Reader, name, secret string, meta storage.UploadMetadata) error {
	fields := [][2]string{
		{"secret", secret},
		{"filename", name},
		{"scene", meta.Scene},
		{"count", strconv.Itoa(meta.Count)},
		{"createdAt", meta.CreatedAt.UTC().Format(time.RFC3339)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}
