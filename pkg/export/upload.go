package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sternrassler/swapi-export/pkg/client"
	"github.com/rs/zerolog"
)

// DefaultUploadURL is the echo endpoint the report is posted to by default.
const DefaultUploadURL = "https://httpbin.org/post"

// FormField is the multipart field carrying the file.
const FormField = "file"

// Uploader posts a written report to an HTTP endpoint.
type Uploader struct {
	client *client.Client
	target string
	logger zerolog.Logger
}

// NewUploader creates an uploader. An empty target selects DefaultUploadURL.
func NewUploader(c *client.Client, target string, logger zerolog.Logger) *Uploader {
	if target == "" {
		target = DefaultUploadURL
	}
	return &Uploader{
		client: c,
		target: target,
		logger: logger,
	}
}

// Target returns the upload endpoint.
func (u *Uploader) Target() string {
	return u.target
}

// Upload reads path and posts it as multipart field "file". It returns the
// response status. Failures are returned, not logged; the caller that ends the
// run logs them.
func (u *Uploader) Upload(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read export %s: %w", path, err)
	}

	resp, err := u.client.UploadFile(ctx, u.target, FormField, filepath.Base(path), data)
	if err != nil {
		return 0, fmt.Errorf("upload %s to %s: %w", path, u.target, err)
	}

	u.logger.Info().
		Str("target", u.target).
		Str("path", path).
		Int("bytes", len(data)).
		Int("status_code", resp.StatusCode).
		Msg("Upload complete")
	return resp.StatusCode, nil
}
