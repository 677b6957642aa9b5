package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidPath  = errors.New("invalid file path")
)

// FileStorage stores rendered documents under slash separated keys.
type FileStorage interface {
	// Upload stores the content of file under path and returns the stored key
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Download opens a stored file; the caller closes it
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	Delete(ctx context.Context, path string) error

	// GetURL returns a retrieval URL valid for at least expiry
	GetURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	Exists(ctx context.Context, path string) (bool, error)
}
