package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

type LocalStorage struct {
	basePath string
	baseURL  string // e.g., "http://localhost:8080/files"
}

func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// resolve maps a key to a file below basePath, rejecting keys that escape it.
func (s *LocalStorage) resolve(key string) (string, string, error) {
	cleanKey := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(key)), "/")
	if cleanKey == "" || cleanKey == "." {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, key)
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, key)
	}
	return cleanKey, fullPath, nil
}

func (s *LocalStorage) Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error) {
	cleanKey, fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial document
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	return cleanKey, nil
}

func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	_, fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	_, fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// GetURL returns a static URL; local files do not expire.
func (s *LocalStorage) GetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	cleanKey, _, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.baseURL, cleanKey), nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
