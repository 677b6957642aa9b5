package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage keeps documents in a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSStorage connects with application default credentials, or with the service
// account key in credentialsFile when it is set.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) object(key string) (*gcs.ObjectHandle, string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidPath, key)
	}
	return s.client.Bucket(s.bucket).Object(key), key, nil
}

func (s *GCSStorage) Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error) {
	obj, key, err := s.object(key)
	if err != nil {
		return "", err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write GCS object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close GCS writer: %w", err)
	}

	return key, nil
}

func (s *GCSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, _, err := s.object(key)
	if err != nil {
		return nil, err
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, key)
		}
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	return r, nil
}

func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	obj, _, err := s.object(key)
	if err != nil {
		return err
	}

	if err := obj.Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object: %w", err)
	}
	return nil
}

// GetURL signs a V4 GET URL.
func (s *GCSStorage) GetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	_, key, err := s.object(key)
	if err != nil {
		return "", err
	}

	url, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expiry),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return url, nil
}

func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	obj, _, err := s.object(key)
	if err != nil {
		return false, err
	}

	if _, err := obj.Attrs(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat GCS object: %w", err)
	}
	return true, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
