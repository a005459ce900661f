package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const uriScheme = "gs://"

// Service implements StatementSource and Uploader. It assumes Application
// Default Credentials are configured (gcloud auth application-default login).
type Service struct {
	client *storage.Client
}

// NewService creates a storage client.
func NewService(ctx context.Context) (*Service, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewService: create storage client: %w", err)
	}
	return &Service{client: client}, nil
}

// NewLocalService returns a Service without a storage client. It can only
// open local paths.
func NewLocalService() *Service {
	return &Service{}
}

// Close releases the storage client.
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// OpenStatement implements StatementSource.
func (s *Service) OpenStatement(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, uriScheme) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("OpenStatement: open file %q: %w", location, err)
		}
		return f, nil
	}

	if s.client == nil {
		return nil, fmt.Errorf("OpenStatement: cloud storage is not configured for %s", location)
	}
	bucketName, objectPath, err := ParseURI(location)
	if err != nil {
		return nil, fmt.Errorf("OpenStatement: %w", err)
	}

	rc, err := s.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("OpenStatement: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	return rc, nil
}

// UploadFile implements Uploader.
func (s *Service) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	if s.client == nil {
		return fmt.Errorf("UploadFile: cloud storage is not configured")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("UploadFile: copy file to writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}
	return nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, uriScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/statements/jan.csv" → "jan.csv"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, uriScheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// URI builds a gs:// URI.
func URI(bucket, object string) string {
	return uriScheme + bucket + "/" + object
}

var _ StatementSource = (*Service)(nil)
