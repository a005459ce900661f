// Package gcs reads and archives statement files in Google Cloud Storage.
package gcs

import (
	"context"
	"io"
)

// StatementSource opens a statement for reading.
type StatementSource interface {
	// OpenStatement opens a gs://bucket/object URI or a local file path.
	OpenStatement(ctx context.Context, location string) (io.ReadCloser, error)
}
