package gcs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://statements/2024/jan.csv", "statements", "2024/jan.csv", false},
		{"gs://statements/jan.csv", "statements", "jan.csv", false},
		{"gs://statements", "", "", true},
		{"gs://statements/", "", "", true},
		{"/tmp/jan.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI = %q, %q", bucket, object)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	if got := FilenameFromURI("gs://bucket/folder/jan.csv"); got != "jan.csv" {
		t.Errorf("FilenameFromURI = %q", got)
	}
	if got := FilenameFromURI("gs://bucket"); got != "bucket" {
		t.Errorf("FilenameFromURI without object = %q", got)
	}
	if got := URI("bucket", "a/b.csv"); got != "gs://bucket/a/b.csv" {
		t.Errorf("URI = %q", got)
	}
}

func TestOpenStatement_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jan.csv")
	if err := os.WriteFile(path, []byte("Effective Date,Amount,Description\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s := NewLocalService()
	rc, err := s.OpenStatement(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenStatement failed: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "Effective Date,Amount,Description\n" {
		t.Errorf("read %q", data)
	}
}

func TestLocalService_RejectsCloudLocations(t *testing.T) {
	s := NewLocalService()
	if _, err := s.OpenStatement(context.Background(), "gs://bucket/jan.csv"); err == nil {
		t.Error("expected error without a storage client")
	}
	if err := s.UploadFile(context.Background(), "bucket", "jan.csv", "jan.csv"); err == nil {
		t.Error("expected error without a storage client")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
