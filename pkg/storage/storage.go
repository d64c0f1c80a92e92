// Package storage is the blob backend for uploaded/synced document bodies,
// grounded on the teacher's pkg/storage: a thin Storage interface with S3
// and local-disk implementations selected by a provider string, trimmed to
// the upload/download/delete surface the ingestion pipeline and sync
// engine actually exercise.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is the blob contract pkg/ingest.BlobStore is satisfied by.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Provider        string // "s3" or "local"
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	LocalBasePath   string
}

func New(cfg Config) (Storage, error) {
	switch cfg.Provider {
	case "s3", "minio":
		return newS3Storage(cfg)
	case "local", "":
		basePath := cfg.LocalBasePath
		if basePath == "" {
			basePath = "./data/storage"
		}
		return newLocalStorage(basePath)
	default:
		return nil, fmt.Errorf("storage: unsupported provider %q", cfg.Provider)
	}
}
