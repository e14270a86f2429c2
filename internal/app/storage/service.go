/*
Package storage stores chat images in S3-compatible object storage and turns
client-supplied image references into retrievable URLs.
*/
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when the requested key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ObjectInfo is the subset of object metadata the resolver checks.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// Upload stores body under key with the given content type.
	Upload(ctx context.Context, key string, contentType string, body io.Reader, size int64) error

	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// GetObjectMetadata retrieves the object's metadata. Missing keys yield ErrObjectNotFound.
	GetObjectMetadata(ctx context.Context, key string) (ObjectInfo, error)
}

// NewStorageService is the factory function for StorageService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}
