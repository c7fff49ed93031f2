// Package blob stores media files (avatars, cover images) in an
// S3-compatible object store and hands back public locators.
package blob

import (
	"context"
	"io"
)

// File is an uploadable payload, typically lifted out of a multipart form.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadResult locates a stored blob: URL is the public address persisted
// on the account, Key identifies the object for later deletion.
type UploadResult struct {
	URL string
	Key string
}

// Store is the blob-store contract consumed by the services. Uploading a
// nil or empty file is a no-op that returns (nil, nil), not an error.
type Store interface {
	Upload(ctx context.Context, file *File) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}
