package outbound

import "context"

// BlobUploadResult carries the durable path and public URL of stored bytes.
type BlobUploadResult struct {
	Path string
	URL  string
}

// BlobStorage defines the interface for raw image byte storage.
type BlobStorage interface {
	// Download fetches the raw bytes stored at path.
	Download(ctx context.Context, path string) ([]byte, error)

	// Upload stores raw bytes and returns their durable path and URL.
	Upload(ctx context.Context, data []byte, filename, contentType string) (*BlobUploadResult, error)

	// Delete removes the blob at path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
}
