// Package blob implements the blob storage port against the Azure Blob
// Storage REST API using a container-scoped SAS token.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/port/outbound"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 30 * time.Second

// StorageConfig holds Azure Blob Storage configuration.
type StorageConfig struct {
	// AccountURL is the storage account endpoint, e.g.
	// https://myaccount.blob.core.windows.net.
	AccountURL string

	// Container is the blob container holding uploaded images.
	Container string

	// SASToken is the shared access signature query string, without the
	// leading question mark.
	SASToken string

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
}

// Validate checks the storage configuration.
func (c StorageConfig) Validate() error {
	if c.AccountURL == "" {
		return errors.New("account URL cannot be empty")
	}
	if c.Container == "" {
		return errors.New("container cannot be empty")
	}
	if c.SASToken == "" {
		return errors.New("SAS token cannot be empty")
	}
	return nil
}

// AzureBlobStorage stores raw image bytes as block blobs.
type AzureBlobStorage struct {
	config     StorageConfig
	httpClient *http.Client
}

// NewAzureBlobStorage creates a new blob storage client with validation.
func NewAzureBlobStorage(config StorageConfig) (*AzureBlobStorage, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid blob storage configuration: %w", err)
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	config.AccountURL = strings.TrimRight(config.AccountURL, "/")
	config.SASToken = strings.TrimPrefix(config.SASToken, "?")

	return &AzureBlobStorage{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// Download fetches the raw bytes stored at path.
func (s *AzureBlobStorage) Download(ctx context.Context, blobPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.blobURL(blobPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", blobPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("blob %s not found", blobPath)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading blob %s", resp.StatusCode, blobPath)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", blobPath, err)
	}
	return data, nil
}

// Upload stores raw bytes as a block blob under a generated path and
// returns the durable path and URL.
func (s *AzureBlobStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (*outbound.BlobUploadResult, error) {
	if len(data) == 0 {
		return nil, errors.New("upload data cannot be empty")
	}

	blobPath := generateBlobPath(filename)
	url := s.blobURL(blobPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob %s: %w", blobPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d uploading blob %s", resp.StatusCode, blobPath)
	}

	slogger.Debug(ctx, "Uploaded blob", slogger.Fields{
		"path": blobPath,
		"size": len(data),
	})
	return &outbound.BlobUploadResult{Path: blobPath, URL: url}, nil
}

// Delete removes the blob at path. Deleting a missing blob is not an error.
func (s *AzureBlobStorage) Delete(ctx context.Context, blobPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.blobURL(blobPath), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", blobPath, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("unexpected status %d deleting blob %s", resp.StatusCode, blobPath)
	}
}

// blobURL builds the full signed URL for a blob path.
func (s *AzureBlobStorage) blobURL(blobPath string) string {
	return fmt.Sprintf("%s/%s/%s?%s",
		s.config.AccountURL, s.config.Container,
		strings.TrimPrefix(blobPath, "/"), s.config.SASToken)
}

// generateBlobPath produces a collision-free path preserving the original
// file extension, partitioned by upload date.
func generateBlobPath(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("images/%s/%s%s",
		time.Now().UTC().Format("2006/01/02"), uuid.NewString(), ext)
}
