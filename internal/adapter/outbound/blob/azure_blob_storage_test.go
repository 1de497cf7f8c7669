package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storageForServer(t *testing.T, serverURL string) *AzureBlobStorage {
	t.Helper()
	storage, err := NewAzureBlobStorage(StorageConfig{
		AccountURL: serverURL,
		Container:  "game-images",
		SASToken:   "sv=2024&sig=abc",
	})
	require.NoError(t, err)
	return storage
}

func TestStorageConfigValidate(t *testing.T) {
	valid := StorageConfig{
		AccountURL: "https://acct.blob.core.windows.net",
		Container:  "game-images",
		SASToken:   "sv=2024&sig=abc",
	}
	assert.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		mutate func(*StorageConfig)
	}{
		{"missing account URL", func(c *StorageConfig) { c.AccountURL = "" }},
		{"missing container", func(c *StorageConfig) { c.Container = "" }},
		{"missing SAS token", func(c *StorageConfig) { c.SASToken = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/game-images/images/2026/08/30/page1.png", r.URL.Path)
		assert.Equal(t, "sv=2024&sig=abc", r.URL.RawQuery)
		w.Write([]byte("png bytes"))
	}))
	defer server.Close()

	data, err := storageForServer(t, server.URL).Download(context.Background(), "images/2026/08/30/page1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), data)
}

func TestDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := storageForServer(t, server.URL).Download(context.Background(), "images/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "BlockBlob", r.Header.Get("x-ms-blob-type"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("png bytes"), body)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	result, err := storageForServer(t, server.URL).Upload(
		context.Background(), []byte("png bytes"), "page1.PNG", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Path, "images/"))
	assert.True(t, strings.HasSuffix(result.Path, ".png"))
	assert.Contains(t, result.URL, result.Path)
}

func TestUploadEmptyData(t *testing.T) {
	storage := storageForServer(t, "https://acct.blob.core.windows.net")

	_, err := storage.Upload(context.Background(), nil, "page1.png", "image/png")
	assert.Error(t, err)
}

func TestUploadRejectsUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := storageForServer(t, server.URL).Upload(
		context.Background(), []byte("png bytes"), "page1.png", "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestDeleteToleratesMissingBlob(t *testing.T) {
	for _, status := range []int{http.StatusAccepted, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(status)
		}))

		err := storageForServer(t, server.URL).Delete(context.Background(), "images/old.png")
		assert.NoError(t, err)
		server.Close()
	}
}

func TestGenerateBlobPathKeepsExtension(t *testing.T) {
	p := generateBlobPath("Rulebook Page 7.JPG")
	assert.True(t, strings.HasPrefix(p, "images/"))
	assert.True(t, strings.HasSuffix(p, ".jpg"))
}
