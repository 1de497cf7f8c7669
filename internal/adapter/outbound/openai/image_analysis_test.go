package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ruleindex/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visionServer(t *testing.T, analysis pageAnalysis) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "chat/completions"):
			content, err := json.Marshal(analysis)
			require.NoError(t, err)
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{
						"message":       map[string]any{"content": string(content)},
						"finish_reason": "stop",
					},
				},
			})
		case strings.Contains(r.URL.Path, "embeddings"):
			json.NewEncoder(w).Encode(embeddingServerResponse(entity.EmbeddingDimensions))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestProcessImage(t *testing.T) {
	server := visionServer(t, pageAnalysis{
		ExtractedText:     "Each player draws five cards.",
		VisualDescription: "A hand of cards fanned out above the rules text.",
		Labels:            []string{"cards", "setup"},
	})
	defer server.Close()

	client, err := NewClient(validClientConfig(server.URL))
	require.NoError(t, err)

	result, err := client.ProcessImage(context.Background(), []byte("png bytes"), "page3.png")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Each player draws five cards.", result.ExtractedText)
	assert.Len(t, result.TextEmbedding, entity.EmbeddingDimensions)
	assert.Len(t, result.DescriptionEmbedding, entity.EmbeddingDimensions)
	assert.Len(t, result.LabelsEmbedding, entity.EmbeddingDimensions)
	assert.Equal(t, []string{"cards", "setup"}, result.Labels)
}

func TestProcessImagePartialChannels(t *testing.T) {
	server := visionServer(t, pageAnalysis{
		ExtractedText: "Shuffle the deck.",
	})
	defer server.Close()

	client, err := NewClient(validClientConfig(server.URL))
	require.NoError(t, err)

	result, err := client.ProcessImage(context.Background(), []byte("jpeg bytes"), "page4.jpg")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Len(t, result.TextEmbedding, entity.EmbeddingDimensions)
	assert.Empty(t, result.DescriptionEmbedding)
	assert.Empty(t, result.LabelsEmbedding)
}

func TestProcessImageEmptyAnalysisIsNotAnError(t *testing.T) {
	server := visionServer(t, pageAnalysis{})
	defer server.Close()

	client, err := NewClient(validClientConfig(server.URL))
	require.NoError(t, err)

	result, err := client.ProcessImage(context.Background(), []byte("blank page"), "page5.png")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestProcessImageEmptyData(t *testing.T) {
	client, err := NewClient(validClientConfig("https://example.openai.azure.com"))
	require.NoError(t, err)

	_, err = client.ProcessImage(context.Background(), nil, "page6.png")
	assert.Error(t, err)
}

func TestImageMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", imageMIMEType("Page1.PNG"))
	assert.Equal(t, "image/gif", imageMIMEType("anim.gif"))
	assert.Equal(t, "image/webp", imageMIMEType("photo.webp"))
	assert.Equal(t, "image/jpeg", imageMIMEType("scan.jpg"))
	assert.Equal(t, "image/jpeg", imageMIMEType("unknown.bin"))
}
