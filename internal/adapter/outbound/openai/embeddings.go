package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/port/outbound"
)

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateEmbedding generates a fixed-dimension embedding for text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) (*outbound.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	url := c.deploymentURL(c.config.EmbeddingDeployment, "embeddings")
	var resp embeddingResponse
	if err := c.postJSON(ctx, url, embeddingRequest{Input: []string{text}}, &resp); err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}

	vector := resp.Data[0].Embedding
	if len(vector) != entity.EmbeddingDimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d",
			len(vector), entity.EmbeddingDimensions)
	}

	return &outbound.EmbeddingResult{
		Vector:     vector,
		Dimensions: len(vector),
		Model:      resp.Model,
		TokenCount: resp.Usage.TotalTokens,
	}, nil
}
