package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/port/outbound"
)

// analysisPrompt instructs the vision model to return the three extraction
// channels as a single JSON object.
const analysisPrompt = `You are analyzing one page of a board game rule booklet.
Return a JSON object with exactly these keys:
  "extracted_text": all readable text on the page, transcribed verbatim
  "visual_description": a concise description of diagrams, illustrations and layout
  "labels": an array of short keyword labels for the page content
Use an empty string or empty array for channels that do not apply.
Return only the JSON object, no markdown fences.`

type chatRequest struct {
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// pageAnalysis is the JSON shape the vision model is asked to produce.
type pageAnalysis struct {
	ExtractedText     string   `json:"extracted_text"`
	VisualDescription string   `json:"visual_description"`
	Labels            []string `json:"labels"`
}

// ProcessImage runs the full extraction pipeline for one image: a vision
// chat completion for the three channels, then one embedding per non-empty
// channel. An empty analysis is reported as an unsuccessful result rather
// than an error so callers can distinguish model outcomes from transport
// failures.
func (c *Client) ProcessImage(ctx context.Context, imageData []byte, filename string) (*outbound.ImageAnalysisResult, error) {
	if len(imageData) == 0 {
		return nil, errors.New("image data cannot be empty")
	}

	analysis, err := c.analyzeImage(ctx, imageData, filename)
	if err != nil {
		return nil, err
	}

	result := &outbound.ImageAnalysisResult{
		ExtractedText:     analysis.ExtractedText,
		VisualDescription: analysis.VisualDescription,
		Labels:            analysis.Labels,
	}

	if analysis.ExtractedText == "" && analysis.VisualDescription == "" && len(analysis.Labels) == 0 {
		result.ErrorMessage = "vision model returned no extractable content"
		return result, nil
	}

	if analysis.ExtractedText != "" {
		embedding, embErr := c.GenerateEmbedding(ctx, analysis.ExtractedText)
		if embErr != nil {
			return nil, fmt.Errorf("text embedding failed: %w", embErr)
		}
		result.TextEmbedding = embedding.Vector
	}
	if analysis.VisualDescription != "" {
		embedding, embErr := c.GenerateEmbedding(ctx, analysis.VisualDescription)
		if embErr != nil {
			return nil, fmt.Errorf("description embedding failed: %w", embErr)
		}
		result.DescriptionEmbedding = embedding.Vector
	}
	if len(analysis.Labels) > 0 {
		embedding, embErr := c.GenerateEmbedding(ctx, strings.Join(analysis.Labels, ", "))
		if embErr != nil {
			return nil, fmt.Errorf("labels embedding failed: %w", embErr)
		}
		result.LabelsEmbedding = embedding.Vector
	}

	result.Success = true
	slogger.Debug(ctx, "Image analysis complete", slogger.Fields{
		"filename":        filename,
		"text_length":     len(analysis.ExtractedText),
		"labels_count":    len(analysis.Labels),
		"has_description": analysis.VisualDescription != "",
	})
	return result, nil
}

func (c *Client) analyzeImage(ctx context.Context, imageData []byte, filename string) (*pageAnalysis, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		imageMIMEType(filename), base64.StdEncoding.EncodeToString(imageData))

	request := chatRequest{
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContent{
					{Type: "text", Text: analysisPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens:      4096,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	url := c.deploymentURL(c.config.VisionDeployment, "chat/completions")
	var resp chatResponse
	if err := c.postJSON(ctx, url, request, &resp); err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("vision response contained no choices")
	}

	var analysis pageAnalysis
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse vision response: %w", err)
	}
	return &analysis, nil
}

// imageMIMEType guesses the MIME type from the filename extension,
// defaulting to JPEG.
func imageMIMEType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
