package outbound

import "context"

// ImageAnalysisResult is what the AI backend extracted from one image.
// Each channel is independently optional: a channel's content and embedding
// are either both present or both absent.
type ImageAnalysisResult struct {
	ExtractedText        string
	TextEmbedding        []float64
	VisualDescription    string
	DescriptionEmbedding []float64
	Labels               []string
	LabelsEmbedding      []float64
	Success              bool
	ErrorMessage         string
}

// ImageAnalysisService defines the AI backend contract: given image bytes,
// return extracted text, a visual description, a label list, and the
// embeddings for each channel.
type ImageAnalysisService interface {
	ProcessImage(ctx context.Context, imageData []byte, filename string) (*ImageAnalysisResult, error)
}
