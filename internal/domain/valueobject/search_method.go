package valueobject

import "fmt"

// SearchMethod selects which extraction channel is used for similarity
// ranking. Each channel has its own embedding and content column; the
// mapping is a closed table so unsupported methods are rejected up front.
type SearchMethod string

// Search method constants.
const (
	SearchMethodOCR         SearchMethod = "ocr"
	SearchMethodDescription SearchMethod = "description"
	SearchMethodLabels      SearchMethod = "labels"
)

// searchMethodColumns maps each method to its embedding and content columns.
var searchMethodColumns = map[SearchMethod]struct {
	embedding string
	content   string
}{
	SearchMethodOCR:         {embedding: "ocr_embedding", content: "ocr_content"},
	SearchMethodDescription: {embedding: "description_embedding", content: "description_content"},
	SearchMethodLabels:      {embedding: "labels_embedding", content: "labels_content"},
}

// NewSearchMethod creates a new SearchMethod with validation.
func NewSearchMethod(method string) (SearchMethod, error) {
	m := SearchMethod(method)
	if _, ok := searchMethodColumns[m]; !ok {
		return "", fmt.Errorf("unsupported search method: %s", method)
	}
	return m, nil
}

// String returns the string representation of the method.
func (m SearchMethod) String() string {
	return string(m)
}

// EmbeddingColumn returns the embedding column used for similarity ranking.
func (m SearchMethod) EmbeddingColumn() string {
	return searchMethodColumns[m].embedding
}

// ContentColumn returns the content column paired with the method's embedding.
func (m SearchMethod) ContentColumn() string {
	return searchMethodColumns[m].content
}

// AllSearchMethods returns all supported search methods.
func AllSearchMethods() []SearchMethod {
	return []SearchMethod{SearchMethodOCR, SearchMethodDescription, SearchMethodLabels}
}

// ContentColumnForField resolves a caller-requested content field name to a
// column. The returned bool is false for unrecognized field names, which
// callers skip silently rather than failing the whole request.
func ContentColumnForField(field string) (SearchMethod, bool) {
	m := SearchMethod(field)
	_, ok := searchMethodColumns[m]
	return m, ok
}
