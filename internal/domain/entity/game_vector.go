package entity

import (
	"time"

	"ruleindex/internal/domain/valueobject"

	"github.com/google/uuid"
)

// EmbeddingDimensions is the fixed dimensionality of every stored embedding.
const EmbeddingDimensions = 1536

// ChannelPair holds one extraction channel's content together with its
// embedding. A channel is either fully present or fully absent.
type ChannelPair struct {
	Content   string
	Embedding []float64
}

// GameVector is the durable output of successfully processing one image:
// up to three independent channel pairs (OCR text, visual description,
// structured labels), each with its own 1536-dim embedding.
type GameVector struct {
	id          uuid.UUID
	gameID      uuid.UUID
	imageID     uuid.UUID
	ocr         *ChannelPair
	description *ChannelPair
	labels      *ChannelPair
	pageNumber  *int
	createdAt   time.Time
}

// NewGameVector creates a GameVector from whichever channels the AI backend
// returned. Channels with empty content or empty embeddings are dropped so
// the both-or-neither invariant holds. At least one channel is required.
func NewGameVector(
	gameID uuid.UUID,
	imageID uuid.UUID,
	ocr, description, labels *ChannelPair,
	pageNumber *int,
) (*GameVector, error) {
	ocr = normalizeChannel(ocr)
	description = normalizeChannel(description)
	labels = normalizeChannel(labels)

	if ocr == nil && description == nil && labels == nil {
		return nil, NewDomainError("vector must contain at least one channel", "EMPTY_VECTOR")
	}

	return &GameVector{
		id:          uuid.New(),
		gameID:      gameID,
		imageID:     imageID,
		ocr:         ocr,
		description: description,
		labels:      labels,
		pageNumber:  pageNumber,
		createdAt:   time.Now(),
	}, nil
}

// RestoreGameVector creates a GameVector entity from stored data.
func RestoreGameVector(
	id uuid.UUID,
	gameID uuid.UUID,
	imageID uuid.UUID,
	ocr, description, labels *ChannelPair,
	pageNumber *int,
	createdAt time.Time,
) *GameVector {
	return &GameVector{
		id:          id,
		gameID:      gameID,
		imageID:     imageID,
		ocr:         normalizeChannel(ocr),
		description: normalizeChannel(description),
		labels:      normalizeChannel(labels),
		pageNumber:  pageNumber,
		createdAt:   createdAt,
	}
}

// normalizeChannel enforces the both-or-neither invariant for one channel.
func normalizeChannel(pair *ChannelPair) *ChannelPair {
	if pair == nil {
		return nil
	}
	if pair.Content == "" || len(pair.Embedding) == 0 {
		return nil
	}
	return pair
}

// ID returns the vector ID.
func (v *GameVector) ID() uuid.UUID {
	return v.id
}

// GameID returns the owning game ID.
func (v *GameVector) GameID() uuid.UUID {
	return v.gameID
}

// ImageID returns the owning image ID.
func (v *GameVector) ImageID() uuid.UUID {
	return v.imageID
}

// OCR returns the OCR channel pair, nil when absent.
func (v *GameVector) OCR() *ChannelPair {
	return v.ocr
}

// Description returns the visual description channel pair, nil when absent.
func (v *GameVector) Description() *ChannelPair {
	return v.description
}

// Labels returns the structured labels channel pair, nil when absent.
func (v *GameVector) Labels() *ChannelPair {
	return v.labels
}

// PageNumber returns the page number within the source booklet, if known.
func (v *GameVector) PageNumber() *int {
	return v.pageNumber
}

// CreatedAt returns the creation timestamp.
func (v *GameVector) CreatedAt() time.Time {
	return v.createdAt
}

// Channel returns the pair backing the given search method, nil when absent.
func (v *GameVector) Channel(method valueobject.SearchMethod) *ChannelPair {
	switch method {
	case valueobject.SearchMethodOCR:
		return v.ocr
	case valueobject.SearchMethodDescription:
		return v.description
	case valueobject.SearchMethodLabels:
		return v.labels
	default:
		return nil
	}
}

// HasChannel reports whether the given search method's channel is present.
func (v *GameVector) HasChannel(method valueobject.SearchMethod) bool {
	return v.Channel(method) != nil
}

// Equal compares two GameVector entities by identity.
func (v *GameVector) Equal(other *GameVector) bool {
	if other == nil {
		return false
	}
	return v.id == other.id
}
