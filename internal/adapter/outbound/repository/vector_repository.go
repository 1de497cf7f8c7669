package repository

import (
	"context"
	"fmt"
	"time"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"
	"ruleindex/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const vectorColumns = `id, game_id, image_id, ocr_content, ocr_embedding,
		description_content, description_embedding, labels_content,
		labels_embedding, page_number, created_at`

// PostgreSQLGameVectorRepository implements the GameVectorRepository port
// using pgvector columns, one embedding per extraction channel.
type PostgreSQLGameVectorRepository struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLGameVectorRepository creates a new vector repository.
func NewPostgreSQLGameVectorRepository(pool *pgxpool.Pool) *PostgreSQLGameVectorRepository {
	return &PostgreSQLGameVectorRepository{pool: pool}
}

// Save persists the vector row for one image. Absent channels store NULL
// in both the content and embedding columns. Each image holds exactly one
// row: reprocessing replaces the previous extraction instead of adding a
// second row, so a repeated attempt after a partial failure stays safe.
func (r *PostgreSQLGameVectorRepository) Save(ctx context.Context, vector *entity.GameVector) error {
	query := `
		INSERT INTO game_vectors (id, game_id, image_id, ocr_content,
			ocr_embedding, description_content, description_embedding,
			labels_content, labels_embedding, page_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (image_id) DO UPDATE SET
			game_id = EXCLUDED.game_id,
			ocr_content = EXCLUDED.ocr_content,
			ocr_embedding = EXCLUDED.ocr_embedding,
			description_content = EXCLUDED.description_content,
			description_embedding = EXCLUDED.description_embedding,
			labels_content = EXCLUDED.labels_content,
			labels_embedding = EXCLUDED.labels_embedding,
			page_number = EXCLUDED.page_number`

	ocrContent, ocrEmbedding := channelColumns(vector.OCR())
	descContent, descEmbedding := channelColumns(vector.Description())
	labelsContent, labelsEmbedding := channelColumns(vector.Labels())

	qi := GetQueryInterface(ctx, r.pool)
	_, err := qi.Exec(ctx, query,
		vector.ID(),
		vector.GameID(),
		vector.ImageID(),
		ocrContent, ocrEmbedding,
		descContent, descEmbedding,
		labelsContent, labelsEmbedding,
		vector.PageNumber(),
		vector.CreatedAt(),
	)
	if err != nil {
		return WrapError(err, "save game vector")
	}
	return nil
}

// FindByID finds a vector by its ID. Returns nil when not found.
func (r *PostgreSQLGameVectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.GameVector, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_vectors WHERE id = $1`, vectorColumns)

	qi := GetQueryInterface(ctx, r.pool)
	vector, err := scanVector(qi.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, WrapError(err, "find game vector by id")
	}
	return vector, nil
}

// FindByImageID lists the vectors extracted from one image.
func (r *PostgreSQLGameVectorRepository) FindByImageID(ctx context.Context, imageID uuid.UUID) ([]*entity.GameVector, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_vectors WHERE image_id = $1 ORDER BY created_at ASC`, vectorColumns)

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, imageID)
	if err != nil {
		return nil, WrapError(err, "find game vectors by image id")
	}
	defer rows.Close()

	var vectors []*entity.GameVector
	for rows.Next() {
		vector, scanErr := scanVector(rows)
		if scanErr != nil {
			return nil, WrapError(scanErr, "scan game vector")
		}
		vectors = append(vectors, vector)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate game vectors")
	}
	return vectors, nil
}

// DeleteByImageID removes all vectors owned by an image.
func (r *PostgreSQLGameVectorRepository) DeleteByImageID(ctx context.Context, imageID uuid.UUID) (int, error) {
	qi := GetQueryInterface(ctx, r.pool)
	result, err := qi.Exec(ctx, `DELETE FROM game_vectors WHERE image_id = $1`, imageID)
	if err != nil {
		return 0, WrapError(err, "delete game vectors by image id")
	}
	return int(result.RowsAffected()), nil
}

// SearchSimilar ranks one game's vectors against the query embedding using
// pgvector's cosine distance on the method's embedding column. Rows whose
// channel is absent are excluded by the NOT NULL condition.
func (r *PostgreSQLGameVectorRepository) SearchSimilar(
	ctx context.Context,
	gameID uuid.UUID,
	queryEmbedding []float64,
	method valueobject.SearchMethod,
	limit int,
	similarityThreshold float64,
) ([]outbound.VectorSimilarityResult, error) {
	if len(queryEmbedding) != entity.EmbeddingDimensions {
		return nil, fmt.Errorf("query embedding must have %d dimensions, got %d",
			entity.EmbeddingDimensions, len(queryEmbedding))
	}

	// Column names come from the closed SearchMethod table, never from input.
	embeddingColumn := method.EmbeddingColumn()
	query := fmt.Sprintf(`
		SELECT id, game_id, image_id, ocr_content, description_content,
			labels_content, page_number, created_at,
			1 - (%s <=> $2::vector) AS similarity_score
		FROM game_vectors
		WHERE game_id = $1
			AND %s IS NOT NULL
			AND 1 - (%s <=> $2::vector) >= $3
		ORDER BY similarity_score DESC, created_at ASC
		LIMIT $4`, embeddingColumn, embeddingColumn, embeddingColumn)

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, gameID, vectorToString(queryEmbedding), similarityThreshold, limit)
	if err != nil {
		return nil, WrapError(err, "search similar vectors")
	}
	defer rows.Close()

	var results []outbound.VectorSimilarityResult
	for rows.Next() {
		var res outbound.VectorSimilarityResult
		scanErr := rows.Scan(
			&res.VectorID, &res.GameID, &res.ImageID,
			&res.OCRContent, &res.DescriptionContent, &res.LabelsContent,
			&res.PageNumber, &res.CreatedAt, &res.SimilarityScore,
		)
		if scanErr != nil {
			return nil, WrapError(scanErr, "scan similarity result")
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate similarity results")
	}
	return results, nil
}

// channelColumns flattens a channel pair into its two column values.
func channelColumns(pair *entity.ChannelPair) (*string, *string) {
	if pair == nil {
		return nil, nil
	}
	content := pair.Content
	embedding := vectorToString(pair.Embedding)
	return &content, &embedding
}

func scanVector(row pgx.Row) (*entity.GameVector, error) {
	var (
		id            uuid.UUID
		gameID        uuid.UUID
		imageID       uuid.UUID
		ocrContent    *string
		ocrEmbedding  *string
		descContent   *string
		descEmbedding *string
		labelsContent *string
		labelsEmbed   *string
		pageNumber    *int
		createdAt     time.Time
	)

	err := row.Scan(
		&id, &gameID, &imageID, &ocrContent, &ocrEmbedding,
		&descContent, &descEmbedding, &labelsContent, &labelsEmbed,
		&pageNumber, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	ocr, err := restoreChannel(ocrContent, ocrEmbedding)
	if err != nil {
		return nil, fmt.Errorf("invalid ocr channel: %w", err)
	}
	description, err := restoreChannel(descContent, descEmbedding)
	if err != nil {
		return nil, fmt.Errorf("invalid description channel: %w", err)
	}
	labels, err := restoreChannel(labelsContent, labelsEmbed)
	if err != nil {
		return nil, fmt.Errorf("invalid labels channel: %w", err)
	}

	return entity.RestoreGameVector(id, gameID, imageID, ocr, description, labels, pageNumber, createdAt), nil
}

func restoreChannel(content, embedding *string) (*entity.ChannelPair, error) {
	if content == nil || embedding == nil {
		return nil, nil
	}
	vector, err := stringToVector(*embedding)
	if err != nil {
		return nil, err
	}
	return &entity.ChannelPair{Content: *content, Embedding: vector}, nil
}
