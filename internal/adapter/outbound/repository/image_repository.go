package repository

import (
	"context"
	"fmt"
	"time"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const imageColumns = `id, game_id, batch_id, blob_path, original_filename,
		file_size, processing_status, retry_count, processing_error,
		created_at, updated_at, processing_started_at, processing_completed_at`

// PostgreSQLGameImageRepository implements the GameImageRepository port.
type PostgreSQLGameImageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLGameImageRepository creates a new image repository.
func NewPostgreSQLGameImageRepository(pool *pgxpool.Pool) *PostgreSQLGameImageRepository {
	return &PostgreSQLGameImageRepository{pool: pool}
}

// Save persists a new game image.
func (r *PostgreSQLGameImageRepository) Save(ctx context.Context, image *entity.GameImage) error {
	query := `
		INSERT INTO game_images (id, game_id, batch_id, blob_path,
			original_filename, file_size, processing_status, retry_count,
			processing_error, created_at, updated_at, processing_started_at,
			processing_completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	qi := GetQueryInterface(ctx, r.pool)
	_, err := qi.Exec(ctx, query,
		image.ID(),
		image.GameID(),
		image.BatchID(),
		image.BlobPath(),
		image.OriginalFilename(),
		image.FileSize(),
		image.ProcessingStatus().String(),
		image.RetryCount(),
		image.ProcessingError(),
		image.CreatedAt(),
		image.UpdatedAt(),
		image.ProcessingStartedAt(),
		image.ProcessingCompletedAt(),
	)
	if err != nil {
		return WrapError(err, "save game image")
	}
	return nil
}

// FindByID retrieves an image by ID. Returns nil without error when the
// image does not exist.
func (r *PostgreSQLGameImageRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.GameImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_images WHERE id = $1`, imageColumns)

	qi := GetQueryInterface(ctx, r.pool)
	image, err := scanImage(qi.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, WrapError(err, "find game image by id")
	}
	return image, nil
}

// FindByBatchID retrieves the images of a batch, optionally filtered by
// processing status. An empty status returns all images of the batch.
func (r *PostgreSQLGameImageRepository) FindByBatchID(
	ctx context.Context,
	batchID uuid.UUID,
	status valueobject.ImageProcessingStatus,
) ([]*entity.GameImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_images WHERE batch_id = $1`, imageColumns)
	args := []any{batchID}
	if status != "" {
		query += ` AND processing_status = $2`
		args = append(args, status.String())
	}
	query += ` ORDER BY created_at ASC`

	return r.queryImages(ctx, "find game images by batch id", query, args...)
}

// FindByGameID retrieves a page of images belonging to a game, newest first.
func (r *PostgreSQLGameImageRepository) FindByGameID(
	ctx context.Context,
	gameID uuid.UUID,
	limit, offset int,
) ([]*entity.GameImage, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM game_images WHERE game_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		imageColumns)
	return r.queryImages(ctx, "find game images by game id", query, gameID, limit, offset)
}

// Update persists the mutable fields of an existing image.
func (r *PostgreSQLGameImageRepository) Update(ctx context.Context, image *entity.GameImage) error {
	query := `
		UPDATE game_images
		SET processing_status = $2, retry_count = $3, processing_error = $4,
			updated_at = $5, processing_started_at = $6,
			processing_completed_at = $7
		WHERE id = $1`

	qi := GetQueryInterface(ctx, r.pool)
	result, err := qi.Exec(ctx, query,
		image.ID(),
		image.ProcessingStatus().String(),
		image.RetryCount(),
		image.ProcessingError(),
		image.UpdatedAt(),
		image.ProcessingStartedAt(),
		image.ProcessingCompletedAt(),
	)
	if err != nil {
		return WrapError(err, "update game image")
	}
	if result.RowsAffected() == 0 {
		return WrapError(ErrNotFound, "update game image")
	}
	return nil
}

// ClaimForProcessing atomically moves an image to processing. The UPDATE
// only matches claimable rows, so of two workers handling a duplicate
// delivery exactly one wins; the loser gets ErrStaleJob.
func (r *PostgreSQLGameImageRepository) ClaimForProcessing(ctx context.Context, imageID uuid.UUID) (*entity.GameImage, error) {
	query := fmt.Sprintf(`
		UPDATE game_images
		SET processing_status = $2, processing_started_at = $3, updated_at = $3
		WHERE id = $1 AND processing_status IN ($4, $5)
		RETURNING %s`, imageColumns)

	now := time.Now()
	qi := GetQueryInterface(ctx, r.pool)
	image, err := scanImage(qi.QueryRow(ctx, query,
		imageID,
		valueobject.ImageStatusProcessing.String(),
		now,
		valueobject.ImageStatusUploaded.String(),
		valueobject.ImageStatusRetrying.String(),
	))
	if err == nil {
		return image, nil
	}
	if !IsNotFoundError(err) {
		return nil, WrapError(err, "claim game image")
	}

	// No claimable row matched: distinguish a missing image from one
	// already owned or settled.
	existing, findErr := r.FindByID(ctx, imageID)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, domainerrors.ErrImageNotFound
	}
	return nil, domainerrors.ErrStaleJob
}

func (r *PostgreSQLGameImageRepository) queryImages(
	ctx context.Context,
	operation string,
	query string,
	args ...any,
) ([]*entity.GameImage, error) {
	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, args...)
	if err != nil {
		return nil, WrapError(err, operation)
	}
	defer rows.Close()

	var images []*entity.GameImage
	for rows.Next() {
		image, scanErr := scanImage(rows)
		if scanErr != nil {
			return nil, WrapError(scanErr, operation)
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, operation)
	}
	return images, nil
}

func scanImage(row pgx.Row) (*entity.GameImage, error) {
	var (
		id                    uuid.UUID
		gameID                uuid.UUID
		batchID               *uuid.UUID
		blobPath              string
		originalFilename      string
		fileSize              int64
		statusStr             string
		retryCount            int
		processingError       *string
		createdAt             time.Time
		updatedAt             time.Time
		processingStartedAt   *time.Time
		processingCompletedAt *time.Time
	)

	err := row.Scan(
		&id, &gameID, &batchID, &blobPath, &originalFilename,
		&fileSize, &statusStr, &retryCount, &processingError,
		&createdAt, &updatedAt, &processingStartedAt, &processingCompletedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := valueobject.NewImageProcessingStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored image status %q: %w", statusStr, err)
	}

	return entity.RestoreGameImage(
		id, gameID, batchID, blobPath, originalFilename, fileSize,
		status, retryCount, processingError,
		createdAt, updatedAt, processingStartedAt, processingCompletedAt,
	), nil
}
