package repository

import (
	"context"
	"fmt"
	"time"

	"ruleindex/internal/domain/entity"
	"ruleindex/internal/domain/valueobject"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const batchColumns = `id, game_id, total_images, processed_images, failed_images,
		status, retry_count, max_retries, created_at, updated_at,
		processing_started_at, completed_at`

// PostgreSQLImageBatchRepository implements the ImageBatchRepository port.
type PostgreSQLImageBatchRepository struct {
	pool      *pgxpool.Pool
	txManager *TransactionManager
}

// NewPostgreSQLImageBatchRepository creates a new batch repository.
func NewPostgreSQLImageBatchRepository(pool *pgxpool.Pool) *PostgreSQLImageBatchRepository {
	return &PostgreSQLImageBatchRepository{
		pool:      pool,
		txManager: NewTransactionManager(pool),
	}
}

// Save persists a new image batch.
func (r *PostgreSQLImageBatchRepository) Save(ctx context.Context, batch *entity.ImageBatch) error {
	query := `
		INSERT INTO image_batches (id, game_id, total_images, processed_images,
			failed_images, status, retry_count, max_retries, created_at,
			updated_at, processing_started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	qi := GetQueryInterface(ctx, r.pool)
	_, err := qi.Exec(ctx, query,
		batch.ID(),
		batch.GameID(),
		batch.TotalImages(),
		batch.ProcessedImages(),
		batch.FailedImages(),
		batch.Status().String(),
		batch.RetryCount(),
		batch.MaxRetries(),
		batch.CreatedAt(),
		batch.UpdatedAt(),
		batch.ProcessingStartedAt(),
		batch.CompletedAt(),
	)
	if err != nil {
		return WrapError(err, "save image batch")
	}
	return nil
}

// FindByID retrieves a batch by ID. Returns nil without error when the
// batch does not exist.
func (r *PostgreSQLImageBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ImageBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM image_batches WHERE id = $1`, batchColumns)

	qi := GetQueryInterface(ctx, r.pool)
	batch, err := scanBatch(qi.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, WrapError(err, "find image batch by id")
	}
	return batch, nil
}

// FindByStatus retrieves batches in the given status, oldest first.
func (r *PostgreSQLImageBatchRepository) FindByStatus(
	ctx context.Context,
	status valueobject.BatchStatus,
	limit int,
) ([]*entity.ImageBatch, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM image_batches WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		batchColumns)

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, status.String(), limit)
	if err != nil {
		return nil, WrapError(err, "find image batches by status")
	}
	defer rows.Close()

	var batches []*entity.ImageBatch
	for rows.Next() {
		batch, scanErr := scanBatch(rows)
		if scanErr != nil {
			return nil, WrapError(scanErr, "scan image batch")
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate image batches")
	}
	return batches, nil
}

// Update persists the mutable fields of an existing batch.
func (r *PostgreSQLImageBatchRepository) Update(ctx context.Context, batch *entity.ImageBatch) error {
	query := `
		UPDATE image_batches
		SET processed_images = $2, failed_images = $3, status = $4,
			retry_count = $5, updated_at = $6, processing_started_at = $7,
			completed_at = $8
		WHERE id = $1`

	qi := GetQueryInterface(ctx, r.pool)
	result, err := qi.Exec(ctx, query,
		batch.ID(),
		batch.ProcessedImages(),
		batch.FailedImages(),
		batch.Status().String(),
		batch.RetryCount(),
		batch.UpdatedAt(),
		batch.ProcessingStartedAt(),
		batch.CompletedAt(),
	)
	if err != nil {
		return WrapError(err, "update image batch")
	}
	if result.RowsAffected() == 0 {
		return WrapError(ErrNotFound, "update image batch")
	}
	return nil
}

// RecordOutcome atomically records one image outcome against the batch.
// The batch row is locked for the duration of the transaction, which
// serializes concurrent workers finishing images of the same batch.
func (r *PostgreSQLImageBatchRepository) RecordOutcome(
	ctx context.Context,
	batchID uuid.UUID,
	succeeded bool,
) (*entity.ImageBatch, error) {
	var updated *entity.ImageBatch

	err := r.txManager.WithTransactionRetry(ctx, 3, func(txCtx context.Context) error {
		batch, err := r.lockBatch(txCtx, batchID)
		if err != nil {
			return err
		}

		if err := batch.RecordImageOutcome(succeeded); err != nil {
			return err
		}
		if err := r.Update(txCtx, batch); err != nil {
			return err
		}

		updated = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lockBatch reads a batch row under FOR UPDATE inside the current transaction.
func (r *PostgreSQLImageBatchRepository) lockBatch(ctx context.Context, id uuid.UUID) (*entity.ImageBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM image_batches WHERE id = $1 FOR UPDATE`, batchColumns)

	qi := GetQueryInterface(ctx, r.pool)
	batch, err := scanBatch(qi.QueryRow(ctx, query, id))
	if err != nil {
		return nil, WrapError(err, "lock image batch")
	}
	return batch, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*entity.ImageBatch, error) {
	var (
		id                  uuid.UUID
		gameID              uuid.UUID
		totalImages         int
		processedImages     int
		failedImages        int
		statusStr           string
		retryCount          int
		maxRetries          int
		createdAt           time.Time
		updatedAt           time.Time
		processingStartedAt *time.Time
		completedAt         *time.Time
	)

	err := row.Scan(
		&id, &gameID, &totalImages, &processedImages, &failedImages,
		&statusStr, &retryCount, &maxRetries, &createdAt, &updatedAt,
		&processingStartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := valueobject.NewBatchStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored batch status %q: %w", statusStr, err)
	}

	return entity.RestoreImageBatch(
		id, gameID, totalImages, processedImages, failedImages,
		status, retryCount, maxRetries, createdAt, updatedAt,
		processingStartedAt, completedAt,
	), nil
}
