package repository

import (
	"context"
	"database/sql"
	"fmt"

	"baseoff-import/internal/domain"
)

type ImportBatchRepository struct {
	db *sql.DB
}

func NewImportBatchRepository(db *sql.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

// Create inserts the batch record in "processing" status and returns its
// generated id.
func (r *ImportBatchRepository) Create(ctx context.Context, batch *domain.ImportBatch) (int64, error) {
	query := `
		INSERT INTO import_batches (file_name, user_id, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, batch.FileName, batch.UserID, batch.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create import batch: %w", err)
	}
	batch.ID = id
	return id, nil
}

// Finish moves the batch to its terminal status with final counts. errMsg
// is stored only for failed runs.
func (r *ImportBatchRepository) Finish(ctx context.Context, id int64, status string, result domain.ImportResult, errMsg string) error {
	query := `
		UPDATE import_batches
		SET status        = $2,
			total_rows    = $3,
			success_count = $4,
			error_count   = $5,
			error_message = NULLIF($6, ''),
			finished_at   = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, result.Total, result.Success, result.Errors, errMsg)
	if err != nil {
		return fmt.Errorf("finish import batch %d: %w", id, err)
	}
	return nil
}

// SetArchiveKey records where the original upload of a finished run was
// archived.
func (r *ImportBatchRepository) SetArchiveKey(ctx context.Context, id int64, key string) error {
	query := `UPDATE import_batches SET archive_key = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("set archive key for batch %d: %w", id, err)
	}
	return nil
}

// List returns a user's import batches, most recent first.
func (r *ImportBatchRepository) List(ctx context.Context, userID int64, limit int) ([]domain.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, file_name, user_id, status,
			COALESCE(total_rows, 0), COALESCE(success_count, 0), COALESCE(error_count, 0),
			error_message, archive_key, created_at, finished_at
		FROM import_batches
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()

	var result []domain.ImportBatch
	for rows.Next() {
		var b domain.ImportBatch
		if err := rows.Scan(
			&b.ID,
			&b.FileName,
			&b.UserID,
			&b.Status,
			&b.TotalRows,
			&b.SuccessCount,
			&b.ErrorCount,
			&b.ErrorMessage,
			&b.ArchiveKey,
			&b.CreatedAt,
			&b.FinishedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
