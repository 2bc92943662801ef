package repository

import (
	"context"
	"database/sql"
	"fmt"

	"baseoff-import/internal/domain"
)

type ImportLogRepository struct {
	db *sql.DB
}

func NewImportLogRepository(db *sql.DB) *ImportLogRepository {
	return &ImportLogRepository{db: db}
}

func (r *ImportLogRepository) Insert(ctx context.Context, entry domain.ImportLog) error {
	query := `
		INSERT INTO import_logs (
			batch_id, file_name, user_id, company,
			total_rows, success_count, error_count,
			duplicate_count, contracts_detected, contracts_inserted,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.BatchID,
		entry.FileName,
		entry.UserID,
		entry.Company,
		entry.Total,
		entry.Success,
		entry.Errors,
		entry.Duplicates,
		entry.ContractsDetected,
		entry.ContractsInserted,
	)
	if err != nil {
		return fmt.Errorf("insert import log: %w", err)
	}
	return nil
}
