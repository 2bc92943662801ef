package repository

import (
	"context"
	"database/sql"
	"errors"

	"baseoff-import/internal/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT
			u.id,
			u.first_name,
			u.last_name,
			u.username,
			u.email,
			u.phone,
			ec.company_name
		FROM users u
		LEFT JOIN (
			SELECT eu.user_id, e.nome AS company_name
			FROM empresa_usuario eu
			JOIN empresas e ON e.id = eu.empresa_id
			WHERE eu.ativo
		) ec ON ec.user_id = u.id
		WHERE u.id = $1 AND u.deleted_at IS NULL
	`

	var u domain.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&u.Phone,
		&u.Company,
	)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// ActiveCompany resolves the user's active company affiliation for audit
// logging. A user with no affiliation yields (nil, nil).
func (r *UserRepository) ActiveCompany(ctx context.Context, userID int64) (*string, error) {
	query := `
		SELECT e.nome
		FROM empresa_usuario eu
		JOIN empresas e ON e.id = eu.empresa_id
		WHERE eu.user_id = $1 AND eu.ativo
		ORDER BY eu.created_at DESC
		LIMIT 1
	`

	var company string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&company)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}
