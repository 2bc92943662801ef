package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"baseoff-import/internal/domain"
)

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// UpsertBatch writes one batch of clients keyed on CPF. Conflicting rows
// are updated in place so re-importing the same base never duplicates a
// client.
func (r *ClientRepository) UpsertBatch(ctx context.Context, clients []domain.Client) error {
	if len(clients) == 0 {
		return nil
	}

	const cols = 16
	placeholders := make([]string, 0, len(clients))
	args := make([]any, 0, len(clients)*cols)

	for i, c := range clients {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		args = append(args,
			c.CPF,
			c.NB,
			nullStr(c.Nome),
			nullStr(c.DataNascimento),
			nullStr(c.Especie),
			nullStr(c.Endereco),
			nullStr(c.Bairro),
			nullStr(c.Cidade),
			nullStr(c.UF),
			nullStr(c.CEP),
			nullStr(c.Telefone1),
			nullStr(c.Telefone2),
			nullStr(c.Email1),
			nullStr(c.Email2),
			c.ImportBatchID,
			c.ImportedBy,
		)
	}

	query := `
		INSERT INTO clientes (
			cpf, nb, nome, data_nascimento, especie,
			endereco, bairro, cidade, uf, cep,
			telefone1, telefone2, email1, email2,
			import_batch_id, imported_by
		)
		VALUES ` + strings.Join(placeholders, ",\n\t\t") + `
		ON CONFLICT (cpf) DO UPDATE SET
			nb              = EXCLUDED.nb,
			nome            = COALESCE(EXCLUDED.nome, clientes.nome),
			data_nascimento = COALESCE(EXCLUDED.data_nascimento, clientes.data_nascimento),
			especie         = COALESCE(EXCLUDED.especie, clientes.especie),
			endereco        = COALESCE(EXCLUDED.endereco, clientes.endereco),
			bairro          = COALESCE(EXCLUDED.bairro, clientes.bairro),
			cidade          = COALESCE(EXCLUDED.cidade, clientes.cidade),
			uf              = COALESCE(EXCLUDED.uf, clientes.uf),
			cep             = COALESCE(EXCLUDED.cep, clientes.cep),
			telefone1       = COALESCE(EXCLUDED.telefone1, clientes.telefone1),
			telefone2       = COALESCE(EXCLUDED.telefone2, clientes.telefone2),
			email1          = COALESCE(EXCLUDED.email1, clientes.email1),
			email2          = COALESCE(EXCLUDED.email2, clientes.email2),
			import_batch_id = EXCLUDED.import_batch_id,
			imported_by     = EXCLUDED.imported_by,
			updated_at      = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert clientes batch (%d rows): %w", len(clients), err)
	}
	return nil
}

// ResolveIDs maps CPFs to their generated client ids. CPFs with no row are
// simply absent from the result.
func (r *ClientRepository) ResolveIDs(ctx context.Context, cpfs []string) (map[string]int64, error) {
	if len(cpfs) == 0 {
		return map[string]int64{}, nil
	}

	placeholders := make([]string, len(cpfs))
	args := make([]any, len(cpfs))
	for i, cpf := range cpfs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = cpf
	}

	query := "SELECT id, cpf FROM clientes WHERE cpf IN (" + strings.Join(placeholders, ", ") + ")"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve client ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64, len(cpfs))
	for rows.Next() {
		var (
			id  int64
			cpf string
		)
		if err := rows.Scan(&id, &cpf); err != nil {
			return nil, err
		}
		result[cpf] = id
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
