package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"baseoff-import/internal/domain"
)

type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// UpsertBatch writes one batch of contracts keyed on (cpf, contrato).
// Every contract must already carry its resolved cliente_id; orphans are
// filtered out by the persister before this is called.
func (r *ContractRepository) UpsertBatch(ctx context.Context, contracts []domain.Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	const cols = 14
	placeholders := make([]string, 0, len(contracts))
	args := make([]any, 0, len(contracts)*cols)

	for i, c := range contracts {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		args = append(args,
			c.ClienteID,
			c.CPF,
			c.Contrato,
			nullStr(c.BancoEmprestimo),
			c.ValorEmprestimo,
			c.ValorParcela,
			c.Prazo,
			c.Taxa,
			c.SaldoDevedor,
			nullStr(c.InicioDesconto),
			nullStr(c.DataAverbacao),
			nullStr(c.Competencia),
			nullStr(c.Situacao),
			c.ImportBatchID,
		)
	}

	query := `
		INSERT INTO contratos (
			cliente_id, cpf, contrato, banco_emprestimo,
			valor_emprestimo, valor_parcela, prazo, taxa, saldo_devedor,
			inicio_desconto, data_averbacao, competencia, situacao,
			import_batch_id
		)
		VALUES ` + strings.Join(placeholders, ",\n\t\t") + `
		ON CONFLICT (cpf, contrato) DO UPDATE SET
			cliente_id       = EXCLUDED.cliente_id,
			banco_emprestimo = EXCLUDED.banco_emprestimo,
			valor_emprestimo = COALESCE(EXCLUDED.valor_emprestimo, contratos.valor_emprestimo),
			valor_parcela    = COALESCE(EXCLUDED.valor_parcela, contratos.valor_parcela),
			prazo            = COALESCE(EXCLUDED.prazo, contratos.prazo),
			taxa             = COALESCE(EXCLUDED.taxa, contratos.taxa),
			saldo_devedor    = COALESCE(EXCLUDED.saldo_devedor, contratos.saldo_devedor),
			inicio_desconto  = COALESCE(EXCLUDED.inicio_desconto, contratos.inicio_desconto),
			data_averbacao   = COALESCE(EXCLUDED.data_averbacao, contratos.data_averbacao),
			competencia      = COALESCE(EXCLUDED.competencia, contratos.competencia),
			situacao         = COALESCE(EXCLUDED.situacao, contratos.situacao),
			import_batch_id  = EXCLUDED.import_batch_id,
			updated_at       = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert contratos batch (%d rows): %w", len(contracts), err)
	}
	return nil
}
