package importer

import "baseoff-import/internal/domain"

const (
	errCPFMissing = "CPF inválido ou ausente"
	errNBMissing  = "NB ausente"
)

// RunState holds everything one import run accumulates: the client map
// keyed by CPF, the contract buffer with its seen-key set, and the running
// result. A fresh RunState is created per run and discarded after the
// persister has flushed it; nothing here is shared between runs.
type RunState struct {
	BatchSize int

	clients     map[string]*domain.Client
	clientOrder []string

	contracts     []*domain.Contract
	seenContracts map[string]struct{}

	Result domain.ImportResult
}

func NewRunState(batchSize int) *RunState {
	return &RunState{
		BatchSize:     batchSize,
		clients:       make(map[string]*domain.Client),
		seenContracts: make(map[string]struct{}),
	}
}

// Consume applies one normalized row to the run state. rowNum is the
// 1-based data row number used in error details. Rules, in order:
// a row without CPF or without NB is counted as an error and contributes
// nothing; the first row of a CPF defines the client (first-wins); a
// (CPF, contrato) pair is buffered at most once, repeats only bump the
// duplicate counter.
func (s *RunState) Consume(rowNum int, row Row) {
	s.Result.Total++

	if row.CPF == "" {
		s.rowError(rowNum, errCPFMissing)
		return
	}
	if row.NB == "" {
		s.rowError(rowNum, errNBMissing)
		return
	}

	if _, ok := s.clients[row.CPF]; !ok {
		s.clients[row.CPF] = &domain.Client{
			CPF:            row.CPF,
			NB:             row.NB,
			Nome:           row.Nome,
			DataNascimento: row.DataNascimento,
			Especie:        row.Especie,
			Endereco:       row.Endereco,
			Bairro:         row.Bairro,
			Cidade:         row.Cidade,
			UF:             row.UF,
			CEP:            row.CEP,
			Telefone1:      row.Telefone1,
			Telefone2:      row.Telefone2,
			Email1:         row.Email1,
			Email2:         row.Email2,
		}
		s.clientOrder = append(s.clientOrder, row.CPF)
	}

	if row.Contrato == "" || row.BancoEmprestimo == "" {
		return
	}

	key := row.CPF + "-" + row.Contrato
	if _, seen := s.seenContracts[key]; seen {
		s.Result.Duplicates++
		return
	}
	s.seenContracts[key] = struct{}{}

	s.contracts = append(s.contracts, &domain.Contract{
		CPF:             row.CPF,
		Contrato:        row.Contrato,
		BancoEmprestimo: row.BancoEmprestimo,
		ValorEmprestimo: row.ValorEmprestimo,
		ValorParcela:    row.ValorParcela,
		Prazo:           row.Prazo,
		Taxa:            row.Taxa,
		SaldoDevedor:    row.SaldoDevedor,
		InicioDesconto:  row.InicioDesconto,
		DataAverbacao:   row.DataAverbacao,
		Competencia:     row.Competencia,
		Situacao:        row.Situacao,
	})
	s.Result.ContractsDetected++
}

func (s *RunState) rowError(rowNum int, msg string) {
	s.Result.Errors++
	s.Result.ErrorDetails = append(s.Result.ErrorDetails, domain.RowError{Row: rowNum, Error: msg})
}

// ClientCount reports how many unique clients are buffered.
func (s *RunState) ClientCount() int { return len(s.clients) }

// ContractCount reports how many unique contracts are buffered.
func (s *RunState) ContractCount() int { return len(s.contracts) }

// Client returns the buffered client for a CPF, or nil.
func (s *RunState) Client(cpf string) *domain.Client { return s.clients[cpf] }

// clientBatches yields the buffered clients in insertion order, sliced into
// batches of at most BatchSize.
func (s *RunState) clientBatches() [][]domain.Client {
	var batches [][]domain.Client
	for start := 0; start < len(s.clientOrder); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(s.clientOrder) {
			end = len(s.clientOrder)
		}
		batch := make([]domain.Client, 0, end-start)
		for _, cpf := range s.clientOrder[start:end] {
			batch = append(batch, *s.clients[cpf])
		}
		batches = append(batches, batch)
	}
	return batches
}
