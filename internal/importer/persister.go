package importer

import (
	"context"
	"log"
	"time"

	"baseoff-import/internal/domain"
)

// ClientStore persists accumulated clients and resolves their generated
// identifiers. Implementations upsert keyed on CPF.
type ClientStore interface {
	UpsertBatch(ctx context.Context, clients []domain.Client) error
	ResolveIDs(ctx context.Context, cpfs []string) (map[string]int64, error)
}

// ContractStore persists accumulated contracts, upserting keyed on the
// composite (cpf, contrato).
type ContractStore interface {
	UpsertBatch(ctx context.Context, contracts []domain.Contract) error
}

// resolveChunk bounds the IN-list size of a CPF lookup.
const resolveChunk = 200

// Persister flushes a completed run state into storage: first all client
// batches, then CPF→id resolution, then all contract batches. Batch-level
// failures are counted and skipped, never fatal.
type Persister struct {
	clients   ClientStore
	contracts ContractStore

	// pause is the micro-delay between persistence batches that keeps the
	// host responsive; it has no correctness role.
	pause time.Duration
}

func NewPersister(clients ClientStore, contracts ContractStore, pause time.Duration) *Persister {
	return &Persister{clients: clients, contracts: contracts, pause: pause}
}

// Flush runs both persistence phases. progress receives (done, total)
// counts over clients plus contracts. The returned error is nil unless the
// context was cancelled; batch failures only mutate the result counters.
func (p *Persister) Flush(ctx context.Context, state *RunState, batchID int64, userID int64, progress func(done, total int)) error {
	total := state.ClientCount() + state.ContractCount()
	done := 0
	report := func() {
		if progress != nil {
			progress(done, total)
		}
	}

	// Phase A: clients, strictly before any contract.
	saved := make(map[string]bool, state.ClientCount())
	for _, batch := range state.clientBatches() {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range batch {
			batch[i].ImportBatchID = batchID
			batch[i].ImportedBy = userID
		}

		if err := p.clients.UpsertBatch(ctx, batch); err != nil {
			log.Printf("[IMPORT] client batch failed (%d rows): %v", len(batch), err)
			state.Result.Errors += len(batch)
		} else {
			state.Result.Success += len(batch)
			for _, c := range batch {
				saved[c.CPF] = true
			}
		}

		done += len(batch)
		report()
		p.breathe()
	}

	// Resolve generated ids for the clients that made it in.
	ids, err := p.resolveIDs(ctx, saved)
	if err != nil {
		return err
	}

	// Phase B: contracts, dropping any whose client never resolved.
	linked := make([]domain.Contract, 0, state.ContractCount())
	for _, c := range state.contracts {
		id, ok := ids[c.CPF]
		if !ok {
			done++
			continue
		}
		contract := *c
		contract.ClienteID = id
		contract.ImportBatchID = batchID
		linked = append(linked, contract)
	}

	for start := 0; start < len(linked); start += state.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + state.BatchSize
		if end > len(linked) {
			end = len(linked)
		}
		batch := linked[start:end]

		if err := p.contracts.UpsertBatch(ctx, batch); err != nil {
			log.Printf("[IMPORT] contract batch failed (%d rows): %v", len(batch), err)
			state.Result.Errors += len(batch)
		} else {
			state.Result.ContractsInserted += len(batch)
		}

		done += len(batch)
		report()
		p.breathe()
	}

	report()
	return nil
}

func (p *Persister) resolveIDs(ctx context.Context, saved map[string]bool) (map[string]int64, error) {
	cpfs := make([]string, 0, len(saved))
	for cpf := range saved {
		cpfs = append(cpfs, cpf)
	}

	ids := make(map[string]int64, len(cpfs))
	for start := 0; start < len(cpfs); start += resolveChunk {
		end := start + resolveChunk
		if end > len(cpfs) {
			end = len(cpfs)
		}
		resolved, err := p.clients.ResolveIDs(ctx, cpfs[start:end])
		if err != nil {
			return nil, err
		}
		for cpf, id := range resolved {
			ids[cpf] = id
		}
	}
	return ids, nil
}

func (p *Persister) breathe() {
	if p.pause > 0 {
		time.Sleep(p.pause)
	}
}
