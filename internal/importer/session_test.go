package importer

import (
	"context"
	"errors"
	"testing"

	"baseoff-import/internal/domain"
)

type fakeBatchStore struct {
	created      *domain.ImportBatch
	finishStatus string
	finishResult domain.ImportResult
	finishErrMsg string
	finished     int
}

func (f *fakeBatchStore) Create(ctx context.Context, batch *domain.ImportBatch) (int64, error) {
	f.created = batch
	return 42, nil
}

func (f *fakeBatchStore) Finish(ctx context.Context, id int64, status string, result domain.ImportResult, errMsg string) error {
	f.finished++
	f.finishStatus = status
	f.finishResult = result
	f.finishErrMsg = errMsg
	return nil
}

type fakeLogStore struct {
	entries []domain.ImportLog
}

func (f *fakeLogStore) Insert(ctx context.Context, entry domain.ImportLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeCompanyResolver struct{ company string }

func (f *fakeCompanyResolver) ActiveCompany(ctx context.Context, userID int64) (*string, error) {
	if f.company == "" {
		return nil, nil
	}
	return &f.company, nil
}

func newTestSession(t *testing.T, csv string, batchSize int, onProgress func(ProgressEvent)) (*Session, *fakeClientStore, *fakeContractStore, *fakeBatchStore, *fakeLogStore) {
	t.Helper()

	reader, err := OpenReader("base.csv", []byte(csv))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })

	clients := newFakeClientStore()
	contracts := &fakeContractStore{}
	batches := &fakeBatchStore{}
	logs := &fakeLogStore{}

	session := NewSession(SessionConfig{
		Reader:     reader,
		Persister:  NewPersister(clients, contracts, 0),
		Batches:    batches,
		Logs:       logs,
		Users:      &fakeCompanyResolver{company: "Parceira Sul"},
		FileName:   "base.csv",
		UserID:     7,
		BatchSize:  batchSize,
		OnProgress: onProgress,
	})
	return session, clients, contracts, batches, logs
}

func TestSession_Run(t *testing.T) {
	csv := "CPF;NOME;NB;CONTRATO;BANCO\n" +
		"12345678909;Maria;111;C1;001\n" +
		"12345678909;Maria;111;C1;001\n" +
		";Joao;222;C2;001\n"

	var events []ProgressEvent
	session, clients, contracts, batches, logs := newTestSession(t, csv, 500, func(e ProgressEvent) {
		events = append(events, e)
	})

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
	if result.Success != 1 {
		t.Errorf("Success = %d, want 1", result.Success)
	}
	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Errors)
	}
	if result.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", result.Duplicates)
	}
	if result.ContractsDetected != 1 {
		t.Errorf("ContractsDetected = %d, want 1", result.ContractsDetected)
	}
	if result.ContractsInserted != 1 {
		t.Errorf("ContractsInserted = %d, want 1", result.ContractsInserted)
	}
	if len(result.ErrorDetails) != 1 || result.ErrorDetails[0].Row != 3 {
		t.Errorf("ErrorDetails = %+v", result.ErrorDetails)
	}

	if session.Phase() != PhaseDone {
		t.Errorf("Phase = %q, want done", session.Phase())
	}
	if session.BatchID() != 42 {
		t.Errorf("BatchID = %d, want 42", session.BatchID())
	}

	if batches.created == nil || batches.created.Status != domain.ImportStatusProcessing {
		t.Errorf("batch not created in processing status: %+v", batches.created)
	}
	if batches.finished != 1 || batches.finishStatus != domain.ImportStatusCompleted {
		t.Errorf("batch finish: count=%d status=%q", batches.finished, batches.finishStatus)
	}

	if len(logs.entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs.entries))
	}
	entry := logs.entries[0]
	if entry.BatchID != 42 || entry.UserID != 7 || entry.Company == nil || *entry.Company != "Parceira Sul" {
		t.Errorf("log entry = %+v", entry)
	}

	if len(clients.batches) != 1 || len(contracts.batches) != 1 {
		t.Errorf("store calls: clients=%d contracts=%d", len(clients.batches), len(contracts.batches))
	}

	// Progress is monotonic and ends at done/100.
	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	if events[0].Phase != PhaseReading || events[0].Percent != 0 {
		t.Errorf("first event = %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Phase != PhaseDone || last.Percent != 100 {
		t.Errorf("last event = %+v", last)
	}
	prev := -1.0
	seen := map[Phase]bool{}
	for _, e := range events {
		if e.Percent < prev {
			t.Fatalf("percent went backwards: %v after %v", e.Percent, prev)
		}
		prev = e.Percent
		seen[e.Phase] = true
	}
	for _, phase := range []Phase{PhaseReading, PhaseProcessing, PhaseSaving, PhaseDone} {
		if !seen[phase] {
			t.Errorf("phase %q never reported", phase)
		}
	}
}

func TestSession_RunOnceOnly(t *testing.T) {
	session, _, _, _, _ := newTestSession(t, "CPF;NB\n12345678909;1\n", 500, nil)

	if _, err := session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := session.Run(context.Background()); !errors.Is(err, ErrRunActive) {
		t.Fatalf("second Run: err = %v, want ErrRunActive", err)
	}
}

type failingReader struct{ headers []string }

func (f *failingReader) Headers() []string { return f.headers }
func (f *failingReader) TotalRows() int    { return -1 }
func (f *failingReader) Close() error      { return nil }
func (f *failingReader) ReadChunks(ctx context.Context, size int, fn ChunkFunc) error {
	return errors.New("truncated stream")
}

func TestSession_ReadFailureMarksBatchFailed(t *testing.T) {
	batches := &fakeBatchStore{}
	session := NewSession(SessionConfig{
		Reader:    &failingReader{headers: []string{"CPF", "NB"}},
		Persister: NewPersister(newFakeClientStore(), &fakeContractStore{}, 0),
		Batches:   batches,
		FileName:  "base.csv",
		UserID:    7,
		BatchSize: 500,
	})

	_, err := session.Run(context.Background())
	if err == nil {
		t.Fatal("expected read error")
	}
	if session.Phase() != PhaseFailed {
		t.Errorf("Phase = %q, want failed", session.Phase())
	}
	if batches.finishStatus != domain.ImportStatusFailed {
		t.Errorf("finish status = %q, want failed", batches.finishStatus)
	}
	if batches.finishErrMsg == "" {
		t.Error("failed batch must carry an error message")
	}
}
