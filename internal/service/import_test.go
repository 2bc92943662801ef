package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"baseoff-import/internal/clients"
	"baseoff-import/internal/domain"
)

type stubClientStore struct{}

func (stubClientStore) UpsertBatch(ctx context.Context, cs []domain.Client) error { return nil }

func (stubClientStore) ResolveIDs(ctx context.Context, cpfs []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(cpfs))
	for i, cpf := range cpfs {
		ids[cpf] = int64(i + 1)
	}
	return ids, nil
}

type stubContractStore struct{}

func (stubContractStore) UpsertBatch(ctx context.Context, cs []domain.Contract) error { return nil }

type stubBatchStore struct {
	archived chan string
}

func (s *stubBatchStore) Create(ctx context.Context, batch *domain.ImportBatch) (int64, error) {
	return 42, nil
}

func (s *stubBatchStore) Finish(ctx context.Context, id int64, status string, result domain.ImportResult, errMsg string) error {
	return nil
}

func (s *stubBatchStore) SetArchiveKey(ctx context.Context, id int64, key string) error {
	s.archived <- key
	return nil
}

type stubLogStore struct{}

func (stubLogStore) Insert(ctx context.Context, entry domain.ImportLog) error { return nil }

type stubArchiver struct {
	gotBatch int64
	gotName  string
}

func (a *stubArchiver) ArchiveSource(ctx context.Context, batchID int64, fileName string, data []byte) (string, error) {
	a.gotBatch = batchID
	a.gotName = fileName
	return fmt.Sprintf("imports/%d_%s", batchID, fileName), nil
}

func TestStartClientImport_ReturnsBareIDAndArchivesSource(t *testing.T) {
	batchStore := &stubBatchStore{archived: make(chan string, 1)}
	archiver := &stubArchiver{}

	svc := NewImportService(
		stubClientStore{}, stubContractStore{}, batchStore, stubLogStore{},
		nil, nil, archiver, clients.NewWebSocketClient(nil),
	)

	id, err := svc.StartClientImport(context.Background(), "base.csv", []byte("CPF;NB\n12345678909;1\n"), 0, 7)
	if err != nil {
		t.Fatalf("StartClientImport: %v", err)
	}

	// The caller gets the bare id; the "imports:" prefix is internal to
	// the redis key and added back by the lookup endpoints.
	if strings.HasPrefix(id, "imports:") {
		t.Errorf("id must not carry the redis prefix, got %q", id)
	}
	if len(id) != 36 {
		t.Errorf("expected uuid-shaped id, got %q", id)
	}

	select {
	case key := <-batchStore.archived:
		if key != "imports/42_base.csv" {
			t.Errorf("archive key = %q", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("archive key never recorded on the batch")
	}

	if archiver.gotBatch != 42 || archiver.gotName != "base.csv" {
		t.Errorf("archiver got batch=%d name=%q", archiver.gotBatch, archiver.gotName)
	}
}

func TestNewImportResultView_CapsErrorDetails(t *testing.T) {
	result := domain.ImportResult{Total: 100, Errors: 25}
	for i := 1; i <= 25; i++ {
		result.ErrorDetails = append(result.ErrorDetails, domain.RowError{Row: i, Error: "CPF inválido ou ausente"})
	}

	view := NewImportResultView(result)

	if len(view.ErrorDetails) != maxErrorDetails {
		t.Fatalf("expected %d details, got %d", maxErrorDetails, len(view.ErrorDetails))
	}
	if view.ErrorOverflow != "... e mais 5 erros" {
		t.Errorf("overflow = %q", view.ErrorOverflow)
	}
	if view.Errors != 25 {
		t.Errorf("Errors counter must stay complete, got %d", view.Errors)
	}
}

func TestNewImportResultView_NoOverflow(t *testing.T) {
	result := domain.ImportResult{
		Errors:       2,
		ErrorDetails: []domain.RowError{{Row: 1, Error: "NB ausente"}, {Row: 7, Error: "NB ausente"}},
	}

	view := NewImportResultView(result)

	if len(view.ErrorDetails) != 2 {
		t.Fatalf("expected 2 details, got %d", len(view.ErrorDetails))
	}
	if view.ErrorOverflow != "" {
		t.Errorf("unexpected overflow note: %q", view.ErrorOverflow)
	}
}

func TestHumanizePtAgo(t *testing.T) {
	now := time.Now()
	cases := []struct {
		t    time.Time
		want string
	}{
		{now, "agora mesmo"},
		{now.Add(time.Minute), "agora mesmo"}, // clock skew
		{now.Add(-90 * time.Second), "há 1 minuto"},
		{now.Add(-5 * time.Minute), "há 5 minutos"},
		{now.Add(-3 * time.Hour), "há 3 horas"},
		{now.Add(-48 * time.Hour), "há 2 dias"},
	}
	for _, c := range cases {
		if got := humanizePtAgo(c.t); got != c.want {
			t.Errorf("humanizePtAgo(%v) = %q, want %q", c.t, got, c.want)
		}
	}

	// very old timestamps fall back to the literal date
	old := now.Add(-24 * 40 * time.Hour)
	if got := humanizePtAgo(old); !strings.Contains(got, "/") {
		t.Errorf("expected literal date for old timestamp, got %q", got)
	}
}
