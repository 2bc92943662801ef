package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"baseoff-import/internal/clients"
	"baseoff-import/internal/domain"
	"baseoff-import/internal/importer"

	"github.com/google/uuid"
)

const (
	importSetKey = "import_ids"
	importTTL    = 20 * time.Minute

	// Row-level error details shown to the operator before the overflow
	// marker kicks in.
	maxErrorDetails = 20

	defaultBatchSize = 500
	batchPause       = 10 * time.Millisecond
)

// batch size doubles as read-chunk size; one knob for both.
var allowedBatchSizes = map[int]bool{100: true, 250: true, 500: true, 1000: true, 2000: true}

var (
	ErrImportInProgress = errors.New("já existe uma importação em andamento para este usuário")
	ErrBadBatchSize     = errors.New("batch size inválido: use 100, 250, 500, 1000 ou 2000")
)

// ImportStatus is the redis-backed view of one import run.
type ImportStatus struct {
	Key       string            `json:"key"`
	Type      string            `json:"type"`
	UserID    int64             `json:"user_id"`
	FileName  string            `json:"file_name"`
	BatchSize int               `json:"batch_size"`
	Phase     string            `json:"phase"`
	Progress  float64           `json:"progress"`
	Result    *ImportResultView `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Created   time.Time         `json:"created_at"`
}

// ImportResultView is the result summary as shown in the result panel:
// full counters, error details capped at maxErrorDetails with an overflow
// note.
type ImportResultView struct {
	Total             int               `json:"total"`
	Success           int               `json:"success"`
	Errors            int               `json:"errors"`
	Duplicates        int               `json:"duplicates"`
	ContractsDetected int               `json:"contracts_detected"`
	ContractsInserted int               `json:"contracts_inserted"`
	ErrorDetails      []domain.RowError `json:"error_details"`
	ErrorOverflow     string            `json:"error_overflow,omitempty"`
}

func NewImportResultView(r domain.ImportResult) *ImportResultView {
	details, overflow := r.LimitedDetails(maxErrorDetails)
	return &ImportResultView{
		Total:             r.Total,
		Success:           r.Success,
		Errors:            r.Errors,
		Duplicates:        r.Duplicates,
		ContractsDetected: r.ContractsDetected,
		ContractsInserted: r.ContractsInserted,
		ErrorDetails:      details,
		ErrorOverflow:     overflow,
	}
}

// BatchStore extends the orchestrator's batch lifecycle with the archive
// bookkeeping only the service cares about.
type BatchStore interface {
	importer.BatchStore
	SetArchiveKey(ctx context.Context, id int64, key string) error
}

// SourceArchiver stores the original upload of a finished run; the
// returned key later backs presigned download links.
type SourceArchiver interface {
	ArchiveSource(ctx context.Context, batchID int64, fileName string, data []byte) (string, error)
}

type ImportService struct {
	clientStore   importer.ClientStore
	contractStore importer.ContractStore
	batchStore    BatchStore
	logStore      importer.LogStore
	users         importer.CompanyResolver

	redis *clients.RedisClient
	s3    SourceArchiver
	ws    *clients.WebSocketClient

	mu     sync.Mutex
	active map[int64]string // userID -> importID of the run in flight
}

func NewImportService(
	clientStore importer.ClientStore,
	contractStore importer.ContractStore,
	batchStore BatchStore,
	logStore importer.LogStore,
	users importer.CompanyResolver,
	redis *clients.RedisClient,
	s3 SourceArchiver,
	ws *clients.WebSocketClient,
) *ImportService {
	return &ImportService{
		clientStore:   clientStore,
		contractStore: contractStore,
		batchStore:    batchStore,
		logStore:      logStore,
		users:         users,
		redis:         redis,
		s3:            s3,
		ws:            ws,
		active:        make(map[int64]string),
	}
}

// StartClientImport validates the upload, registers the run and starts it
// in the background. It returns the import id the caller polls or listens
// on. A user can only drive one run at a time.
func (s *ImportService) StartClientImport(
	ctx context.Context,
	fileName string,
	data []byte,
	batchSize int,
	userID int64,
) (string, error) {
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}
	if !allowedBatchSizes[batchSize] {
		return "", ErrBadBatchSize
	}

	// Opening the reader up front surfaces unreadable files synchronously.
	reader, err := importer.OpenReader(fileName, data)
	if err != nil {
		return "", err
	}

	// The bare id is what the caller gets back; the prefixed key is the
	// redis record the status endpoints resolve it to.
	importID := uuid.NewString()
	key := fmt.Sprintf("imports:%s", importID)

	s.mu.Lock()
	if running, ok := s.active[userID]; ok {
		s.mu.Unlock()
		_ = reader.Close()
		log.Printf("[IMPORT] rejected concurrent run for user %d (active: %s)", userID, running)
		return "", ErrImportInProgress
	}
	s.active[userID] = key
	s.mu.Unlock()

	status := &ImportStatus{
		Key:       key,
		Type:      "clientes",
		UserID:    userID,
		FileName:  fileName,
		BatchSize: batchSize,
		Phase:     string(importer.PhaseIdle),
		Progress:  0,
		Created:   time.Now(),
	}
	s.saveStatus(ctx, status)

	go s.runImport(context.Background(), reader, status, fileName, data, batchSize, userID)

	return importID, nil
}

func (s *ImportService) runImport(
	ctx context.Context,
	reader importer.ChunkReader,
	status *ImportStatus,
	fileName string,
	data []byte,
	batchSize int,
	userID int64,
) {
	defer func() {
		s.mu.Lock()
		delete(s.active, userID)
		s.mu.Unlock()
	}()
	defer reader.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[IMPORT] run %s panicked: %v", status.Key, r)
			status.Phase = string(importer.PhaseFailed)
			status.Error = fmt.Sprintf("erro inesperado: %v", r)
			s.saveStatus(ctx, status)
			_ = s.ws.NotifyImportFailed(ctx, userID, status.Key, status.Error)
		}
	}()

	session := importer.NewSession(importer.SessionConfig{
		Reader:    reader,
		Persister: importer.NewPersister(s.clientStore, s.contractStore, batchPause),
		Batches:   s.batchStore,
		Logs:      s.logStore,
		Users:     s.users,
		FileName:  fileName,
		UserID:    userID,
		BatchSize: batchSize,
		OnProgress: func(ev importer.ProgressEvent) {
			status.Phase = string(ev.Phase)
			status.Progress = ev.Percent
			s.saveStatus(ctx, status)
			_ = s.ws.NotifyImportProgress(ctx, userID, status.Key, ev)
		},
	})

	result, err := session.Run(ctx)
	status.Result = NewImportResultView(result)

	if err != nil {
		log.Printf("[IMPORT] run %s failed: %v", status.Key, err)
		status.Phase = string(importer.PhaseFailed)
		status.Error = err.Error()
		s.saveStatus(ctx, status)
		_ = s.ws.NotifyImportFailed(ctx, userID, status.Key, err.Error())
		return
	}

	status.Phase = string(importer.PhaseDone)
	status.Progress = 100
	s.saveStatus(ctx, status)
	_ = s.ws.NotifyImportComplete(ctx, userID, status.Key, fileName, result)

	if s.s3 != nil {
		if key, err := s.s3.ArchiveSource(ctx, session.BatchID(), fileName, data); err != nil {
			log.Printf("[IMPORT] archive of %s failed: %v", fileName, err)
		} else {
			log.Printf("[IMPORT] archived source as %s", key)
			if err := s.batchStore.SetArchiveKey(ctx, session.BatchID(), key); err != nil {
				log.Printf("[IMPORT] record archive key for batch %d: %v", session.BatchID(), err)
			}
		}
	}
}

func (s *ImportService) saveStatus(ctx context.Context, st *ImportStatus) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(st)
	if err != nil {
		log.Printf("[IMPORT] marshal status %s: %v", st.Key, err)
		return
	}

	if err := s.redis.Set(ctx, st.Key, string(data), importTTL); err != nil {
		log.Printf("[IMPORT] save status %s: %v", st.Key, err)
		return
	}
	_ = s.redis.SAdd(ctx, importSetKey, st.Key)
}
