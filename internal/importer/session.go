package importer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"baseoff-import/internal/domain"
)

// Phase is the orchestrator's state. Runs move idle → reading → processing
// → saving → done; failed is reachable from any non-idle phase.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReading    Phase = "reading"
	PhaseProcessing Phase = "processing"
	PhaseSaving     Phase = "saving"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// ProgressEvent is one discrete progress report. Percent is monotonically
// non-decreasing over a run: reading 0–30, processing 30–50, saving 50–100.
type ProgressEvent struct {
	Phase     Phase   `json:"phase"`
	Percent   float64 `json:"percent"`
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
}

// BatchStore owns the ImportBatch audit record lifecycle.
type BatchStore interface {
	Create(ctx context.Context, batch *domain.ImportBatch) (int64, error)
	Finish(ctx context.Context, id int64, status string, result domain.ImportResult, errMsg string) error
}

// LogStore writes the import_logs compliance row.
type LogStore interface {
	Insert(ctx context.Context, entry domain.ImportLog) error
}

// CompanyResolver looks up the importing user's active company affiliation
// for the audit log; nil means no affiliation.
type CompanyResolver interface {
	ActiveCompany(ctx context.Context, userID int64) (*string, error)
}

// ErrRunActive is returned when Run is called on a session already driving
// a run. Concurrent runs are not supported; callers start a new session per
// import instead.
var ErrRunActive = errors.New("import run already active")

// Session drives one import run end to end: batch record creation, chunked
// reading, accumulation, persistence, audit logging. A session is good for
// exactly one run.
type Session struct {
	reader    ChunkReader
	persister *Persister
	batches   BatchStore
	logs      LogStore
	users     CompanyResolver

	fileName  string
	userID    int64
	batchSize int

	progress func(ProgressEvent)
	phase    Phase
	batchID  int64
}

type SessionConfig struct {
	Reader    ChunkReader
	Persister *Persister
	Batches   BatchStore
	Logs      LogStore
	Users     CompanyResolver

	FileName  string
	UserID    int64
	BatchSize int

	// OnProgress receives discrete progress events; may be nil.
	OnProgress func(ProgressEvent)
}

func NewSession(cfg SessionConfig) *Session {
	return &Session{
		reader:    cfg.Reader,
		persister: cfg.Persister,
		batches:   cfg.Batches,
		logs:      cfg.Logs,
		users:     cfg.Users,
		fileName:  cfg.FileName,
		userID:    cfg.UserID,
		batchSize: cfg.BatchSize,
		progress:  cfg.OnProgress,
		phase:     PhaseIdle,
	}
}

// Phase reports the session's current phase.
func (s *Session) Phase() Phase { return s.phase }

// BatchID reports the id of the ImportBatch record this run created, or 0
// before the run reached that point.
func (s *Session) BatchID() int64 { return s.batchID }

// Run executes the import. Row- and batch-level failures are absorbed into
// the result; only unexpected failures (I/O, storage) surface as the
// returned error, and even then the partial result is returned so callers
// can show what was accumulated.
func (s *Session) Run(ctx context.Context) (domain.ImportResult, error) {
	if s.phase != PhaseIdle {
		return domain.ImportResult{}, ErrRunActive
	}

	s.setPhase(PhaseReading, 0, 0, 0)

	batch := &domain.ImportBatch{
		FileName: s.fileName,
		UserID:   s.userID,
		Status:   domain.ImportStatusProcessing,
	}
	batchID, err := s.batches.Create(ctx, batch)
	if err != nil {
		s.phase = PhaseFailed
		return domain.ImportResult{}, fmt.Errorf("create import batch: %w", err)
	}
	s.batchID = batchID

	state := NewRunState(s.batchSize)
	headerMap := BuildHeaderMap(s.reader.Headers())
	totalRows := s.reader.TotalRows()

	err = s.reader.ReadChunks(ctx, s.batchSize, func(rows [][]string, index int, last bool) error {
		if index == 0 {
			s.setPhase(PhaseProcessing, 30, 0, totalRows)
		}
		for _, cells := range rows {
			state.Consume(state.Result.Total+1, NormalizeRow(cells, headerMap))
		}
		s.emitProcessing(state.Result.Total, totalRows, index)
		return nil
	})
	if err != nil {
		return s.fail(ctx, batchID, state, fmt.Errorf("read import file: %w", err))
	}

	s.setPhase(PhaseSaving, 50, state.Result.Total, totalRows)

	err = s.persister.Flush(ctx, state, batchID, s.userID, func(done, total int) {
		percent := 100.0
		if total > 0 {
			percent = 50 + 50*float64(done)/float64(total)
		}
		s.emit(PhaseSaving, percent, done, total)
	})
	if err != nil {
		return s.fail(ctx, batchID, state, fmt.Errorf("persist import: %w", err))
	}

	if err := s.batches.Finish(ctx, batchID, domain.ImportStatusCompleted, state.Result, ""); err != nil {
		return s.fail(ctx, batchID, state, fmt.Errorf("finish import batch: %w", err))
	}
	s.writeLog(ctx, batchID, state.Result)

	s.setPhase(PhaseDone, 100, state.Result.Total, state.Result.Total)
	return state.Result, nil
}

func (s *Session) fail(ctx context.Context, batchID int64, state *RunState, cause error) (domain.ImportResult, error) {
	s.phase = PhaseFailed
	if err := s.batches.Finish(ctx, batchID, domain.ImportStatusFailed, state.Result, cause.Error()); err != nil {
		// The original cause matters more than the bookkeeping failure.
		log.Printf("[IMPORT] mark batch failed: %v", err)
	}
	return state.Result, cause
}

func (s *Session) writeLog(ctx context.Context, batchID int64, result domain.ImportResult) {
	var company *string
	if s.users != nil {
		if c, err := s.users.ActiveCompany(ctx, s.userID); err == nil {
			company = c
		}
	}

	entry := domain.ImportLog{
		BatchID:           batchID,
		FileName:          s.fileName,
		UserID:            s.userID,
		Company:           company,
		Total:             result.Total,
		Success:           result.Success,
		Errors:            result.Errors,
		Duplicates:        result.Duplicates,
		ContractsDetected: result.ContractsDetected,
		ContractsInserted: result.ContractsInserted,
	}
	if s.logs != nil {
		if err := s.logs.Insert(ctx, entry); err != nil {
			log.Printf("[IMPORT] write import log: %v", err)
		}
	}
}

func (s *Session) emitProcessing(processed, total, chunkIndex int) {
	percent := 30.0
	if total > 0 {
		percent += 20 * float64(processed) / float64(total)
	} else {
		// Unknown total (streamed XLSX): advance asymptotically by chunk.
		percent += 20 * float64(chunkIndex+1) / float64(chunkIndex+2)
	}
	if percent > 50 {
		percent = 50
	}
	s.emit(PhaseProcessing, percent, processed, total)
}

func (s *Session) setPhase(phase Phase, percent float64, processed, total int) {
	s.phase = phase
	s.emit(phase, percent, processed, total)
}

func (s *Session) emit(phase Phase, percent float64, processed, total int) {
	if s.progress != nil {
		s.progress(ProgressEvent{Phase: phase, Percent: percent, Processed: processed, Total: total})
	}
}
