package domain

import (
	"fmt"
	"time"
)

const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// ImportBatch is the audit record of one import run. It is created in
// "processing" status before the first row is read and moved to a terminal
// status exactly once, by the session that owns it.
type ImportBatch struct {
	ID       int64
	FileName string
	UserID   int64
	Status   string

	TotalRows    int
	SuccessCount int
	ErrorCount   int

	ErrorMessage *string

	// ArchiveKey is the object-storage key of the archived source file,
	// set once the upload has been archived. ArchiveURL is a presigned
	// link derived from it at read time; it is never stored.
	ArchiveKey *string
	ArchiveURL string

	CreatedAt  time.Time
	FinishedAt *time.Time
}

// RowError records a row-level validation failure with its 1-based row
// number (header excluded).
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult is the in-memory aggregate of one run. It is mutated
// incrementally while the run is active and frozen when the session ends.
type ImportResult struct {
	Total             int        `json:"total"`
	Success           int        `json:"success"`
	Errors            int        `json:"errors"`
	Duplicates        int        `json:"duplicates"`
	ContractsDetected int        `json:"contracts_detected"`
	ContractsInserted int        `json:"contracts_inserted"`
	ErrorDetails      []RowError `json:"error_details"`
}

// LimitedDetails returns at most max error entries plus an overflow note
// for display ("... e mais N erros").
func (r *ImportResult) LimitedDetails(max int) ([]RowError, string) {
	if max <= 0 || len(r.ErrorDetails) <= max {
		return r.ErrorDetails, ""
	}
	rest := len(r.ErrorDetails) - max
	return r.ErrorDetails[:max], fmt.Sprintf("... e mais %d erros", rest)
}

// ImportLog is the compliance/history row written after every run.
type ImportLog struct {
	ID       int64
	BatchID  int64
	FileName string
	UserID   int64
	Company  *string

	Total             int
	Success           int
	Errors            int
	Duplicates        int
	ContractsDetected int
	ContractsInserted int

	CreatedAt time.Time
}
