package rest

import (
	"path/filepath"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Batch size selector exposed to the operator; one knob drives both the
// read-chunk size and the persistence-batch size.
var allowedBatchSizes = []int{100, 250, 500, 1000, 2000}

// ParseBatchSize validates the optional batch_size form value. An empty
// value means "use the default" and is reported as 0.
func ParseBatchSize(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "batch_size", Message: "batch_size must be an integer"}
	}
	for _, allowed := range allowedBatchSizes {
		if n == allowed {
			return n, nil
		}
	}
	return 0, &ValidationError{Field: "batch_size", Message: "batch_size must be one of 100, 250, 500, 1000, 2000"}
}

// ValidateImportFileName checks the upload extension before any byte is
// parsed.
func ValidateImportFileName(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xls":
		return nil
	default:
		return &ValidationError{Field: "file", Message: "file must be .csv, .xlsx or .xls"}
	}
}
