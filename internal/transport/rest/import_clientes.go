package rest

import (
	"errors"
	"io"
	"log"
	"net/http"

	"baseoff-import/internal/service"
	"baseoff-import/internal/transport/auth"
)

// maxImportUpload bounds the multipart form; batch-chunked parsing bounds
// everything after it.
const maxImportUpload = 64 << 20 // 64 MB

func (h *Handler) importClientes(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		ErrorBadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	if err := ValidateImportFileName(header.Filename); err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	batchSize, err := ParseBatchSize(r.FormValue("batch_size"))
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		ErrorInternal(w, "failed to read uploaded file")
		return
	}

	importID, err := h.imports.StartClientImport(r.Context(), header.Filename, data, batchSize, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportInProgress):
			ErrorConflict(w, err.Error())
		case errors.Is(err, service.ErrBadBatchSize):
			ErrorBadRequest(w, err.Error())
		default:
			log.Printf("[HTTP] startClientImport error: %v", err)
			ErrorBadRequest(w, "arquivo inválido ou ilegível")
		}
		return
	}

	SuccessAccepted(w, "Importação iniciada", map[string]interface{}{
		"import_id": importID,
	})
}
