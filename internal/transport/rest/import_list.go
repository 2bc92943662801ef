package rest

import (
	"log"
	"net/http"
	"strconv"

	"baseoff-import/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listImports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	imports, err := h.importList.GetImports(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] listImports error: %v", err)
		ErrorInternal(w, "failed to get imports")
		return
	}

	Success(w, "", imports)
}

func (h *Handler) getImport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	importIDParam := chi.URLParam(r, "import_id")
	if importIDParam == "" {
		ErrorBadRequest(w, "import_id is required")
		return
	}
	importID := "imports:" + importIDParam

	status, err := h.importList.GetImport(r.Context(), importID, userID)
	if err != nil {
		log.Printf("[HTTP] getImport error: %v", err)
		ErrorNotFound(w, "import not found")
		return
	}

	Success(w, "", status)
}

func (h *Handler) importHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	batches, err := h.importList.GetHistory(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[HTTP] importHistory error: %v", err)
		ErrorInternal(w, "failed to get import history")
		return
	}

	Success(w, "", batches)
}
