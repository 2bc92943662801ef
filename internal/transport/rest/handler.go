package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"baseoff-import/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ClientImporter interface {
	StartClientImport(
		ctx context.Context,
		fileName string,
		data []byte,
		batchSize int,
		userID int64,
	) (string, error)
}

type ImportListService interface {
	GetImports(ctx context.Context, userID int64) ([]interface{}, error)
	GetImport(ctx context.Context, importID string, userID int64) (interface{}, error)
	GetHistory(ctx context.Context, userID int64, limit int) ([]domain.ImportBatch, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

type Handler struct {
	imports    ClientImporter
	importList ImportListService
	users      UserFinder
}

func NewHandler(imports ClientImporter, importList ImportListService, users UserFinder) *Handler {
	return &Handler{
		imports:    imports,
		importList: importList,
		users:      users,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "baseoff-import up")
	})

	r.Get("/me", h.me)

	r.Route("/import", func(r chi.Router) {
		r.Get("/", h.listImports)
		r.Get("/batches", h.importHistory)
		r.Get("/{import_id}", h.getImport)
		r.Post("/clientes", h.importClientes)
	})

	return r
}
