package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"baseoff-import/internal/clients"
	"baseoff-import/internal/domain"
)

// BatchLister reads the persisted import history.
type BatchLister interface {
	List(ctx context.Context, userID int64, limit int) ([]domain.ImportBatch, error)
}

// ArchiveLinker presigns temporary download links for archived source
// files.
type ArchiveLinker interface {
	GetTemporaryURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// archiveURLTTL bounds how long a presigned source-file link stays valid.
const archiveURLTTL = 15 * time.Minute

// ImportListService serves the in-flight/recent runs kept in redis and the
// durable import history kept in Postgres.
type ImportListService struct {
	redis   *clients.RedisClient
	batches BatchLister
	links   ArchiveLinker
}

func NewImportListService(redis *clients.RedisClient, batches BatchLister, links ArchiveLinker) *ImportListService {
	return &ImportListService{
		redis:   redis,
		batches: batches,
		links:   links,
	}
}

func (s *ImportListService) GetImports(ctx context.Context, userID int64) ([]interface{}, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, importSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get import keys: %w", err)
	}

	var statuses []ImportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}

		var status ImportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}

		if status.UserID == userID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	var imports []interface{}
	for _, status := range statuses {
		imports = append(imports, s.toMap(status))
	}

	return imports, nil
}

func (s *ImportListService) GetImport(ctx context.Context, importID string, userID int64) (interface{}, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, importID)
	if err != nil {
		return nil, errors.New("import not found")
	}

	var status ImportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse import status: %w", err)
	}

	if status.UserID != userID {
		return nil, errors.New("import not found")
	}

	return s.toMap(status), nil
}

// GetHistory returns the persisted ImportBatch records for a user, most
// recent first, with a presigned download link for every archived source
// file.
func (s *ImportListService) GetHistory(ctx context.Context, userID int64, limit int) ([]domain.ImportBatch, error) {
	if s.batches == nil {
		return nil, errors.New("batch repository not configured")
	}

	batches, err := s.batches.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	if s.links != nil {
		for i := range batches {
			if batches[i].ArchiveKey == nil {
				continue
			}
			url, err := s.links.GetTemporaryURL(ctx, *batches[i].ArchiveKey, archiveURLTTL)
			if err != nil {
				log.Printf("[IMPORT] presign archive %s: %v", *batches[i].ArchiveKey, err)
				continue
			}
			batches[i].ArchiveURL = url
		}
	}

	return batches, nil
}

func (s *ImportListService) toMap(status ImportStatus) map[string]interface{} {
	return map[string]interface{}{
		"id":         strings.TrimPrefix(status.Key, "imports:"),
		"key":        status.Key,
		"type":       status.Type,
		"file_name":  status.FileName,
		"user_id":    status.UserID,
		"phase":      status.Phase,
		"progress":   status.Progress,
		"result":     status.Result,
		"error":      status.Error,
		"created_at": humanizePtAgo(status.Created),
	}
}

func humanizePtAgo(t time.Time) string {
	now := time.Now()
	if t.After(now) {
		return "agora mesmo"
	}

	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	if minutes < 1 {
		return "agora mesmo"
	}
	if minutes < 60 {
		return fmt.Sprintf("há %d %s", minutes, ptPlural(minutes, "minuto", "minutos"))
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("há %d %s", hours, ptPlural(hours, "hora", "horas"))
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("há %d %s", days, ptPlural(days, "dia", "dias"))
	}
	return t.Format("02/01/2006 15:04")
}

func ptPlural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
