package clients

import (
	"context"
	"fmt"

	ws "baseoff-import/internal/transport/websocket"

	"baseoff-import/internal/domain"
	"baseoff-import/internal/importer"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// NotifyImportProgress pushes one progress event to the importing user.
func (c *WebSocketClient) NotifyImportProgress(
	ctx context.Context,
	userID int64,
	importID string,
	event importer.ProgressEvent,
) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_of_progress_import#%d", userID)
	message := &ws.Message{
		Type:    "import_progress",
		Channel: channel,
		Data: map[string]interface{}{
			"id":        importID,
			"phase":     event.Phase,
			"progress":  event.Percent,
			"processed": event.Processed,
			"total":     event.Total,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}

// NotifyImportComplete pushes the frozen result summary once a run is done.
func (c *WebSocketClient) NotifyImportComplete(
	ctx context.Context,
	userID int64,
	importID string,
	fileName string,
	result domain.ImportResult,
) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_when_import_complete#%d", userID)
	message := &ws.Message{
		Type:    "import_complete",
		Channel: channel,
		Data: map[string]interface{}{
			"id":                 importID,
			"filename":           fileName,
			"user_id":            userID,
			"total":              result.Total,
			"success":            result.Success,
			"errors":             result.Errors,
			"duplicates":         result.Duplicates,
			"contracts_detected": result.ContractsDetected,
			"contracts_inserted": result.ContractsInserted,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}

// NotifyImportFailed notifies a user that an import failed with the provided error message.
func (c *WebSocketClient) NotifyImportFailed(ctx context.Context, userID int64, importID string, errMsg string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_when_import_failed#%d", userID)
	message := &ws.Message{
		Type:    "import_failed",
		Channel: channel,
		Data: map[string]interface{}{
			"id":      importID,
			"message": errMsg,
			"user_id": userID,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}
