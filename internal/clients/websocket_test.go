package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"baseoff-import/internal/domain"
	"baseoff-import/internal/importer"
	ws "baseoff-import/internal/transport/websocket"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T) (*ws.Hub, *websocket.Conn, func()) {
	t.Helper()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, 1)
	}))

	wsURL := "ws" + server.URL[4:]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		cancel()
		server.Close()
		t.Fatalf("Failed to connect: %v", err)
	}

	// give the hub time to register
	time.Sleep(100 * time.Millisecond)

	return hub, conn, func() {
		conn.Close()
		server.Close()
		cancel()
	}
}

func readData(t *testing.T, conn *websocket.Conn) (ws.Message, map[string]interface{}) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var received ws.Message
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	dataBytes, err := json.Marshal(received.Data)
	if err != nil {
		t.Fatalf("Failed to marshal data: %v", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}
	return received, data
}

func TestWebSocketClient_NotifyImportProgress(t *testing.T) {
	hub, conn, teardown := dialTestHub(t)
	defer teardown()

	client := NewWebSocketClient(hub)

	event := importer.ProgressEvent{
		Phase:     importer.PhaseProcessing,
		Percent:   42.5,
		Processed: 850,
		Total:     2000,
	}
	if err := client.NotifyImportProgress(context.Background(), 1, "imports:abc", event); err != nil {
		t.Fatalf("Failed to notify progress: %v", err)
	}

	received, data := readData(t, conn)

	if received.Type != "import_progress" {
		t.Errorf("Expected type 'import_progress', got '%s'", received.Type)
	}
	if received.UserID != 1 {
		t.Errorf("Expected userID 1, got %d", received.UserID)
	}
	if received.Channel != "notify_user_of_progress_import#1" {
		t.Errorf("Expected channel 'notify_user_of_progress_import#1', got '%s'", received.Channel)
	}
	if data["id"] != "imports:abc" {
		t.Errorf("Expected id 'imports:abc', got '%v'", data["id"])
	}
	if data["phase"] != "processing" {
		t.Errorf("Expected phase 'processing', got '%v'", data["phase"])
	}
	if data["progress"].(float64) != 42.5 {
		t.Errorf("Expected progress 42.5, got %v", data["progress"])
	}
}

func TestWebSocketClient_NotifyImportComplete(t *testing.T) {
	hub, conn, teardown := dialTestHub(t)
	defer teardown()

	client := NewWebSocketClient(hub)

	result := domain.ImportResult{
		Total:             100,
		Success:           90,
		Errors:            5,
		Duplicates:        5,
		ContractsDetected: 80,
		ContractsInserted: 78,
	}
	if err := client.NotifyImportComplete(context.Background(), 1, "imports:abc", "base.csv", result); err != nil {
		t.Fatalf("Failed to notify complete: %v", err)
	}

	received, data := readData(t, conn)

	if received.Type != "import_complete" {
		t.Errorf("Expected type 'import_complete', got '%s'", received.Type)
	}
	if received.Channel != "notify_user_when_import_complete#1" {
		t.Errorf("Expected channel 'notify_user_when_import_complete#1', got '%s'", received.Channel)
	}
	if data["filename"] != "base.csv" {
		t.Errorf("Expected filename 'base.csv', got '%v'", data["filename"])
	}
	if data["total"].(float64) != 100 {
		t.Errorf("Expected total 100, got %v", data["total"])
	}
	if data["contracts_inserted"].(float64) != 78 {
		t.Errorf("Expected contracts_inserted 78, got %v", data["contracts_inserted"])
	}
}

func TestWebSocketClient_NotifyImportFailed(t *testing.T) {
	hub, conn, teardown := dialTestHub(t)
	defer teardown()

	client := NewWebSocketClient(hub)

	if err := client.NotifyImportFailed(context.Background(), 1, "imports:abc", "read import file: truncated stream"); err != nil {
		t.Fatalf("Failed to notify failed: %v", err)
	}

	received, data := readData(t, conn)

	if received.Type != "import_failed" {
		t.Errorf("Expected type 'import_failed', got '%s'", received.Type)
	}
	if received.Channel != "notify_user_when_import_failed#1" {
		t.Errorf("Expected channel 'notify_user_when_import_failed#1', got '%s'", received.Channel)
	}
	if data["message"] != "read import file: truncated stream" {
		t.Errorf("Expected failure message, got '%v'", data["message"])
	}
}

func TestWebSocketClient_NilHub(t *testing.T) {
	client := NewWebSocketClient(nil)

	// every notify is a no-op without a hub
	if err := client.NotifyImportProgress(context.Background(), 1, "imports:abc", importer.ProgressEvent{}); err != nil {
		t.Errorf("Should not return error with nil hub, got: %v", err)
	}
	if err := client.NotifyImportComplete(context.Background(), 1, "imports:abc", "base.csv", domain.ImportResult{}); err != nil {
		t.Errorf("Should not return error with nil hub, got: %v", err)
	}
	if err := client.NotifyImportFailed(context.Background(), 1, "imports:abc", "boom"); err != nil {
		t.Errorf("Should not return error with nil hub, got: %v", err)
	}
}
