package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agentterm/pkg/models"
	"agentterm/pkg/watcher"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStatus(t *testing.T) {
	w := watcher.NewWatcher(nil, time.Second)
	w.Publish(watcher.Event{Type: watcher.EventSessionUpdated, Data: models.SessionSnapshot{
		Identity: "0xuser",
		Phase:    "ready",
	}})
	s := NewServer(w)

	req, _ := http.NewRequest("GET", "/api/status", nil)
	rr := httptest.NewRecorder()

	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Contains(t, resp, "address")
	require.Contains(t, resp, "session")
	assert.Equal(t, "0xuser", resp["session"].(map[string]interface{})["identity"])
}

func TestHandleStatusRejectsPost(t *testing.T) {
	s := NewServer(watcher.NewWatcher(nil, time.Second))
	req, _ := http.NewRequest("POST", "/api/status", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleWS(t *testing.T) {
	w := watcher.NewWatcher(nil, time.Second)
	s := NewServer(w)
	server := httptest.NewServer(s.mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.listenToWatcher(ctx)

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	// Read initial state
	var msg map[string]interface{}
	err = ws.ReadJSON(&msg)
	assert.NoError(t, err)
	assert.Equal(t, "initial", msg["type"])

	// Broadcast events published after the client joined. The listener may
	// subscribe after the first publish, so keep publishing until one lands.
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	done := make(chan map[string]interface{}, 1)
	go func() {
		var ev map[string]interface{}
		if err := ws.ReadJSON(&ev); err == nil {
			done <- ev
		}
		close(done)
	}()

	line := models.ConversationLine{ID: "1", Type: models.LineAgent, Text: "hello"}
	var ev map[string]interface{}
	for ev == nil {
		w.Publish(watcher.Event{Type: watcher.EventLineAppended, Data: line})
		select {
		case got, ok := <-done:
			require.True(t, ok, "no event received")
			ev = got
		case <-time.After(20 * time.Millisecond):
		}
	}
	assert.Equal(t, "line_appended", ev["type"])
	assert.Equal(t, "hello", ev["data"].(map[string]interface{})["text"])
}
