package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"framedrive/stats"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	snap stats.Snapshot
}

func (f fixedSource) Snapshot() stats.Snapshot { return f.snap }

type received struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func startHub(t *testing.T, interval time.Duration) (*websocket.Conn, context.CancelFunc) {
	t.Helper()
	api := NewAPI(fixedSource{stats.Snapshot{FPS: 60, Frames: 42, Width: 800, Height: 600}}, nil, interval)

	ctx, cancel := context.WithCancel(context.Background())
	go api.Run(ctx)

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	t.Cleanup(cancel)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, cancel
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestConnectGetsAck(t *testing.T) {
	conn, _ := startHub(t, time.Hour)

	msg := read(t, conn)
	require.Equal(t, MessageTypeAck, msg.Type)

	var id string
	require.NoError(t, json.Unmarshal(msg.Data, &id))
	require.Len(t, id, 36)
}

func TestGetStatsRepliesWithSnapshot(t *testing.T) {
	conn, _ := startHub(t, time.Hour)
	require.Equal(t, MessageTypeAck, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeGetStats, RequestID: "r1"}))

	msg := read(t, conn)
	require.Equal(t, MessageTypeStats, msg.Type)
	require.Equal(t, "r1", msg.RequestID)

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	require.Equal(t, 60.0, snap.FPS)
	require.Equal(t, uint64(42), snap.Frames)
	require.Equal(t, 800, snap.Width)
}

func TestUnknownTypeGetsError(t *testing.T) {
	conn, _ := startHub(t, time.Hour)
	require.Equal(t, MessageTypeAck, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "launch", RequestID: "r2"}))

	msg := read(t, conn)
	require.Equal(t, MessageTypeError, msg.Type)
	require.Equal(t, "r2", msg.RequestID)
	require.Contains(t, msg.Error, "unknown message type")
}

func TestStatsAreBroadcast(t *testing.T) {
	conn, _ := startHub(t, 20*time.Millisecond)
	require.Equal(t, MessageTypeAck, read(t, conn).Type)

	msg := read(t, conn)
	require.Equal(t, MessageTypeStats, msg.Type)
	require.Empty(t, msg.RequestID)
}

func TestHubShutdownClosesClients(t *testing.T) {
	conn, cancel := startHub(t, time.Hour)
	require.Equal(t, MessageTypeAck, read(t, conn).Type)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
