package api

import (
	"time"

	"framedrive/stats"
)

// WebSocket message types
type MessageType string

const (
	// Outgoing message types (server to client)
	MessageTypeAck   MessageType = "ack"
	MessageTypeStats MessageType = "stats"
	MessageTypeError MessageType = "error"
	MessageTypePing  MessageType = "ping"

	// Incoming message types (client to server)
	MessageTypeGetStats MessageType = "get_stats"
)

// Base WebSocket message structure
type WSMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"` // For correlating responses
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SnapshotSource is where the hub reads frame statistics from.
type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

// MessageHandler answers one incoming message type.
type MessageHandler func(c *WSClient, message WSMessage) error
