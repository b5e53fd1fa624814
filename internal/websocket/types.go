package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/vardakademi/gdprguard/internal/guard"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeViolation is pushed when a user-authored submission was
	// blocked for containing personal data.
	EventTypeViolation EventType = "violation"
	// EventTypeLockout is pushed when the three-strikes policy locked the
	// account; clients must show the blocking notice and log out.
	EventTypeLockout EventType = "lockout"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	// UserID scopes delivery: when set, only that user's tabs receive the
	// event.
	UserID string `json:"-"`
}

// ViolationEvent notifies the user's open tabs that a submission was blocked.
// It carries no text and no matched span, only the classification.
type ViolationEvent struct {
	Category guard.Category `json:"category"`
	Severity guard.Severity `json:"severity"`
	Count    int            `json:"violation_count"`
}

// LockoutEvent carries the blocking notice shown before forced logout.
type LockoutEvent struct {
	Notice      string `json:"notice"`
	ForceLogout bool   `json:"force_logout"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	ActiveRules      int    `json:"active_rules"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	UserID      string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	LastPing    time.Time
	IP          string
}
