package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vardakademi/gdprguard/internal/guard"
	"go.uber.org/zap"
)

func nextEvent(t *testing.T, h *Hub) Event {
	t.Helper()

	select {
	case ev := <-h.broadcast:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestRegistrationEmitsConnectionEvents(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := &Client{ID: "c1", UserID: "u1", Send: make(chan Event, 1)}

	h.registerClient(client)
	ev := nextEvent(t, h)
	require.Equal(t, EventTypeConnection, ev.Type)
	data, ok := ev.Data.(ConnectionEvent)
	require.True(t, ok)
	assert.Equal(t, "connected", data.Action)
	assert.Equal(t, "c1", data.ClientID)

	h.unregisterClient(client)
	ev = nextEvent(t, h)
	require.Equal(t, EventTypeConnection, ev.Type)
	data, ok = ev.Data.(ConnectionEvent)
	require.True(t, ok)
	assert.Equal(t, "disconnected", data.Action)
}

func TestDeliverScopesToUser(t *testing.T) {
	h := NewHub(zap.NewNop())
	tab1 := &Client{ID: "a", UserID: "u1", Send: make(chan Event, 1)}
	tab2 := &Client{ID: "b", UserID: "u2", Send: make(chan Event, 1)}
	h.registerClient(tab1)
	h.registerClient(tab2)

	h.deliver(Event{
		Type:   EventTypeViolation,
		UserID: "u1",
		Data:   ViolationEvent{Category: guard.CategoryPhone, Severity: guard.SeverityWarning, Count: 1},
	})

	require.Len(t, tab1.Send, 1)
	assert.Empty(t, tab2.Send, "events addressed to one user must not reach another")
}

func TestDeliverBroadcastsUnscopedEvents(t *testing.T) {
	h := NewHub(zap.NewNop())
	tab1 := &Client{ID: "a", UserID: "u1", Send: make(chan Event, 1)}
	tab2 := &Client{ID: "b", UserID: "u2", Send: make(chan Event, 1)}
	h.registerClient(tab1)
	h.registerClient(tab2)

	h.deliver(Event{Type: EventTypeSystemStatus})

	assert.Len(t, tab1.Send, 1)
	assert.Len(t, tab2.Send, 1)
}

func TestPublishSystemStatus(t *testing.T) {
	h := NewHub(zap.NewNop())
	client := &Client{ID: "c1", UserID: "u1", Send: make(chan Event, 1)}
	h.registerClient(client)
	nextEvent(t, h) // connection event

	h.PublishSystemStatus(90*time.Second, 4)

	ev := nextEvent(t, h)
	require.Equal(t, EventTypeSystemStatus, ev.Type)
	status, ok := ev.Data.(SystemStatusEvent)
	require.True(t, ok)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1m30s", status.Uptime)
	assert.Equal(t, 4, status.ActiveRules)
	assert.Equal(t, 1, status.ConnectedClients)
}

func TestNotifierEvents(t *testing.T) {
	h := NewHub(zap.NewNop())

	h.NotifyViolation("u1", guard.CategoryNationalID, guard.SeverityCritical, 2)
	ev := nextEvent(t, h)
	require.Equal(t, EventTypeViolation, ev.Type)
	assert.Equal(t, "u1", ev.UserID)
	violation, ok := ev.Data.(ViolationEvent)
	require.True(t, ok)
	assert.Equal(t, 2, violation.Count)

	h.NotifyLockout("u1", "notice")
	ev = nextEvent(t, h)
	require.Equal(t, EventTypeLockout, ev.Type)
	lockout, ok := ev.Data.(LockoutEvent)
	require.True(t, ok)
	assert.True(t, lockout.ForceLogout)
	assert.Equal(t, "notice", lockout.Notice)
}
