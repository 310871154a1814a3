package chat

import (
	"sync"
	"testing"

	domain "github.com/example/realtime-chat/domain/chat"
)

// fakeConn is an in-memory Conn used across the package tests. Sent
// events are recorded for inspection.
type fakeConn struct {
	id       string
	identity domain.Identity
	mu       sync.Mutex
	sent     []ServerEvent
	sendErr  error
	closed   bool
}

func newFakeConn(id, userID, username string) *fakeConn {
	return &fakeConn{
		id:       id,
		identity: domain.Identity{ID: userID, Username: username},
	}
}

func (c *fakeConn) ID() string                { return c.id }
func (c *fakeConn) Identity() domain.Identity { return c.identity }

func (c *fakeConn) Send(evt ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, evt)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// eventsNamed returns the recorded events matching the given name.
func (c *fakeConn) eventsNamed(name string) []ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []ServerEvent
	for _, evt := range c.sent {
		if evt.Event == name {
			out = append(out, evt)
		}
	}
	return out
}

func TestPresenceRegistry_RegisterFirstConnection(t *testing.T) {
	reg := NewPresenceRegistry()
	conn := newFakeConn("c1", "u1", "alice")

	if !reg.Register(conn) {
		t.Error("Register() first connection should report true")
	}
	if reg.OnlineCount() != 1 {
		t.Errorf("OnlineCount() = %d, want 1", reg.OnlineCount())
	}
}

func TestPresenceRegistry_SecondConnectionSameIdentity(t *testing.T) {
	reg := NewPresenceRegistry()
	reg.Register(newFakeConn("c1", "u1", "alice"))

	if reg.Register(newFakeConn("c2", "u1", "alice")) {
		t.Error("Register() second connection of same identity should report false")
	}
	if reg.OnlineCount() != 1 {
		t.Errorf("OnlineCount() = %d, want 1 (deduplicated)", reg.OnlineCount())
	}
	if reg.ConnectionCount() != 2 {
		t.Errorf("ConnectionCount() = %d, want 2", reg.ConnectionCount())
	}
}

func TestPresenceRegistry_UnregisterKeepsIdentityUntilLast(t *testing.T) {
	reg := NewPresenceRegistry()
	c1 := newFakeConn("c1", "u1", "alice")
	c2 := newFakeConn("c2", "u1", "alice")
	reg.Register(c1)
	reg.Register(c2)

	if reg.Unregister(c1) {
		t.Error("Unregister() should report false while another connection remains")
	}
	if reg.OnlineCount() != 1 {
		t.Errorf("OnlineCount() = %d, want 1 after partial unregister", reg.OnlineCount())
	}

	if !reg.Unregister(c2) {
		t.Error("Unregister() last connection should report true")
	}
	if reg.OnlineCount() != 0 {
		t.Errorf("OnlineCount() = %d, want 0", reg.OnlineCount())
	}
}

func TestPresenceRegistry_UnregisterUnknownConnection(t *testing.T) {
	reg := NewPresenceRegistry()
	if reg.Unregister(newFakeConn("ghost", "u9", "nobody")) {
		t.Error("Unregister() of an unknown connection should report false")
	}
}

func TestPresenceRegistry_ListOnlineDeduplicates(t *testing.T) {
	reg := NewPresenceRegistry()
	reg.Register(newFakeConn("c1", "u1", "alice"))
	reg.Register(newFakeConn("c2", "u1", "alice"))
	reg.Register(newFakeConn("c3", "u2", "bob"))

	online := reg.ListOnline()
	if len(online) != 2 {
		t.Fatalf("ListOnline() returned %d entries, want 2", len(online))
	}

	seen := make(map[string]string)
	for _, u := range online {
		seen[u.ID] = u.Username
	}
	if seen["u1"] != "alice" || seen["u2"] != "bob" {
		t.Errorf("ListOnline() = %v, missing expected identities", online)
	}
}

func TestPresenceRegistry_ConnectionsSnapshot(t *testing.T) {
	reg := NewPresenceRegistry()
	reg.Register(newFakeConn("c1", "u1", "alice"))
	reg.Register(newFakeConn("c2", "u1", "alice"))
	reg.Register(newFakeConn("c3", "u2", "bob"))

	if got := len(reg.Connections()); got != 3 {
		t.Errorf("Connections() returned %d handles, want 3", got)
	}
}
