package chat

import "sync"

// TypingTracker holds the ephemeral typing state: which identities are
// currently typing in which room. Nothing here is persisted; the state
// exists so a disconnect can retract a dangling typing indicator.
type TypingTracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]string // room id -> identity id -> display name
}

// NewTypingTracker creates an empty tracker.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		rooms: make(map[string]map[string]string),
	}
}

// Start records that the identity is typing in roomID. It reports
// whether the state changed (false if the identity was already typing).
func (t *TypingTracker) Start(roomID, identityID, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rooms[roomID] == nil {
		t.rooms[roomID] = make(map[string]string)
	}
	if _, ok := t.rooms[roomID][identityID]; ok {
		return false
	}
	t.rooms[roomID][identityID] = username
	return true
}

// Stop clears the identity's typing state in roomID. It reports whether
// the identity was typing.
func (t *TypingTracker) Stop(roomID, identityID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	typing := t.rooms[roomID]
	if _, ok := typing[identityID]; !ok {
		return false
	}
	delete(typing, identityID)
	if len(typing) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}

// IsTyping reports whether the identity is currently typing in roomID.
func (t *TypingTracker) IsTyping(roomID, identityID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rooms[roomID][identityID]
	return ok
}
