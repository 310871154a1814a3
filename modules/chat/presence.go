package chat

import (
	"sync"

	domain "github.com/example/realtime-chat/domain/chat"
)

// PresenceRegistry is the in-memory source of truth for which identities
// are currently connected. Entries are tracked per connection so an
// identity with several devices stays online until its last connection
// closes, but the externally observable list is deduplicated by identity.
//
// The registry is scoped to the process lifetime; nothing is persisted
// and there is no cross-node synchronization (single-node deployment).
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]*presenceEntry // identity id -> entry
}

type presenceEntry struct {
	identity domain.Identity
	conns    map[string]Conn // connection id -> handle
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[string]*presenceEntry),
	}
}

// Register adds conn under its identity's entry, creating the entry if
// absent. It reports whether this was the identity's first connection,
// i.e. whether the aggregated online list changed.
func (p *PresenceRegistry) Register(conn Conn) bool {
	identity := conn.Identity()

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[identity.ID]
	if !ok {
		entry = &presenceEntry{
			identity: identity,
			conns:    make(map[string]Conn),
		}
		p.entries[identity.ID] = entry
	}
	entry.conns[conn.ID()] = conn
	return !ok
}

// Unregister removes conn from its identity's entry. When the entry's
// connection set becomes empty the entry is removed; the return value
// reports whether that happened, i.e. whether the identity went offline.
func (p *PresenceRegistry) Unregister(conn Conn) bool {
	identity := conn.Identity()

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[identity.ID]
	if !ok {
		return false
	}
	delete(entry.conns, conn.ID())
	if len(entry.conns) > 0 {
		return false
	}
	delete(p.entries, identity.ID)
	return true
}

// ListOnline returns a snapshot of the online identities, one entry per
// identity regardless of how many connections it has open.
func (p *PresenceRegistry) ListOnline() []domain.OnlineUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]domain.OnlineUser, 0, len(p.entries))
	for _, entry := range p.entries {
		users = append(users, domain.OnlineUser{
			ID:       entry.identity.ID,
			Username: entry.identity.Username,
		})
	}
	return users
}

// Connections returns a snapshot of every live connection handle.
func (p *PresenceRegistry) Connections() []Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var conns []Conn
	for _, entry := range p.entries {
		for _, c := range entry.conns {
			conns = append(conns, c)
		}
	}
	return conns
}

// OnlineCount returns the number of online identities.
func (p *PresenceRegistry) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// ConnectionCount returns the total number of live connections.
func (p *PresenceRegistry) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, entry := range p.entries {
		n += len(entry.conns)
	}
	return n
}
