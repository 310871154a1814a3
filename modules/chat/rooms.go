package chat

import "sync"

// RoomMembership tracks, per connection, which rooms it currently listens
// to. Joining a room is the only action that authorizes a connection to
// receive that room's broadcasts. Rooms have no lifecycle of their own:
// a room exists exactly while it has members.
//
// Any authenticated identity may join any room name, including a private
// room derived for two other identities. Clients are trusted to join only
// their own rooms; membership is the delivery gate, not an access check.
// See DESIGN.md.
type RoomMembership struct {
	mu        sync.RWMutex
	rooms     map[string]map[string]Conn // room id -> connection id -> handle
	connRooms map[string]map[string]bool // connection id -> set of room ids
}

// NewRoomMembership creates an empty membership table.
func NewRoomMembership() *RoomMembership {
	return &RoomMembership{
		rooms:     make(map[string]map[string]Conn),
		connRooms: make(map[string]map[string]bool),
	}
}

// Join adds roomID to the connection's active-room set. Idempotent.
func (r *RoomMembership) Join(conn Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]Conn)
	}
	r.rooms[roomID][conn.ID()] = conn

	if r.connRooms[conn.ID()] == nil {
		r.connRooms[conn.ID()] = make(map[string]bool)
	}
	r.connRooms[conn.ID()][roomID] = true
}

// Leave removes roomID from the connection's set. Idempotent if the
// connection is not a member.
func (r *RoomMembership) Leave(conn Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn.ID(), roomID)
}

// Teardown removes the connection from every room it belongs to and
// returns the ids of the rooms it was a member of. Called on disconnect.
func (r *RoomMembership) Teardown(conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.connRooms[conn.ID()]
	left := make([]string, 0, len(rooms))
	for roomID := range rooms {
		r.leaveLocked(conn.ID(), roomID)
		left = append(left, roomID)
	}
	delete(r.connRooms, conn.ID())
	return left
}

func (r *RoomMembership) leaveLocked(connID, roomID string) {
	if members := r.rooms[roomID]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if rooms := r.connRooms[connID]; rooms != nil {
		delete(rooms, roomID)
	}
}

// Members returns a snapshot of the connections joined to roomID.
func (r *RoomMembership) Members(roomID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	conns := make([]Conn, 0, len(members))
	for _, c := range members {
		conns = append(conns, c)
	}
	return conns
}

// IsMember reports whether the connection is joined to roomID.
func (r *RoomMembership) IsMember(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID][connID] != nil
}

// HasIdentity reports whether any connection owned by identityID is
// still joined to roomID. Used to decide whether identity-level state
// (typing) should be cleared when one of its connections leaves.
func (r *RoomMembership) HasIdentity(roomID, identityID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.rooms[roomID] {
		if c.Identity().ID == identityID {
			return true
		}
	}
	return false
}

// RoomCount returns the number of rooms with at least one member.
func (r *RoomMembership) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
