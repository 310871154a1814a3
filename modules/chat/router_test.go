package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	domain "github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// fakeStore is an in-memory MessageStore with injectable failures.
type fakeStore struct {
	mu         sync.Mutex
	history    map[string][]domain.Message
	appendErr  error
	historyErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{history: make(map[string][]domain.Message)}
}

func (s *fakeStore) Append(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return nil, s.appendErr
	}
	saved := *msg
	saved.ID = uuid.New().String()
	s.history[saved.RoomID] = append(s.history[saved.RoomID], saved)
	return &saved, nil
}

func (s *fakeStore) RecentHistory(_ context.Context, roomID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.historyErr != nil {
		return nil, s.historyErr
	}
	msgs := s.history[roomID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *fakeStore) count(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[roomID])
}

func newTestRouter(store MessageStore) *Router {
	r := NewRouter(&mockLogger{})
	r.SetStore(store)
	return r
}

func rawString(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func rawPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func joinRoom(t *testing.T, r *Router, conn Conn, roomID string) {
	t.Helper()
	r.HandleEvent(context.Background(), conn, ClientEvent{Event: EventJoinRoom, Data: rawString(roomID)})
}

func TestRouter_ConnectBroadcastsPresence(t *testing.T) {
	r := newTestRouter(newFakeStore())
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")

	r.Connect(alice)
	r.Connect(bob)

	// Bob coming online refreshes the list for everyone, Alice included.
	events := alice.eventsNamed(EventOnlineUsers)
	if len(events) != 2 {
		t.Fatalf("alice received %d online-user events, want 2", len(events))
	}
	last := events[len(events)-1].Data.([]domain.OnlineUser)
	if len(last) != 2 {
		t.Errorf("final online list has %d entries, want 2", len(last))
	}
}

func TestRouter_SecondConnectionGetsListWithoutBroadcast(t *testing.T) {
	r := newTestRouter(newFakeStore())
	first := newFakeConn("c1", "u1", "alice")
	second := newFakeConn("c2", "u1", "alice")

	r.Connect(first)
	r.Connect(second)

	// The aggregated list did not change, so only the new connection is told.
	if got := len(first.eventsNamed(EventOnlineUsers)); got != 1 {
		t.Errorf("first connection received %d online-user events, want 1", got)
	}
	if got := len(second.eventsNamed(EventOnlineUsers)); got != 1 {
		t.Errorf("second connection received %d online-user events, want 1", got)
	}
}

func TestRouter_JoinDeliversHistoryToRequesterOnly(t *testing.T) {
	store := newFakeStore()
	store.history["general"] = []domain.Message{
		{ID: "m1", RoomID: "general", Text: "first"},
		{ID: "m2", RoomID: "general", Text: "second"},
	}

	r := newTestRouter(store)
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, "general")

	events := alice.eventsNamed(EventLoadHistory)
	if len(events) != 1 {
		t.Fatalf("alice received %d history events, want 1", len(events))
	}
	history := events[0].Data.([]domain.Message)
	if len(history) != 2 || history[0].ID != "m1" || history[1].ID != "m2" {
		t.Errorf("history = %v, want oldest first [m1 m2]", history)
	}

	if got := len(bob.eventsNamed(EventLoadHistory)); got != 0 {
		t.Errorf("bob received %d history events, want 0", got)
	}
}

func TestRouter_JoinSurvivesHistoryFailure(t *testing.T) {
	store := newFakeStore()
	store.historyErr = errors.New("backend down")

	r := newTestRouter(store)
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, "general")
	joinRoom(t, r, bob, "general")

	if got := len(alice.eventsNamed(EventLoadHistory)); got != 0 {
		t.Errorf("alice received %d history events despite failure, want 0", got)
	}

	// Membership held, so live messages still flow.
	store.historyErr = nil
	r.HandleEvent(context.Background(), bob, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: "general", Text: "hello"}),
	})
	if got := len(alice.eventsNamed(EventReceiveMessage)); got != 1 {
		t.Errorf("alice received %d messages after failed history fetch, want 1", got)
	}
}

func TestRouter_SendBroadcastsToMembersOnly(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	carol := newFakeConn("c3", "u3", "carol")
	for _, c := range []*fakeConn{alice, bob, carol} {
		r.Connect(c)
	}
	joinRoom(t, r, alice, "general")
	joinRoom(t, r, bob, "general")
	// carol never joins general.

	r.HandleEvent(context.Background(), alice, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: "general", Text: "hello"}),
	})

	// Sender and members get it exactly once; non-members get nothing.
	if got := len(alice.eventsNamed(EventReceiveMessage)); got != 1 {
		t.Errorf("sender received %d copies, want 1", got)
	}
	if got := len(bob.eventsNamed(EventReceiveMessage)); got != 1 {
		t.Errorf("member received %d copies, want 1", got)
	}
	if got := len(carol.eventsNamed(EventReceiveMessage)); got != 0 {
		t.Errorf("non-member received %d copies, want 0", got)
	}

	msg := bob.eventsNamed(EventReceiveMessage)[0].Data.(*domain.Message)
	if msg.ID == "" {
		t.Error("broadcast message missing persisted id")
	}
	if msg.SenderID != "u1" || msg.SenderName != "alice" {
		t.Errorf("broadcast sender = %s/%s, want u1/alice", msg.SenderID, msg.SenderName)
	}
	if store.count("general") != 1 {
		t.Errorf("store holds %d messages, want 1", store.count("general"))
	}
}

func TestRouter_SendDroppedOnPersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.appendErr = errors.New("disk full")

	r := newTestRouter(store)
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, "general")
	joinRoom(t, r, bob, "general")

	r.HandleEvent(context.Background(), alice, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: "general", Text: "lost"}),
	})

	// A failed append broadcasts to nobody, the sender included.
	if got := len(alice.eventsNamed(EventReceiveMessage)); got != 0 {
		t.Errorf("sender received %d copies of a dropped message, want 0", got)
	}
	if got := len(bob.eventsNamed(EventReceiveMessage)); got != 0 {
		t.Errorf("member received %d copies of a dropped message, want 0", got)
	}

	// The router keeps serving once the store recovers.
	store.appendErr = nil
	r.HandleEvent(context.Background(), alice, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: "general", Text: "back"}),
	})
	if got := len(bob.eventsNamed(EventReceiveMessage)); got != 1 {
		t.Errorf("member received %d messages after recovery, want 1", got)
	}
}

func TestRouter_PrivateMessageNotifiesReceiver(t *testing.T) {
	r := newTestRouter(newFakeStore())
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)

	// Alice sits in the derived private room; Bob does not.
	private := domain.DerivePrivateRoom("u1", "u2")
	joinRoom(t, r, alice, private)

	r.HandleEvent(context.Background(), alice, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: private, Text: "psst", ReceiverID: "u2"}),
	})

	// Bob is not a member, so no direct copy, but his personal room
	// (auto-joined on connect) carries the notification.
	if got := len(bob.eventsNamed(EventReceiveMessage)); got != 0 {
		t.Errorf("receiver got %d direct copies, want 0", got)
	}
	notifs := bob.eventsNamed(EventPrivateNotification)
	if len(notifs) != 1 {
		t.Fatalf("receiver got %d private notifications, want 1", len(notifs))
	}
	notif := notifs[0].Data.(PrivateNotification)
	if notif.SenderID != "u1" || notif.SenderName != "alice" {
		t.Errorf("notification sender = %s/%s, want u1/alice", notif.SenderID, notif.SenderName)
	}
	if notif.Message.Text != "psst" {
		t.Errorf("notification message text = %q, want %q", notif.Message.Text, "psst")
	}
}

func TestRouter_NoPrivateNotificationInDefaultRoom(t *testing.T) {
	r := newTestRouter(newFakeStore())
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, domain.DefaultRoom)

	r.HandleEvent(context.Background(), alice, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: domain.DefaultRoom, Text: "hi all", ReceiverID: "u2"}),
	})

	if got := len(bob.eventsNamed(EventPrivateNotification)); got != 0 {
		t.Errorf("receiver got %d private notifications for a public-room message, want 0", got)
	}
}

func TestRouter_TypingExcludesOriginator(t *testing.T) {
	r := newTestRouter(newFakeStore())
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, "general")
	joinRoom(t, r, bob, "general")

	r.HandleEvent(context.Background(), alice, ClientEvent{Event: EventTypingStart, Data: rawString("general")})

	if got := len(alice.eventsNamed(EventUserTyping)); got != 0 {
		t.Errorf("originator received %d typing events, want 0", got)
	}
	notices := bob.eventsNamed(EventUserTyping)
	if len(notices) != 1 {
		t.Fatalf("member received %d typing events, want 1", len(notices))
	}
	notice := notices[0].Data.(TypingNotice)
	if notice.UserID != "u1" || notice.Username != "alice" {
		t.Errorf("typing notice = %v, want u1/alice", notice)
	}

	// Repeated starts are not rebroadcast.
	r.HandleEvent(context.Background(), alice, ClientEvent{Event: EventTypingStart, Data: rawString("general")})
	if got := len(bob.eventsNamed(EventUserTyping)); got != 1 {
		t.Errorf("member received %d typing events after duplicate start, want 1", got)
	}

	r.HandleEvent(context.Background(), alice, ClientEvent{Event: EventTypingStop, Data: rawString("general")})
	stops := bob.eventsNamed(EventUserStoppedTyping)
	if len(stops) != 1 {
		t.Fatalf("member received %d stopped-typing events, want 1", len(stops))
	}
	if id := stops[0].Data.(string); id != "u1" {
		t.Errorf("stopped-typing payload = %q, want %q", id, "u1")
	}

	// Stop without typing is a no-op.
	r.HandleEvent(context.Background(), alice, ClientEvent{Event: EventTypingStop, Data: rawString("general")})
	if got := len(bob.eventsNamed(EventUserStoppedTyping)); got != 1 {
		t.Errorf("member received %d stopped-typing events after idle stop, want 1", got)
	}
}

func TestRouter_DisconnectRetractsTypingAndPresence(t *testing.T) {
	r := newTestRouter(newFakeStore())
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, "general")
	joinRoom(t, r, bob, "general")

	r.HandleEvent(context.Background(), alice, ClientEvent{Event: EventTypingStart, Data: rawString("general")})
	r.Disconnect(alice)

	stops := bob.eventsNamed(EventUserStoppedTyping)
	if len(stops) != 1 {
		t.Fatalf("member received %d stopped-typing events on disconnect, want 1", len(stops))
	}
	if id := stops[0].Data.(string); id != "u1" {
		t.Errorf("stopped-typing payload = %q, want %q", id, "u1")
	}

	// Alice going offline refreshes Bob's online list.
	events := bob.eventsNamed(EventOnlineUsers)
	last := events[len(events)-1].Data.([]domain.OnlineUser)
	if len(last) != 1 || last[0].ID != "u2" {
		t.Errorf("online list after disconnect = %v, want just u2", last)
	}
}

func TestRouter_DisconnectKeepsTypingWhileIdentityRemains(t *testing.T) {
	r := newTestRouter(newFakeStore())
	first := newFakeConn("c1", "u1", "alice")
	second := newFakeConn("c2", "u1", "alice")
	bob := newFakeConn("c3", "u2", "bob")
	r.Connect(first)
	r.Connect(second)
	r.Connect(bob)
	joinRoom(t, r, first, "general")
	joinRoom(t, r, second, "general")
	joinRoom(t, r, bob, "general")

	r.HandleEvent(context.Background(), first, ClientEvent{Event: EventTypingStart, Data: rawString("general")})
	bobStopsBefore := len(bob.eventsNamed(EventUserStoppedTyping))

	r.Disconnect(first)

	// The identity still sits in the room via its second connection, so
	// its typing indicator is not retracted.
	if got := len(bob.eventsNamed(EventUserStoppedTyping)); got != bobStopsBefore {
		t.Errorf("stopped-typing broadcast despite remaining connection")
	}
}

func TestRouter_DropsMalformedAndUnknownEvents(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)
	alice := newFakeConn("c1", "u1", "alice")
	r.Connect(alice)

	events := []ClientEvent{
		{Event: EventJoinRoom, Data: json.RawMessage(`123`)},
		{Event: EventJoinRoom, Data: nil},
		{Event: EventJoinRoom, Data: rawString("")},
		{Event: EventSendMessage, Data: json.RawMessage(`"not an object"`)},
		{Event: EventSendMessage, Data: rawPayload(t, SendMessagePayload{RoomID: "general"})},
		{Event: "nonsense", Data: rawString("general")},
	}
	for _, evt := range events {
		r.HandleEvent(context.Background(), alice, evt)
	}

	if store.count("general") != 0 {
		t.Errorf("store holds %d messages after malformed events, want 0", store.count("general"))
	}
	if r.Rooms().IsMember("c1", "general") {
		t.Error("malformed join mutated room membership")
	}
}

func TestRouter_ConcurrentSendsBroadcastInPersistedOrder(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	observer := newFakeConn("obs", "u0", "observer")
	r.Connect(observer)
	joinRoom(t, r, observer, "general")

	const senders = 4
	const perSender = 25
	payload := rawPayload(t, SendMessagePayload{RoomID: "general", Text: "m"})

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		conn := newFakeConn(fmt.Sprintf("c%d", i+1), fmt.Sprintf("u%d", i+1), fmt.Sprintf("user%d", i+1))
		r.Connect(conn)
		joinRoom(t, r, conn, "general")

		wg.Add(1)
		go func(conn Conn) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				r.HandleEvent(context.Background(), conn, ClientEvent{
					Event: EventSendMessage,
					Data:  payload,
				})
			}
		}(conn)
	}
	wg.Wait()

	received := observer.eventsNamed(EventReceiveMessage)
	if len(received) != senders*perSender {
		t.Fatalf("observer received %d messages, want %d", len(received), senders*perSender)
	}

	// Delivery order must equal append-completion order.
	store.mu.Lock()
	persisted := store.history["general"]
	store.mu.Unlock()
	for i, evt := range received {
		msg := evt.Data.(*domain.Message)
		if msg.ID != persisted[i].ID {
			t.Fatalf("message %d delivered out of persisted order", i)
		}
	}
}

func TestRouter_LeaveStopsDelivery(t *testing.T) {
	r := newTestRouter(newFakeStore())
	alice := newFakeConn("c1", "u1", "alice")
	bob := newFakeConn("c2", "u2", "bob")
	r.Connect(alice)
	r.Connect(bob)
	joinRoom(t, r, alice, "general")
	joinRoom(t, r, bob, "general")

	r.HandleEvent(context.Background(), bob, ClientEvent{Event: EventLeaveRoom, Data: rawString("general")})
	r.HandleEvent(context.Background(), alice, ClientEvent{
		Event: EventSendMessage,
		Data:  rawPayload(t, SendMessagePayload{RoomID: "general", Text: "hello"}),
	})

	if got := len(bob.eventsNamed(EventReceiveMessage)); got != 0 {
		t.Errorf("departed member received %d messages, want 0", got)
	}
}
