package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chat-connect/internal/event"
)

func timeout(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(2 * time.Second)
}

func newTestSession(userID int64, id string) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		send:   make(chan []byte, 8),
	}
}

func decodeOutbound(t *testing.T, data []byte) event.Outbound {
	t.Helper()
	var out struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to decode outbound frame: %v", err)
	}
	return event.Outbound{Type: out.Type, Data: out.Data}
}

func TestPublishReachesOnlyAddressedUser(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	alice := newTestSession(1, "a")
	bob := newTestSession(2, "b")
	d.Register(alice)
	d.Register(bob)

	d.Publish(1, event.TopicMessage, map[string]string{"hello": "world"})

	select {
	case data := <-alice.send:
		out := decodeOutbound(t, data)
		if out.Type != event.TopicMessage {
			t.Fatalf("expected topic %q, got %q", event.TopicMessage, out.Type)
		}
	default:
		t.Fatal("addressed session received nothing")
	}

	select {
	case <-bob.send:
		t.Fatal("event leaked to an unaddressed user")
	default:
	}
}

func TestPublishCopiesToEverySessionOfUser(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	tab1 := newTestSession(1, "tab1")
	tab2 := newTestSession(1, "tab2")
	d.Register(tab1)
	d.Register(tab2)

	d.Publish(1, event.TopicTyping, nil)

	for _, s := range []*Session{tab1, tab2} {
		select {
		case <-s.send:
		default:
			t.Fatalf("session %s did not receive its copy", s.ID)
		}
	}
}

func TestPublishWithNoSessionsDropsSilently(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	// Must not panic or block.
	d.Publish(99, event.TopicMessage, map[string]string{"x": "y"})
}

func TestBroadcastReachesAllUsers(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	sessions := []*Session{
		newTestSession(1, "a"),
		newTestSession(2, "b"),
		newTestSession(3, "c"),
	}
	for _, s := range sessions {
		d.Register(s)
	}

	d.Broadcast(event.TopicPresence, PresenceEvent{UserID: 1, Online: true})

	for _, s := range sessions {
		select {
		case data := <-s.send:
			out := decodeOutbound(t, data)
			if out.Type != event.TopicPresence {
				t.Fatalf("expected presence topic, got %q", out.Type)
			}
		default:
			t.Fatalf("session %s missed the broadcast", s.ID)
		}
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	s := newTestSession(1, "a")
	d.Register(s)
	d.Unregister(s)

	d.Publish(1, event.TopicMessage, nil)

	select {
	case <-s.send:
		t.Fatal("unregistered session still received an event")
	default:
	}
}

func TestPublishDuringTeardownDoesNotPanic(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	s := newTestSession(1, "a")
	d.Register(s)

	// A publisher can hold a snapshot taken before teardown starts. Replay
	// that interleaving explicitly: snapshot, then the full teardown sequence,
	// then the delayed delivery.
	targets := d.snapshot(1)
	d.Unregister(s)
	s.closeSend()

	for _, target := range targets {
		d.deliver(target, event.TopicMessage, []byte(`{"type":"message"}`))
	}

	if s.enqueue([]byte("late")) {
		t.Fatal("enqueue must report failure after the session closed")
	}
}

func TestConcurrentPublishAndTeardown(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := NewDispatcher(zerolog.Nop())
		s := newTestSession(1, "a")
		d.Register(s)

		done := make(chan struct{})
		go func() {
			for j := 0; j < 20; j++ {
				d.Publish(1, event.TopicMessage, j)
			}
			close(done)
		}()

		d.Unregister(s)
		s.closeSend()
		<-done
	}
}

func TestSlowConsumerDoesNotBlockPublish(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	s := &Session{ID: "slow", UserID: 1, send: make(chan []byte, 1)}
	d.Register(s)

	// Fill the buffer, then publish again: the second event must be dropped
	// without blocking.
	d.Publish(1, event.TopicMessage, "first")
	done := make(chan struct{})
	go func() {
		d.Publish(1, event.TopicMessage, "second")
		close(done)
	}()

	select {
	case <-done:
	case <-timeout(t):
		t.Fatal("publish blocked on a slow consumer")
	}
}
