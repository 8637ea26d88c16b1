package ws

import (
	"context"
	"testing"

	"chat-connect/internal/apperr"
	"chat-connect/internal/event"
)

type fakeUserChecker struct {
	existing map[int64]bool
}

func (f *fakeUserChecker) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return f.existing[id], nil
}

type recordingPublisher struct {
	calls []publishedEvent
}

type publishedEvent struct {
	UserID  int64
	Topic   string
	Payload any
}

func (r *recordingPublisher) Publish(userID int64, topic string, payload any) {
	r.calls = append(r.calls, publishedEvent{UserID: userID, Topic: topic, Payload: payload})
}

func TestRelayOverwritesFrom(t *testing.T) {
	pub := &recordingPublisher{}
	relay := NewRelay(&fakeUserChecker{existing: map[int64]bool{2: true}}, pub)

	sig := &CallSignal{Type: event.KindCallOffer, From: 999, To: 2}
	if err := relay.Relay(context.Background(), 1, sig); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	if sig.From != 1 {
		t.Fatalf("from must be overwritten with the authenticated id, got %d", sig.From)
	}
	if len(pub.calls) != 1 {
		t.Fatalf("expected 1 dispatched event, got %d", len(pub.calls))
	}
	if pub.calls[0].UserID != 2 || pub.calls[0].Topic != event.TopicCallSignal {
		t.Fatalf("signal dispatched to wrong target: %+v", pub.calls[0])
	}
}

func TestRelayRejectsSelfCall(t *testing.T) {
	pub := &recordingPublisher{}
	relay := NewRelay(&fakeUserChecker{existing: map[int64]bool{1: true}}, pub)

	err := relay.Relay(context.Background(), 1, &CallSignal{Type: event.KindCallOffer, To: 1})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatal("no event must be dispatched for a rejected signal")
	}
}

func TestRelayRejectsMissingTarget(t *testing.T) {
	pub := &recordingPublisher{}
	relay := NewRelay(&fakeUserChecker{existing: map[int64]bool{}}, pub)

	err := relay.Relay(context.Background(), 1, &CallSignal{Type: event.KindCallOffer, To: 0})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for missing target, got %v", err)
	}
}

func TestRelayRejectsUnknownTarget(t *testing.T) {
	pub := &recordingPublisher{}
	relay := NewRelay(&fakeUserChecker{existing: map[int64]bool{}}, pub)

	err := relay.Relay(context.Background(), 1, &CallSignal{Type: event.KindCallEnd, To: 404})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatal("no event must be dispatched when the target does not exist")
	}
}
