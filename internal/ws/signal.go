package ws

import (
	"context"
	"encoding/json"

	"chat-connect/internal/apperr"
	"chat-connect/internal/event"
	"chat-connect/internal/metrics"
)

// CallSignal is a call-negotiation payload relayed verbatim between two
// identities. The relay is stateless: nothing is persisted, and ordering is
// only whatever a single sender's connection provides.
type CallSignal struct {
	Type string          `json:"type"`
	From int64           `json:"from"`
	To   int64           `json:"to"`
	Data json.RawMessage `json:"data,omitempty"`
}

// userChecker is what the relay needs from the user repository.
type userChecker interface {
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// signalPublisher matches the dispatcher's addressed publish.
type signalPublisher interface {
	Publish(userID int64, topic string, payload any)
}

type Relay struct {
	users     userChecker
	publisher signalPublisher
}

func NewRelay(users userChecker, pub signalPublisher) *Relay {
	return &Relay{users: users, publisher: pub}
}

// Relay validates the target and forwards the signal to the target's call
// topic. The from field is overwritten with the authenticated caller's
// identity regardless of what the client supplied, so a signal can never be
// spoofed on someone else's behalf.
func (r *Relay) Relay(ctx context.Context, fromID int64, sig *CallSignal) error {
	if sig.To == 0 {
		return apperr.Validation("Call target is required")
	}
	if sig.To == fromID {
		return apperr.Validation("You cannot start a call with yourself")
	}

	exists, err := r.users.ExistsByID(ctx, sig.To)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("Call target user not found")
	}

	sig.From = fromID
	r.publisher.Publish(sig.To, event.TopicCallSignal, sig)
	metrics.CallSignalsRelayedTotal.Inc()
	return nil
}
