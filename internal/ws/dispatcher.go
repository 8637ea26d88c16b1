package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-connect/internal/event"
	"chat-connect/internal/metrics"
)

// Dispatcher is the per-user addressed broker: a registry from user id to the
// set of that user's live sessions. Addressed publishes reach only the target
// user's sessions; presence changes are broadcast to everyone. Delivery is
// fire-and-forget: no queueing, no retries, no persistence. Durable state is
// always committed before anything is published, so a missed event is
// recovered through an explicit history fetch, not redelivery.
type Dispatcher struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Session]struct{}
	logger   zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sessions: make(map[int64]map[*Session]struct{}),
		logger:   logger,
	}
}

func (d *Dispatcher) Register(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.sessions[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		d.sessions[s.UserID] = set
	}
	set[s] = struct{}{}
}

func (d *Dispatcher) Unregister(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.sessions[s.UserID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(d.sessions, s.UserID)
	}
}

// Publish sends an event to every live session of userID. Each session gets
// its own copy for multi-device parity. With zero sessions the event is
// dropped silently.
func (d *Dispatcher) Publish(userID int64, topic string, payload any) {
	data, err := json.Marshal(event.Outbound{Type: topic, Data: payload})
	if err != nil {
		d.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return
	}

	targets := d.snapshot(userID)
	if len(targets) == 0 {
		metrics.EventsDroppedTotal.WithLabelValues("no_session").Inc()
		return
	}
	for _, s := range targets {
		d.deliver(s, topic, data)
	}
}

// Broadcast sends an event to every connected session regardless of identity.
// Used for presence changes only.
func (d *Dispatcher) Broadcast(topic string, payload any) {
	data, err := json.Marshal(event.Outbound{Type: topic, Data: payload})
	if err != nil {
		d.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return
	}

	for _, s := range d.snapshotAll() {
		d.deliver(s, topic, data)
	}
}

// snapshot copies the target set under the read lock; the sends happen after
// the lock is released so one slow consumer cannot stall the registry.
func (d *Dispatcher) snapshot(userID int64) []*Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set := d.sessions[userID]
	if len(set) == 0 {
		return nil
	}
	targets := make([]*Session, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	return targets
}

func (d *Dispatcher) snapshotAll() []*Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var targets []*Session
	for _, set := range d.sessions {
		for s := range set {
			targets = append(targets, s)
		}
	}
	return targets
}

func (d *Dispatcher) deliver(s *Session, topic string, data []byte) {
	if !s.enqueue(data) {
		metrics.EventsDroppedTotal.WithLabelValues("slow_consumer").Inc()
		d.logger.Warn().
			Str("session_id", s.ID).
			Int64("user_id", s.UserID).
			Str("topic", topic).
			Msg("dropping event for slow session")
	}
}
