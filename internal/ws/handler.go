package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-connect/internal/apperr"
	"chat-connect/internal/event"
	"chat-connect/internal/message"
	"chat-connect/internal/metrics"
	"chat-connect/internal/middleware"
)

const frameTimeout = 10 * time.Second

// messageService is what the gate needs from the message pipeline.
type messageService interface {
	Send(ctx context.Context, senderID int64, req *message.SendRequest) (*message.Payload, error)
	MarkRead(ctx context.Context, readerID, roomID int64) (int64, error)
	MarkDelivered(ctx context.Context, receiverID, roomID int64) (int64, error)
	Typing(ctx context.Context, senderID int64, req *message.TypingRequest) error
}

// presenceTracker is the reference-counted presence registry.
type presenceTracker interface {
	Connect(userID int64) bool
	Disconnect(userID int64) bool
}

// PresenceEvent is broadcast to all connected sessions when a user's first
// session connects or last session disconnects.
type PresenceEvent struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Online bool   `json:"online"`
}

// Gate owns the websocket endpoint: it binds the authenticated identity to
// the upgraded connection, registers the session, tracks presence and routes
// inbound frames. Identity comes exclusively from the auth middleware that
// guards the route; frames never carry it.
type Gate struct {
	dispatcher *Dispatcher
	presence   presenceTracker
	messages   messageService
	relay      *Relay
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

func NewGate(dispatcher *Dispatcher, presence presenceTracker, messages messageService, relay *Relay, allowedOrigins []string, logger zerolog.Logger) *Gate {
	g := &Gate{
		dispatcher: dispatcher,
		presence:   presence,
		messages:   messages,
		relay:      relay,
		logger:     logger,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS handles GET /ws. The route sits behind the auth middleware, so an
// unauthenticated connection is rejected before any identity binding occurs.
func (g *Gate) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &Session{
		ID:     uuid.NewString(),
		UserID: identity.UserID,
		Email:  identity.Email,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		gate:   g,
	}

	g.dispatcher.Register(s)
	metrics.WSConnectionsActive.Inc()

	// The counter update and the broadcast are two separate steps; nothing
	// may hold the presence lock across dispatcher sends.
	if g.presence.Connect(s.UserID) {
		metrics.PresenceTransitionsTotal.WithLabelValues("online").Inc()
		g.dispatcher.Broadcast(event.TopicPresence, PresenceEvent{
			UserID: s.UserID,
			Email:  s.Email,
			Online: true,
		})
	}

	g.logger.Info().
		Str("session_id", s.ID).
		Int64("user_id", s.UserID).
		Msg("websocket session opened")

	go s.writePump()
	go s.readPump()
}

// teardown runs exactly once per session (guarded by the session's closeOnce).
// The dispatcher unregistration must complete before anything else so no
// event is ever delivered to a dead session.
func (g *Gate) teardown(s *Session) {
	g.dispatcher.Unregister(s)
	s.closeSend()
	metrics.WSConnectionsActive.Dec()

	if g.presence.Disconnect(s.UserID) {
		metrics.PresenceTransitionsTotal.WithLabelValues("offline").Inc()
		g.dispatcher.Broadcast(event.TopicPresence, PresenceEvent{
			UserID: s.UserID,
			Email:  s.Email,
			Online: false,
		})
	}

	g.logger.Info().
		Str("session_id", s.ID).
		Int64("user_id", s.UserID).
		Msg("websocket session closed")
}

// handleFrame routes one inbound frame. A rejected action produces exactly
// one error event on the offending session; other participants see nothing.
func (g *Gate) handleFrame(s *Session, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	var env event.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.sendError(s, apperr.Validation("Malformed event payload"))
		return
	}

	var err error
	switch env.Type {
	case event.KindSendMessage:
		var req message.SendRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperr.Validation("Malformed send-message payload")
			break
		}
		_, err = g.messages.Send(ctx, s.UserID, &req)

	case event.KindTyping:
		var req message.TypingRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperr.Validation("Malformed typing payload")
			break
		}
		err = g.messages.Typing(ctx, s.UserID, &req)

	case event.KindDeliveredAck:
		var req message.RoomAckRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperr.Validation("Malformed delivered-ack payload")
			break
		}
		_, err = g.messages.MarkDelivered(ctx, s.UserID, req.ChatRoomID)

	case event.KindReadAck:
		var req message.RoomAckRequest
		if err = json.Unmarshal(env.Data, &req); err != nil {
			err = apperr.Validation("Malformed read-ack payload")
			break
		}
		_, err = g.messages.MarkRead(ctx, s.UserID, req.ChatRoomID)

	case event.KindCallOffer, event.KindCallAnswer, event.KindCallICE, event.KindCallEnd:
		var sig CallSignal
		if err = json.Unmarshal(env.Data, &sig); err != nil {
			err = apperr.Validation("Malformed call signal payload")
			break
		}
		sig.Type = env.Type
		err = g.relay.Relay(ctx, s.UserID, &sig)

	default:
		err = apperr.Validation("Unknown event type: " + env.Type)
	}

	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnexpected {
			g.logger.Error().Err(err).
				Str("session_id", s.ID).
				Int64("user_id", s.UserID).
				Str("event_type", env.Type).
				Msg("unexpected websocket error")
		}
		g.sendError(s, err)
	}
}

// sendError delivers one error event to the caller's own session only.
func (g *Gate) sendError(s *Session, err error) {
	data, marshalErr := json.Marshal(event.Outbound{
		Type: event.TopicError,
		Data: event.ErrorPayload{
			Kind:    apperr.KindOf(err).String(),
			Message: apperr.PublicMessage(err),
		},
	})
	if marshalErr != nil {
		return
	}
	if !s.enqueue(data) {
		metrics.EventsDroppedTotal.WithLabelValues("slow_consumer").Inc()
	}
}
