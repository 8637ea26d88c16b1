// Package event defines the wire envelope and event kinds shared by the
// realtime layer and the services that publish into it.
package event

import "encoding/json"

// Inbound kinds (client -> server).
const (
	KindSendMessage  = "send-message"
	KindTyping       = "typing"
	KindDeliveredAck = "delivered-ack"
	KindReadAck      = "read-ack"
	KindCallOffer    = "call-offer"
	KindCallAnswer   = "call-answer"
	KindCallICE      = "call-ice"
	KindCallEnd      = "call-end"
)

// Outbound kinds (server -> client). Also used as dispatcher topics.
const (
	TopicMessage     = "message"
	TopicReadReceipt = "read-receipt"
	TopicTyping      = "typing"
	TopicCallSignal  = "call-signal"
	TopicPresence    = "presence-change"
	TopicError       = "error"
)

// Envelope frames every websocket payload in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the server-side counterpart before marshaling.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ErrorPayload is the body of an "error" event, delivered only to the session
// whose action was rejected.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
