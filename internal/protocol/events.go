// Package protocol defines the JSON frames exchanged with clients over the
// signaling WebSocket.
//
// Every frame is an envelope {"event": name, "data": {...}}. Inbound and
// outbound frames are closed sets of concrete types; decoding an event name
// outside the set is an error rather than a silent no-op.
package protocol

import "encoding/json"

type EventType string

// Client → relay.
const (
	EventFindMatch     EventType = "find-match"
	EventOffer         EventType = "offer"
	EventAnswer        EventType = "answer"
	EventICECandidate  EventType = "ice-candidate"
	EventChatMessage   EventType = "chat-message"
	EventStopMatching  EventType = "stop-matching"
	EventGetBalance    EventType = "get-balance"
	EventUpdateBalance EventType = "update-balance"
)

// Relay → client. Signal kinds are echoed back under the same names.
const (
	EventConnected           EventType = "connected"
	EventWaiting             EventType = "waiting"
	EventMatched             EventType = "matched"
	EventPartnerDisconnected EventType = "partner-disconnected"
	EventBalanceUpdated      EventType = "balance-updated"
)

type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// signalFields maps each relayed kind to the data field carrying its
// opaque payload, in both directions.
var signalFields = map[EventType]string{
	EventOffer:        "offer",
	EventAnswer:       "answer",
	EventICECandidate: "candidate",
	EventChatMessage:  "message",
}

func IsSignal(kind EventType) bool {
	_, ok := signalFields[kind]
	return ok
}

// PayloadField returns the data field name used for a relayed kind.
func PayloadField(kind EventType) (string, bool) {
	field, ok := signalFields[kind]
	return field, ok
}
