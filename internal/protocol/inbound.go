package protocol

import (
	"bytes"
	"encoding/json"

	apperrors "github.com/wemet/relay-server-go/internal/errors"
)

type Inbound interface {
	InboundEvent() EventType
}

// FindMatch carries the requester's profile and filters. Fields are never
// rejected: anything missing or of the wrong JSON type decodes to its zero
// value and is defaulted by the matchmaker.
type FindMatch struct {
	Username   string
	IsGuest    bool
	MyGender   string
	LookingFor string
	Avatar     string
	Bio        string
	WeMetID    *string
}

// Signal is an opaque payload to forward to the sender's partner.
type Signal struct {
	Kind    EventType
	Payload json.RawMessage
}

type StopMatching struct{}

type GetBalance struct{}

type UpdateBalance struct {
	Amount int64 `json:"amount"`
}

func (FindMatch) InboundEvent() EventType     { return EventFindMatch }
func (s Signal) InboundEvent() EventType      { return s.Kind }
func (StopMatching) InboundEvent() EventType  { return EventStopMatching }
func (GetBalance) InboundEvent() EventType    { return EventGetBalance }
func (UpdateBalance) InboundEvent() EventType { return EventUpdateBalance }

// DecodeInbound parses one client frame.
func DecodeInbound(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, apperrors.MalformedMessage("invalid envelope", err)
	}
	if env.Event == "" {
		return nil, apperrors.MalformedMessage("missing event", nil)
	}

	switch env.Event {
	case EventFindMatch:
		return decodeFindMatch(env.Data), nil

	case EventOffer, EventAnswer, EventICECandidate, EventChatMessage:
		payload, err := extractPayload(env.Event, env.Data)
		if err != nil {
			return nil, err
		}
		return Signal{Kind: env.Event, Payload: payload}, nil

	case EventStopMatching:
		return StopMatching{}, nil

	case EventGetBalance:
		return GetBalance{}, nil

	case EventUpdateBalance:
		var msg UpdateBalance
		if isEmpty(env.Data) {
			return nil, apperrors.MalformedMessage("update-balance requires amount", nil)
		}
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, apperrors.MalformedMessage("invalid update-balance data", err)
		}
		return msg, nil

	default:
		return nil, apperrors.UnknownEvent(string(env.Event))
	}
}

func decodeFindMatch(data json.RawMessage) FindMatch {
	var fields map[string]any
	if !isEmpty(data) {
		// A non-object body is treated like an empty one.
		_ = json.Unmarshal(data, &fields)
	}

	msg := FindMatch{
		Username:   stringField(fields, "username"),
		MyGender:   stringField(fields, "myGender"),
		LookingFor: stringField(fields, "lookingFor"),
		Avatar:     stringField(fields, "avatar"),
		Bio:        stringField(fields, "bio"),
	}
	if v, ok := fields["isGuest"].(bool); ok {
		msg.IsGuest = v
	}
	if v := stringField(fields, "weMetId"); v != "" {
		msg.WeMetID = &v
	}
	return msg
}

func extractPayload(kind EventType, data json.RawMessage) (json.RawMessage, error) {
	if isEmpty(data) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, apperrors.MalformedMessage(string(kind)+" data must be an object", err)
	}
	field, _ := PayloadField(kind)
	return fields[field], nil
}

func stringField(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

func isEmpty(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
