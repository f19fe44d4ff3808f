package protocol

import (
	"encoding/json"
	"fmt"
)

type Outbound interface {
	OutboundEvent() EventType
}

type Connected struct {
	ID string `json:"id"`
}

type Waiting struct{}

type Matched struct {
	PartnerID      string  `json:"partnerId"`
	Initiator      bool    `json:"initiator"`
	PartnerName    string  `json:"partnerName"`
	PartnerAvatar  string  `json:"partnerAvatar"`
	PartnerBio     string  `json:"partnerBio"`
	PartnerWeMetID *string `json:"partnerWeMetId"`
}

// Relayed is a partner's signal as delivered: the payload sits under the
// kind's field name next to the sender id.
type Relayed struct {
	Kind    EventType
	Payload json.RawMessage
	From    string
}

type PartnerDisconnected struct{}

type BalanceUpdated struct {
	Balance int64 `json:"balance"`
}

func (Connected) OutboundEvent() EventType           { return EventConnected }
func (Waiting) OutboundEvent() EventType             { return EventWaiting }
func (Matched) OutboundEvent() EventType             { return EventMatched }
func (r Relayed) OutboundEvent() EventType           { return r.Kind }
func (PartnerDisconnected) OutboundEvent() EventType { return EventPartnerDisconnected }
func (BalanceUpdated) OutboundEvent() EventType      { return EventBalanceUpdated }

func (r Relayed) MarshalJSON() ([]byte, error) {
	field, ok := PayloadField(r.Kind)
	if !ok {
		return nil, fmt.Errorf("relay kind %q has no payload field", r.Kind)
	}
	payload := r.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(map[string]any{
		field:  payload,
		"from": r.From,
	})
}

// Encode renders msg as a wire frame. Events without a body omit data.
func Encode(msg Outbound) ([]byte, error) {
	env := Envelope{Event: msg.OutboundEvent()}

	switch msg.(type) {
	case Waiting, PartnerDisconnected:
	default:
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", env.Event, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}
