package service

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	apperrors "github.com/wemet/relay-server-go/internal/errors"
	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/protocol"
)

// Relay forwards an opaque signal from senderID to its current partner.
// Without a partner the signal is dropped and nothing is sent back; the
// payload is never inspected.
func (s *MatchService) Relay(senderID string, kind protocol.EventType, payload json.RawMessage) bool {
	if !protocol.IsSignal(kind) {
		log.Warn().Str("connectionId", senderID).Str("kind", string(kind)).Msg("refusing to relay non-signal event")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns.Get(senderID)
	if !ok || !conn.Paired() {
		log.Debug().
			Err(apperrors.NotPaired(senderID)).
			Str("connectionId", senderID).
			Str("kind", string(kind)).
			Msg("dropping signal")
		s.metrics.IncDropped(metrics.DropReasonNoPartner)
		return false
	}

	delivered := s.notifier.Send(conn.PartnerID, protocol.Relayed{
		Kind:    kind,
		Payload: payload,
		From:    senderID,
	})
	if delivered {
		s.metrics.IncRelayed(string(kind))
	}

	log.Debug().
		Str("connectionId", senderID).
		Str("partnerId", conn.PartnerID).
		Str("kind", string(kind)).
		Bool("delivered", delivered).
		Msg("relaying signal")

	return delivered
}
