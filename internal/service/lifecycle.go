package service

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/model"
)

// StopMatching leaves the waiting pool and ends any pairing but keeps the
// registry entry, so the client can ask for a new match right away.
func (s *MatchService) StopMatching(connID string) {
	s.leave(connID, false)
}

// Disconnect is StopMatching followed by removal from the registry. It is
// called once the transport is gone.
func (s *MatchService) Disconnect(connID string) {
	s.leave(connID, true)
}

func (s *MatchService) leave(connID string, disconnect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool.RemoveByID(connID) {
		log.Info().Str("connectionId", connID).Msg("removed from waiting pool")
	}

	if conn, ok := s.conns.Get(connID); ok && conn.Paired() {
		log.Info().
			Str("connectionId", connID).
			Str("partnerId", conn.PartnerID).
			Msg("ending pairing")
		s.unpairLocked(conn)
	}

	mode := metrics.LeaveModeStop
	if disconnect {
		s.conns.Remove(connID)
		mode = metrics.LeaveModeDisconnect
	}
	s.metrics.IncLeave(mode)
}

// EvictStale drops waiting entries older than the configured timeout and
// returns how many were removed. Evicted clients are not told.
func (s *MatchService) EvictStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := s.pool.EvictStale(now, s.waitingTimeout)
	for _, e := range evicted {
		log.Info().
			Str("connectionId", e.ConnectionID).
			Dur("waited", e.Age(now)).
			Msg("removed stale waiting user")
	}
	s.metrics.AddEvicted(len(evicted))
	return len(evicted)
}

// Connection returns a copy of the registry record for id.
func (s *MatchService) Connection(id string) (model.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns.Get(id)
	if !ok {
		return model.Connection{}, false
	}
	return *conn, true
}

func (s *MatchService) State(id string) model.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool.Contains(id) {
		return model.ConnectionStateWaiting
	}
	if conn, ok := s.conns.Get(id); ok && conn.Paired() {
		return model.ConnectionStatePaired
	}
	return model.ConnectionStateIdle
}

func (s *MatchService) IsWaiting(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Contains(id)
}

func (s *MatchService) Snapshot() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return metrics.Snapshot{
		Connections: s.conns.Count(),
		Waiting:     s.pool.Len(),
		Paired:      s.conns.CountPaired(),
	}
}
