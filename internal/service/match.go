package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/model"
	"github.com/wemet/relay-server-go/internal/protocol"
	"github.com/wemet/relay-server-go/internal/repository"
	"github.com/wemet/relay-server-go/internal/util"
)

const (
	maxDisplayNameRunes = 64
	maxAvatarRunes      = 256
	maxBioRunes         = 500
	maxWeMetIDRunes     = 64
)

// Notifier delivers outbound events to a connection's transport.
type Notifier interface {
	Send(connID string, msg protocol.Outbound) bool
	IsLive(connID string) bool
}

// MatchService owns the connection registry and the waiting pool. Every
// operation that reads or writes either of them runs under mu, so a pairing
// is always formed or broken on both sides in one step.
type MatchService struct {
	mu       sync.Mutex
	conns    repository.ConnectionRepository
	pool     repository.WaitingPoolRepository
	notifier Notifier
	balance  BalancePolicy
	metrics  *metrics.Metrics

	initialBalance int64
	waitingTimeout time.Duration

	now  func() time.Time
	pick func(n int) int
}

func NewMatchService(
	conns repository.ConnectionRepository,
	pool repository.WaitingPoolRepository,
	notifier Notifier,
	balance BalancePolicy,
	m *metrics.Metrics,
	initialBalance int64,
	waitingTimeout time.Duration,
) *MatchService {
	if balance == nil {
		balance = TrustClientPolicy{}
	}
	return &MatchService{
		conns:          conns,
		pool:           pool,
		notifier:       notifier,
		balance:        balance,
		metrics:        m,
		initialBalance: initialBalance,
		waitingTimeout: waitingTimeout,
		now:            time.Now,
		pick:           rand.IntN,
	}
}

// RequestMatch registers or refreshes connID and either pairs it with a
// random compatible waiting connection or puts it in the waiting pool. The
// requester becomes the initiator of any pairing formed.
func (s *MatchService) RequestMatch(connID string, req protocol.FindMatch) model.MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	conn, exists := s.conns.Get(connID)
	if exists && conn.Paired() {
		log.Warn().
			Str("connectionId", connID).
			Str("partnerId", conn.PartnerID).
			Msg("match requested while paired, ending previous pairing")
		s.unpairLocked(conn)
	}
	s.pool.RemoveByID(connID)

	if !exists {
		conn = &model.Connection{
			ID:          connID,
			CoinBalance: s.initialBalance,
			ConnectedAt: now,
		}
		s.conns.Put(conn)
	}
	conn.Profile = buildProfile(req)
	conn.Filters = model.Filters{
		MyGender:   model.ParseGender(req.MyGender),
		LookingFor: model.ParseGender(req.LookingFor),
	}

	log.Info().
		Str("connectionId", connID).
		Str("myGender", string(conn.Filters.MyGender)).
		Str("lookingFor", string(conn.Filters.LookingFor)).
		Msg("find match request")

	s.notifier.Send(connID, protocol.BalanceUpdated{Balance: conn.CoinBalance})

	candidates := s.pool.FindCompatible(connID, conn.Filters)
	for len(candidates) > 0 {
		i := s.pick(len(candidates))
		candidate := candidates[i]
		candidates = append(candidates[:i], candidates[i+1:]...)

		partner, ok := s.conns.Get(candidate.ConnectionID)
		if !ok || partner.Paired() || !s.notifier.IsLive(candidate.ConnectionID) {
			s.pool.RemoveByID(candidate.ConnectionID)
			log.Warn().
				Str("candidateId", candidate.ConnectionID).
				Msg("discarding unreachable waiting candidate")
			continue
		}

		s.pool.RemoveByID(partner.ID)
		conn.PartnerID = partner.ID
		partner.PartnerID = conn.ID

		s.notifier.Send(conn.ID, matchedWith(partner, true))
		s.notifier.Send(partner.ID, matchedWith(conn, false))
		s.metrics.IncMatches()

		log.Info().
			Str("connectionId", conn.ID).
			Str("partnerId", partner.ID).
			Dur("partnerWaited", candidate.Age(now)).
			Msg("matched")

		return model.MatchResult{
			Status:    model.MatchStatusMatched,
			PartnerID: partner.ID,
			Initiator: true,
		}
	}

	s.pool.Enqueue(model.WaitingEntry{
		ConnectionID: connID,
		EnqueuedAt:   now,
		Filters:      conn.Filters,
	})
	s.notifier.Send(connID, protocol.Waiting{})
	s.metrics.IncWaiting()

	log.Info().
		Str("connectionId", connID).
		Int("poolSize", s.pool.Len()).
		Msg("user waiting")

	return model.MatchResult{Status: model.MatchStatusWaiting}
}

// unpairLocked clears conn's pairing on both sides and tells the former
// partner. Callers hold mu.
func (s *MatchService) unpairLocked(conn *model.Connection) {
	partnerID := conn.PartnerID
	if partnerID == "" {
		return
	}
	conn.PartnerID = ""

	if partner, ok := s.conns.Get(partnerID); ok && partner.PartnerID == conn.ID {
		partner.PartnerID = ""
	}
	s.notifier.Send(partnerID, protocol.PartnerDisconnected{})
}

func matchedWith(partner *model.Connection, initiator bool) protocol.Matched {
	return protocol.Matched{
		PartnerID:      partner.ID,
		Initiator:      initiator,
		PartnerName:    partner.Profile.DisplayName,
		PartnerAvatar:  partner.Profile.Avatar,
		PartnerBio:     partner.Profile.Bio,
		PartnerWeMetID: partner.Profile.WeMetID,
	}
}

func buildProfile(req protocol.FindMatch) model.Profile {
	profile := model.Profile{
		DisplayName: util.Truncate(util.DefaultIfEmpty(req.Username, model.DefaultDisplayName), maxDisplayNameRunes),
		Avatar:      util.Truncate(util.DefaultIfEmpty(req.Avatar, model.DefaultAvatar), maxAvatarRunes),
		Bio:         util.Truncate(req.Bio, maxBioRunes),
		IsGuest:     req.IsGuest,
	}
	if req.WeMetID != nil {
		if id := util.Truncate(*req.WeMetID, maxWeMetIDRunes); id != "" {
			profile.WeMetID = &id
		}
	}
	return profile
}
