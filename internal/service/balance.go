package service

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/wemet/relay-server-go/internal/audit"
	apperrors "github.com/wemet/relay-server-go/internal/errors"
	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/model"
	"github.com/wemet/relay-server-go/internal/protocol"
)

// maxBalanceAttempts bounds how often UpdateBalance re-asks the policy when
// the balance moves between authorization and apply.
const maxBalanceAttempts = 3

// BalancePolicy decides whether a client-declared balance change may be
// applied. Returning an error rejects the change.
type BalancePolicy interface {
	AuthorizeBalanceChange(ctx context.Context, conn model.Connection, delta int64) error
}

// TrustClientPolicy accepts every change. Balances are per-connection and
// not persisted, so there is nothing server-side to check against.
type TrustClientPolicy struct{}

func (TrustClientPolicy) AuthorizeBalanceChange(context.Context, model.Connection, int64) error {
	return nil
}

// BalancePolicyFunc adapts a plain function to BalancePolicy.
type BalancePolicyFunc func(ctx context.Context, conn model.Connection, delta int64) error

func (f BalancePolicyFunc) AuthorizeBalanceChange(ctx context.Context, conn model.Connection, delta int64) error {
	return f(ctx, conn, delta)
}

// Balance returns the coin balance of a registered connection.
func (s *MatchService) Balance(connID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns.Get(connID)
	if !ok {
		return 0, apperrors.NotRegistered(connID)
	}
	return conn.CoinBalance, nil
}

// SendBalance pushes balance-updated to the connection. Unregistered
// connections get nothing.
func (s *MatchService) SendBalance(connID string) bool {
	balance, err := s.Balance(connID)
	if err != nil {
		log.Debug().Str("connectionId", connID).Msg("balance requested before registration")
		return false
	}
	return s.notifier.Send(connID, protocol.BalanceUpdated{Balance: balance})
}

// UpdateBalance applies delta after the policy approves it. The balance
// never goes below zero. The client always receives the resulting balance,
// including after a rejection, so its view resynchronises.
func (s *MatchService) UpdateBalance(ctx context.Context, connID string, delta int64) (int64, error) {
	for attempt := 1; ; attempt++ {
		snapshot, ok := s.Connection(connID)
		if !ok {
			return 0, apperrors.NotRegistered(connID)
		}

		if err := s.balance.AuthorizeBalanceChange(ctx, snapshot, delta); err != nil {
			s.rejectBalance(ctx, connID, delta, err)
			return snapshot.CoinBalance, apperrors.BalanceRejected("policy refused change").WithCause(err)
		}

		s.mu.Lock()
		conn, ok := s.conns.Get(connID)
		if !ok {
			s.mu.Unlock()
			return 0, apperrors.NotRegistered(connID)
		}

		current := conn.CoinBalance
		// The policy approved the snapshot balance; anything else needs a
		// fresh decision.
		if current != snapshot.CoinBalance {
			s.mu.Unlock()
			if attempt < maxBalanceAttempts {
				continue
			}
			err := apperrors.BalanceRejected("balance changed during authorization")
			s.rejectBalance(ctx, connID, delta, err)
			return current, err
		}
		if delta > 0 && current > math.MaxInt64-delta {
			s.mu.Unlock()
			err := apperrors.BalanceRejected("balance overflow")
			s.rejectBalance(ctx, connID, delta, err)
			return current, err
		}
		if current+delta < 0 {
			s.mu.Unlock()
			err := apperrors.InsufficientBalance(current, delta)
			s.rejectBalance(ctx, connID, delta, err)
			return current, err
		}

		conn.CoinBalance = current + delta
		updated := conn.CoinBalance
		s.notifier.Send(connID, protocol.BalanceUpdated{Balance: updated})
		s.mu.Unlock()

		s.metrics.IncBalanceUpdate(metrics.BalanceApplied)
		audit.Log(ctx, audit.Event{
			Type:         audit.EventBalanceUpdate,
			ConnectionID: connID,
			Details: map[string]interface{}{
				"delta":   delta,
				"balance": updated,
			},
		})

		return updated, nil
	}
}

func (s *MatchService) rejectBalance(ctx context.Context, connID string, delta int64, reason error) {
	s.metrics.IncBalanceUpdate(metrics.BalanceRejected)
	audit.Log(ctx, audit.Event{
		Type:         audit.EventBalanceRejected,
		ConnectionID: connID,
		Details: map[string]interface{}{
			"delta":  delta,
			"reason": reason.Error(),
		},
	})
	s.SendBalance(connID)
}
