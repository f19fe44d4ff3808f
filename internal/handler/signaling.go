package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wemet/relay-server-go/internal/audit"
	"github.com/wemet/relay-server-go/internal/config"
	apperrors "github.com/wemet/relay-server-go/internal/errors"
	"github.com/wemet/relay-server-go/internal/hub"
	"github.com/wemet/relay-server-go/internal/protocol"
	"github.com/wemet/relay-server-go/internal/service"
)

// SignalingHandler upgrades a request to the signaling websocket and runs
// it until either side goes away. Each socket is one anonymous connection
// with a fresh id.
type SignalingHandler struct {
	matches           *service.MatchService
	hub               *hub.Hub
	upgrader          websocket.Upgrader
	maxMessageBytes   int64
	messagesPerSecond int
	sessions          sync.WaitGroup
}

func NewSignalingHandler(
	matches *service.MatchService,
	h *hub.Hub,
	allowedOrigins []string,
	maxMessageBytes int64,
	messagesPerSecond int,
) *SignalingHandler {
	return &SignalingHandler{
		matches: matches,
		hub:     h,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		maxMessageBytes:   maxMessageBytes,
		messagesPerSecond: messagesPerSecond,
	}
}

// originChecker accepts every origin when none are configured. Requests
// without an Origin header come from non-browser clients and are allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

func (h *SignalingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Counted before the hijack so that http.Server.Shutdown returning
	// orders every Add before Wait.
	h.sessions.Add(1)
	defer h.sessions.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := zerolog.Ctx(r.Context()).With().Str("connectionId", connID).Logger()
	ctx := logger.WithContext(r.Context())

	client := h.hub.Subscribe(connID)
	audit.LogFromRequest(r.WithContext(ctx), audit.Event{
		Type:         audit.EventConnectionOpen,
		ConnectionID: connID,
	})
	logger.Info().Msg("client connected")

	h.hub.Send(connID, protocol.Connected{ID: connID})

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writePump(ctx, conn, client)
	}()

	h.readPump(ctx, conn, connID)

	h.matches.Disconnect(connID)
	h.hub.Unsubscribe(client)
	<-writeDone

	audit.Log(ctx, audit.Event{Type: audit.EventConnectionClose, ConnectionID: connID})
	logger.Info().Msg("client disconnected")
}

// Wait blocks until every socket served by h has finished its teardown,
// or ctx is done. Call it after closing the hub.
func (h *SignalingHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *SignalingHandler) readPump(ctx context.Context, conn *websocket.Conn, connID string) {
	logger := zerolog.Ctx(ctx)

	conn.SetReadLimit(h.maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.messagesPerSecond), h.messagesPerSecond)

	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				// gorilla has already sent close 1009.
				tooLarge := apperrors.MessageTooLarge(h.maxMessageBytes)
				logger.Warn().Err(tooLarge).Msg("closing connection")
				audit.Log(ctx, audit.Event{
					Type:         audit.EventProtocolViolated,
					ConnectionID: connID,
					Details:      map[string]interface{}{"reason": string(tooLarge.Code)},
				})
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
				logger.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		if !limiter.Allow() {
			logger.Warn().Int("limit", h.messagesPerSecond).Msg("message rate exceeded, closing")
			audit.Log(ctx, audit.Event{Type: audit.EventRateLimitExceed, ConnectionID: connID})
			writeClose(conn, websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(config.WSPongWait))

		if msgType != websocket.TextMessage {
			logger.Debug().Int("messageType", msgType).Msg("ignoring non-text frame")
			continue
		}

		h.dispatch(ctx, connID, frame)
	}
}

// dispatch routes one decoded frame. Frames that fail to decode are
// dropped; the client is never told.
func (h *SignalingHandler) dispatch(ctx context.Context, connID string, frame []byte) {
	logger := zerolog.Ctx(ctx)

	msg, err := protocol.DecodeInbound(frame)
	if err != nil {
		logger.Debug().Err(err).Msg("dropping undecodable frame")
		return
	}

	switch m := msg.(type) {
	case protocol.FindMatch:
		h.matches.RequestMatch(connID, m)
	case protocol.Signal:
		h.matches.Relay(connID, m.Kind, m.Payload)
	case protocol.StopMatching:
		h.matches.StopMatching(connID)
	case protocol.GetBalance:
		h.matches.SendBalance(connID)
	case protocol.UpdateBalance:
		if _, err := h.matches.UpdateBalance(ctx, connID, m.Amount); err != nil {
			logger.Info().Err(err).Int64("amount", m.Amount).Msg("balance update refused")
		}
	default:
		logger.Warn().Str("event", string(msg.InboundEvent())).Msg("no route for event")
	}
}

func (h *SignalingHandler) writePump(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	logger := zerolog.Ctx(ctx)

	ping := time.NewTicker(config.WSPingInterval)
	defer ping.Stop()
	defer conn.Close()

	for {
		select {
		case <-client.Done:
			writeClose(conn, websocket.CloseGoingAway, "")
			return

		case msg := <-client.Events:
			frame, err := protocol.Encode(msg)
			if err != nil {
				logger.Error().Err(err).Str("event", string(msg.OutboundEvent())).Msg("failed to encode event")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug().Err(err).Msg("write failed, closing")
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WSWriteWait)); err != nil {
				logger.Debug().Err(err).Msg("ping failed, closing")
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(config.WSWriteWait))
}
