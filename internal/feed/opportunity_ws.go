// Package feed streams arbitrage opportunities from an external WebSocket
// source into the execution engine.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arbstack/flasharb/internal/crypto"
	"github.com/arbstack/flasharb/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// OpportunityFeed connects to an opportunity WebSocket endpoint, decodes each
// message as an ArbitrageRequest, and forwards it to a channel. It reconnects
// with exponential backoff on disconnect.
type OpportunityFeed struct {
	wsURL          string
	hmacSecret     string
	reconnectDelay time.Duration
	out            chan domain.ArbitrageRequest
	logger         *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// signedEnvelope wraps a feed payload with its HMAC-SHA256 signature. Used
// only when an HMAC secret is configured.
type signedEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// NewOpportunityFeed creates a feed for the given WebSocket URL. buffer sizes
// the output channel; reconnectDelay is the base backoff delay. A non-empty
// hmacSecret makes the feed require signed envelopes and drop everything
// else.
func NewOpportunityFeed(wsURL, hmacSecret string, buffer int, reconnectDelay time.Duration, logger *slog.Logger) *OpportunityFeed {
	if buffer <= 0 {
		buffer = 256
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpportunityFeed{
		wsURL:          wsURL,
		hmacSecret:     hmacSecret,
		reconnectDelay: reconnectDelay,
		out:            make(chan domain.ArbitrageRequest, buffer),
		logger:         logger.With(slog.String("component", "opportunity_feed")),
		done:           make(chan struct{}),
	}
}

// Requests returns the channel of decoded opportunities. It is closed when
// Run returns.
func (f *OpportunityFeed) Requests() <-chan domain.ArbitrageRequest {
	return f.out
}

// Run connects and reads until ctx is cancelled or Close is called,
// reconnecting with exponential backoff on disconnect.
func (f *OpportunityFeed) Run(ctx context.Context) error {
	defer close(f.out)

	delay := f.reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close stops the feed.
func (f *OpportunityFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

func (f *OpportunityFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Close the connection when the context is cancelled so ReadMessage
	// unblocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		case <-stop:
			return
		}
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		_ = conn.Close()
	}()

	go f.pingLoop(conn, stop)

	f.logger.Info("feed connected", slog.String("url", f.wsURL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}

		payload := message
		if f.hmacSecret != "" {
			var env signedEnvelope
			if err := json.Unmarshal(message, &env); err != nil ||
				!crypto.VerifyHMAC([]byte(f.hmacSecret), env.Payload, env.Signature) {
				f.logger.Warn("feed message rejected: bad signature",
					slog.Int("payload_len", len(message)),
				)
				continue
			}
			payload = env.Payload
		}

		var req domain.ArbitrageRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			f.logger.Debug("feed message dropped",
				slog.String("error", err.Error()),
				slog.Int("payload_len", len(payload)),
			)
			continue
		}
		if req.SubmittedAt.IsZero() {
			req.SubmittedAt = time.Now()
		}

		select {
		case f.out <- req:
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		}
	}
}

func (f *OpportunityFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-f.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
