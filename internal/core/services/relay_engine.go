package services

import (
	"encoding/json"
	"time"

	"droplink/internal/core/domain"
	"droplink/internal/core/ports"

	"go.uber.org/zap"
)

// DefaultKeepaliveInterval is the period between server pings. A peer whose
// last confirmed beat is older than twice this is considered dead.
const DefaultKeepaliveInterval = 10 * time.Second

// RelayEngine dispatches frames between peers of the same room and runs the
// keepalive protocol. Payloads are opaque: beyond the control fields it
// routes on, a frame is delivered verbatim.
type RelayEngine struct {
	registry *RoomRegistry
	interval time.Duration

	metrics ports.StatsCollector
	logger  *zap.SugaredLogger
}

func NewRelayEngine(registry *RoomRegistry, interval time.Duration, logger *zap.SugaredLogger, metrics ports.StatsCollector) *RelayEngine {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	return &RelayEngine{
		registry: registry,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleMessage parses one inbound frame from sender and acts on it.
// Unparseable frames are dropped. Control frames (disconnect, pong) are
// consumed; any other frame carrying a "to" field is relayed to that peer
// within the sender's room only, with "to" stripped and "sender" stamped.
// Unknown recipients are dropped silently.
func (e *RelayEngine) HandleMessage(sender *domain.Peer, raw []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		e.logger.Debugw("dropping malformed frame", "peer", sender.ID, "error", err)
		return
	}

	switch env.Type {
	case domain.TypeDisconnect:
		e.registry.Leave(sender)
		return
	case domain.TypePong:
		sender.MarkAlive()
		return
	}

	if env.To == "" || env.To == sender.ID {
		return
	}

	// Recipient lookup is scoped to the sender's room; rooms are
	// isolation boundaries.
	recipient, err := e.registry.Member(sender.IP, env.To)
	if err != nil {
		e.logger.Debugw("dropping frame for unknown recipient", "peer", sender.ID, "to", env.To)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	delete(payload, "to")
	payload["sender"] = sender.ID

	if err := e.registry.Send(recipient, payload); err != nil {
		e.registry.Leave(recipient)
		return
	}
	if e.metrics != nil {
		e.metrics.MessageRelayed()
	}
}

// KeepAlive runs one keepalive cycle for peer and schedules the next one.
// If the peer has not confirmed liveness within two intervals it is removed
// and no further cycle is scheduled. Exactly one timer is pending per peer:
// the reschedule cancels any prior one.
func (e *RelayEngine) KeepAlive(peer *domain.Peer) {
	// A tick may still fire once after removal; stop the cycle here.
	if current, err := e.registry.Member(peer.IP, peer.ID); err != nil || current != peer {
		return
	}

	if time.Since(peer.LastBeat()) > 2*e.interval {
		e.logger.Infow("keepalive timeout", "peer", peer.ID, "room", peer.IP)
		if e.metrics != nil {
			e.metrics.KeepAliveTimeout()
		}
		e.registry.Leave(peer)
		return
	}

	if err := e.registry.Send(peer, domain.NewPing()); err != nil {
		e.registry.Leave(peer)
		return
	}
	e.registry.RescheduleKeepalive(peer, e.interval, func() { e.KeepAlive(peer) })
}
