package services

import (
	"fmt"
	"sync"
	"time"

	"droplink/internal/core/domain"
	"droplink/internal/core/ports"

	"go.uber.org/zap"
)

// RoomRegistry partitions connected peers into rooms keyed by origin
// (client network address). It exclusively owns every Peer reachable from
// it; all mutations happen under one lock.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*domain.Peer

	metrics ports.StatsCollector
	logger  *zap.SugaredLogger
}

func NewRoomRegistry(logger *zap.SugaredLogger, metrics ports.StatsCollector) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]map[string]*domain.Peer),
		metrics: metrics,
		logger:  logger,
	}
}

// Join admits a peer into the room for its origin, creating the room if
// needed. A stale entry under the same id (unclean prior disconnect) is
// superseded: its timer is canceled and its transport closed, without a
// peer-left broadcast. Existing members are notified before the joiner
// receives its peer list, so the joiner never sees itself in that list.
func (r *RoomRegistry) Join(peer *domain.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[peer.IP]
	if !ok {
		room = make(map[string]*domain.Peer)
		r.rooms[peer.IP] = room
		if r.metrics != nil {
			r.metrics.RoomCreated()
		}
	}

	if stale, ok := room[peer.ID]; ok {
		stale.StopTimer()
		stale.Conn().Close()
		delete(room, peer.ID)
		r.logger.Infow("superseded stale peer entry", "peer", peer.ID, "room", peer.IP)
	}

	info := peer.Info()
	others := make([]domain.PeerInfo, 0, len(room))
	for _, other := range room {
		r.notify(other, domain.NewPeerJoined(info))
		others = append(others, other.Info())
	}
	r.notify(peer, domain.NewPeers(others))

	room[peer.ID] = peer
	if r.metrics != nil {
		r.metrics.PeerJoined()
	}
	r.logger.Infow("peer joined room", "peer", peer.ID, "room", peer.IP, "members", len(room))
}

// Leave cancels the peer's keepalive timer and removes it from its room.
// It is idempotent: if the peer's slot is gone, or already taken over by a
// superseding connection, nothing happens. An emptied room is deleted;
// otherwise remaining members get a peer-left broadcast.
func (r *RoomRegistry) Leave(peer *domain.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stopping the timer under the lock pairs with RescheduleKeepalive:
	// a concurrently firing tick either re-armed before this and is
	// canceled here, or is refused by the occupancy check after.
	peer.StopTimer()

	room, ok := r.rooms[peer.IP]
	if !ok {
		return
	}
	if current, ok := room[peer.ID]; !ok || current != peer {
		return
	}

	delete(room, peer.ID)
	peer.Conn().Close()

	if len(room) == 0 {
		delete(r.rooms, peer.IP)
		if r.metrics != nil {
			r.metrics.RoomClosed()
		}
	} else {
		for _, other := range room {
			r.notify(other, domain.NewPeerLeft(peer.ID))
		}
	}

	if r.metrics != nil {
		r.metrics.PeerLeft()
	}
	r.logger.Infow("peer left room", "peer", peer.ID, "room", peer.IP)
}

// Member looks up a peer by id within one room.
func (r *RoomRegistry) Member(ip, id string) (*domain.Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[ip]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	peer, ok := room[id]
	if !ok {
		return nil, domain.ErrPeerNotFound
	}
	return peer, nil
}

// Send transmits one message to a peer. A write failure means the transport
// is gone; callers treat it as a disconnect and remove the peer.
func (r *RoomRegistry) Send(peer *domain.Peer, v interface{}) error {
	if peer == nil {
		r.logger.Errorw("send to undefined peer")
		return domain.ErrPeerNotFound
	}
	if err := peer.Conn().WriteJSON(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionClosed, err)
	}
	return nil
}

// notify sends during a Join/Leave broadcast. A failed write removes the
// dead member asynchronously so the broadcast continues and the registry
// lock is not re-entered.
func (r *RoomRegistry) notify(peer *domain.Peer, v interface{}) {
	if err := r.Send(peer, v); err != nil {
		r.logger.Debugw("notify failed, dropping peer", "peer", peer.ID, "error", err)
		go r.Leave(peer)
	}
}

// RescheduleKeepalive arms the peer's next keepalive tick, canceling any
// pending one, but only while the peer still occupies its room slot. Doing
// the occupancy check and the re-arm under the registry lock means a Leave
// or supersession racing a firing tick cannot leave an orphan timer behind.
func (r *RoomRegistry) RescheduleKeepalive(peer *domain.Peer, d time.Duration, fn func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if room, ok := r.rooms[peer.IP]; !ok || room[peer.ID] != peer {
		return
	}
	peer.Reschedule(d, fn)
}

// PeerCount reports the number of connected peers across all rooms.
func (r *RoomRegistry) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, room := range r.rooms {
		n += len(room)
	}
	return n
}

// RoomCount reports the number of active rooms.
func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
