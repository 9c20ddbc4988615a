package ports

import "droplink/internal/core/domain"

// Registry admits peers into their origin-scoped room and removes them.
type Registry interface {
	Join(peer *domain.Peer)
	Leave(peer *domain.Peer)
}

// Relay dispatches inbound frames and supervises peer liveness.
type Relay interface {
	HandleMessage(sender *domain.Peer, raw []byte)
	KeepAlive(peer *domain.Peer)
}

// RoomStats exposes registry occupancy for health reporting.
type RoomStats interface {
	PeerCount() int
	RoomCount() int
}

// StatsCollector receives registry and relay lifecycle events.
type StatsCollector interface {
	PeerJoined()
	PeerLeft()
	RoomCreated()
	RoomClosed()
	MessageRelayed()
	KeepAliveTimeout()
}
