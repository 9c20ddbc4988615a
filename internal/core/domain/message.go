package domain

// Inbound and outbound control message types.
const (
	TypePing       = "ping"
	TypePong       = "pong"
	TypeDisconnect = "disconnect"
	TypePeers      = "peers"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
)

// Envelope is the typed peek at an inbound frame: the control type, if any,
// and the recipient id for relay frames. Everything else in the frame is an
// opaque payload the relay never interprets.
type Envelope struct {
	Type string `json:"type"`
	To   string `json:"to"`
}

// PeerInfo is the public view of a peer shared with other room members.
type PeerInfo struct {
	ID           string     `json:"id"`
	Name         DeviceInfo `json:"name"`
	RTCSupported bool       `json:"rtcSupported"`
}

type PingMessage struct {
	Type string `json:"type"`
}

type PeersMessage struct {
	Type  string     `json:"type"`
	Peers []PeerInfo `json:"peers"`
}

type PeerJoinedMessage struct {
	Type string   `json:"type"`
	Peer PeerInfo `json:"peer"`
}

type PeerLeftMessage struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

func NewPing() PingMessage {
	return PingMessage{Type: TypePing}
}

func NewPeers(peers []PeerInfo) PeersMessage {
	return PeersMessage{Type: TypePeers, Peers: peers}
}

func NewPeerJoined(peer PeerInfo) PeerJoinedMessage {
	return PeerJoinedMessage{Type: TypePeerJoined, Peer: peer}
}

func NewPeerLeft(peerID string) PeerLeftMessage {
	return PeerLeftMessage{Type: TypePeerLeft, PeerID: peerID}
}
