package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is the transport handle a Peer owns for the duration of its
// room membership. Writes serialize the value as one JSON frame.
type Connection interface {
	WriteJSON(v interface{}) error
	Close() error
}

// DeviceInfo is display metadata parsed once from the client's User-Agent.
// Fields are best-effort and may be empty.
type DeviceInfo struct {
	Model   string `json:"model"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Type    string `json:"type"`
}

// Peer is one connected client. ID is stable across reconnects from the
// same client session; IP is the room scope it belongs to.
type Peer struct {
	ID           string
	IP           string
	RTCSupported bool
	Name         DeviceInfo

	conn Connection

	mu       sync.Mutex
	lastBeat time.Time
	timer    *time.Timer
}

func NewPeer(conn Connection, id, ip string, rtcSupported bool, name DeviceInfo) *Peer {
	return &Peer{
		ID:           id,
		IP:           ip,
		RTCSupported: rtcSupported,
		Name:         name,
		conn:         conn,
		lastBeat:     time.Now(),
	}
}

// NewPeerID returns a fresh random peer identifier in RFC 4122 v4 form.
func NewPeerID() string {
	return uuid.NewString()
}

func (p *Peer) Conn() Connection {
	return p.conn
}

// Info returns the public view of the peer shared with room members.
func (p *Peer) Info() PeerInfo {
	return PeerInfo{
		ID:           p.ID,
		Name:         p.Name,
		RTCSupported: p.RTCSupported,
	}
}

// MarkAlive records a liveness confirmation from the client.
func (p *Peer) MarkAlive() {
	p.mu.Lock()
	p.lastBeat = time.Now()
	p.mu.Unlock()
}

func (p *Peer) LastBeat() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBeat
}

// Reschedule cancels any pending keepalive timer and schedules fn after d.
// There is at most one pending timer per peer.
func (p *Peer) Reschedule(d time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(d, fn)
}

// StopTimer cancels the pending keepalive timer, if any.
func (p *Peer) StopTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Peer) String() string {
	return fmt.Sprintf("<Peer id=%s ip=%s rtcSupported=%t>", p.ID, p.IP, p.RTCSupported)
}
