package signal

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"droplink/internal/core/domain"
	"droplink/internal/core/ports"

	"github.com/gorilla/websocket"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"
)

// identityCookie carries the peer id across reconnects from the same client.
const identityCookie = "peerid"

// rtcMarker in the request URL signals WebRTC support.
const rtcMarker = "webrtc"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server accepts websocket connections, establishes per-connection
// identity and feeds inbound frames to the relay.
type Server struct {
	registry ports.Registry
	relay    ports.Relay

	readLimit    int64
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

func NewServer(registry ports.Registry, relay ports.Relay, readLimit int64, writeTimeout time.Duration, logger *zap.SugaredLogger) *Server {
	return &Server{
		registry:     registry,
		relay:        relay,
		readLimit:    readLimit,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// HandleWebSocket upgrades the connection and services it until it closes.
// A fresh identity is issued via Set-Cookie on the upgrade response; an id
// carried by a prior session's cookie is reused and never overwritten.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, fresh := peerIdentity(r)

	respHeader := http.Header{}
	if fresh {
		cookie := http.Cookie{Name: identityCookie, Value: id, SameSite: http.SameSiteStrictMode}
		respHeader.Add("Set-Cookie", cookie.String())
	}

	conn, err := upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.readLimit)

	peer := domain.NewPeer(
		newConnection(conn, s.writeTimeout),
		id,
		clientIP(r),
		strings.Contains(r.URL.RequestURI(), rtcMarker),
		parseDeviceInfo(r.UserAgent()),
	)

	s.logger.Infow("peer connected", "peer", peer.ID, "room", peer.IP, "reused_id", !fresh)

	s.registry.Join(peer)
	s.relay.KeepAlive(peer)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read failed", "peer", peer.ID, "error", err)
			}
			break
		}
		s.relay.HandleMessage(peer, raw)
	}

	s.registry.Leave(peer)
	s.logger.Infow("peer disconnected", "peer", peer.ID, "room", peer.IP)
}

// peerIdentity reuses the id from a prior session cookie when present,
// otherwise generates a fresh one.
func peerIdentity(r *http.Request) (id string, fresh bool) {
	if c, err := r.Cookie(identityCookie); err == nil && c.Value != "" {
		return c.Value, false
	}
	return domain.NewPeerID(), true
}

// clientIP derives the room scope: the first X-Forwarded-For entry when
// behind a proxy, else the transport peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseDeviceInfo extracts display metadata from the User-Agent string.
// Malformed or absent headers yield empty fields, never an error.
func parseDeviceInfo(rawUA string) domain.DeviceInfo {
	ua := useragent.Parse(rawUA)

	deviceType := ""
	switch {
	case ua.Mobile:
		deviceType = "mobile"
	case ua.Tablet:
		deviceType = "tablet"
	case ua.Desktop:
		deviceType = "desktop"
	}

	return domain.DeviceInfo{
		Model:   ua.Device,
		OS:      ua.OS,
		Browser: ua.Name,
		Type:    deviceType,
	}
}

// connection wraps a gorilla conn with a write lock: frames are written
// from both the registry paths and keepalive timer goroutines.
type connection struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newConnection(conn *websocket.Conn, writeTimeout time.Duration) *connection {
	return &connection{conn: conn, writeTimeout: writeTimeout}
}

func (c *connection) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(v)
}

func (c *connection) Close() error {
	return c.conn.Close()
}
