package signal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"droplink/internal/core/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := zap.NewNop().Sugar()
	registry := services.NewRoomRegistry(log, nil)
	relay := services.NewRelayEngine(registry, time.Minute, log, nil)
	gateway := NewServer(registry, relay, 64*1024, 5*time.Second, log)

	ts := httptest.NewServer(http.HandlerFunc(gateway.HandleWebSocket))
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, path string, header http.Header) (*websocket.Conn, *http.Response) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, resp
}

// readFrame returns the next non-ping frame.
func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame["type"] == "ping" {
			continue
		}
		return frame
	}
}

func issuedPeerID(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == identityCookie {
			return c.Value
		}
	}
	return ""
}

func TestConnectIssuesIdentityCookie(t *testing.T) {
	ts := newTestServer(t)

	conn, resp := dial(t, ts, "/server?webrtc", nil)

	id := issuedPeerID(resp)
	assert.Len(t, id, 36)

	frame := readFrame(t, conn)
	assert.Equal(t, "peers", frame["type"])
	assert.Empty(t, frame["peers"])
}

func TestConnectReusesCookieIdentity(t *testing.T) {
	ts := newTestServer(t)

	first, _ := dial(t, ts, "/server", nil)
	readFrame(t, first)

	header := http.Header{}
	header.Set("Cookie", identityCookie+"=carried-over-id")
	second, resp := dial(t, ts, "/server", header)

	// An id carried by the cookie must not be overwritten
	assert.Empty(t, issuedPeerID(resp))

	frame := readFrame(t, second)
	require.Equal(t, "peers", frame["type"])

	joined := readFrame(t, first)
	require.Equal(t, "peer-joined", joined["type"])
	assert.Equal(t, "carried-over-id", joined["peer"].(map[string]interface{})["id"])
}

func TestRelayBetweenClients(t *testing.T) {
	ts := newTestServer(t)

	connA, respA := dial(t, ts, "/server", nil)
	readFrame(t, connA)
	idA := issuedPeerID(respA)

	connB, respB := dial(t, ts, "/server", nil)
	idB := issuedPeerID(respB)

	peersFrame := readFrame(t, connB)
	require.Equal(t, "peers", peersFrame["type"])
	peers := peersFrame["peers"].([]interface{})
	require.Len(t, peers, 1)
	assert.Equal(t, idA, peers[0].(map[string]interface{})["id"])

	joined := readFrame(t, connA)
	require.Equal(t, "peer-joined", joined["type"])

	offer := map[string]interface{}{"to": idA, "kind": "offer", "sdp": "v=0..."}
	require.NoError(t, connB.WriteJSON(offer))

	relayed := readFrame(t, connA)
	assert.Equal(t, "offer", relayed["kind"])
	assert.Equal(t, "v=0...", relayed["sdp"])
	assert.Equal(t, idB, relayed["sender"])
	assert.NotContains(t, relayed, "to")

	require.NoError(t, connB.WriteJSON(map[string]interface{}{"type": "disconnect"}))

	left := readFrame(t, connA)
	assert.Equal(t, "peer-left", left["type"])
	assert.Equal(t, idB, left["peerId"])
}

func TestCapabilityFlagFromURL(t *testing.T) {
	ts := newTestServer(t)

	connA, _ := dial(t, ts, "/server?webrtc", nil)
	readFrame(t, connA)

	connB, _ := dial(t, ts, "/server", nil)
	peersFrame := readFrame(t, connB)

	peers := peersFrame["peers"].([]interface{})
	require.Len(t, peers, 1)
	assert.Equal(t, true, peers[0].(map[string]interface{})["rtcSupported"])
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/server", nil)
	r.RemoteAddr = "127.0.0.1:54321"

	assert.Equal(t, "127.0.0.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "10.0.0.5, 172.16.0.1")
	assert.Equal(t, "10.0.0.5", clientIP(r))
}

func TestParseDeviceInfo(t *testing.T) {
	info := parseDeviceInfo("Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0")
	assert.Equal(t, "Firefox", info.Browser)
	assert.Equal(t, "Linux", info.OS)
	assert.Equal(t, "desktop", info.Type)

	// Garbage UA must not fail, just come back empty
	empty := parseDeviceInfo("")
	assert.Equal(t, "", empty.Browser)
}

func TestRawPayloadPassesThrough(t *testing.T) {
	ts := newTestServer(t)

	connA, respA := dial(t, ts, "/server", nil)
	readFrame(t, connA)
	idA := issuedPeerID(respA)

	connB, _ := dial(t, ts, "/server", nil)
	readFrame(t, connB)
	readFrame(t, connA) // peer-joined

	// Arbitrary nested payloads are relayed verbatim
	payload := map[string]interface{}{
		"to":        idA,
		"candidate": map[string]interface{}{"sdpMid": "0", "candidate": "candidate:1 1 UDP ..."},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, connB.WriteMessage(websocket.TextMessage, raw))

	relayed := readFrame(t, connA)
	candidate := relayed["candidate"].(map[string]interface{})
	assert.Equal(t, "0", candidate["sdpMid"])
}
