package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	peersConnected prometheus.Gauge
	roomsActive    prometheus.Gauge

	joinsTotal             prometheus.Counter
	leavesTotal            prometheus.Counter
	messagesRelayedTotal   prometheus.Counter
	keepaliveTimeoutsTotal prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		peersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "droplink_peers_connected",
			Help: "Number of currently connected peers",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "droplink_rooms_active",
			Help: "Number of rooms with at least one member",
		}),

		joinsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "droplink_joins_total",
			Help: "Total number of room joins",
		}),

		leavesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "droplink_leaves_total",
			Help: "Total number of room leaves",
		}),

		messagesRelayedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "droplink_messages_relayed_total",
			Help: "Total number of frames relayed between peers",
		}),

		keepaliveTimeoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "droplink_keepalive_timeouts_total",
			Help: "Total number of peers evicted for missing keepalive",
		}),
	}
}

func (c *PrometheusCollector) PeerJoined() {
	c.peersConnected.Inc()
	c.joinsTotal.Inc()
}

func (c *PrometheusCollector) PeerLeft() {
	c.peersConnected.Dec()
	c.leavesTotal.Inc()
}

func (c *PrometheusCollector) RoomCreated() {
	c.roomsActive.Inc()
}

func (c *PrometheusCollector) RoomClosed() {
	c.roomsActive.Dec()
}

func (c *PrometheusCollector) MessageRelayed() {
	c.messagesRelayedTotal.Inc()
}

func (c *PrometheusCollector) KeepAliveTimeout() {
	c.keepaliveTimeoutsTotal.Inc()
}
