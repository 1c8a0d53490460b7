// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers  prometheus.Gauge
	ActiveRooms    prometheus.Gauge
	CallsProcessed prometheus.Counter
	CallLatency    prometheus.Histogram
	GamesFinished  prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with a live driver",
		}),
		CallsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_processed_total",
			Help:      "Total number of numbers called",
		}),
		CallLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_latency_seconds",
			Help:      "Turn resolution latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Total number of completed games",
		}),
	}

	prometheus.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.CallsProcessed,
		m.CallLatency,
		m.GamesFinished,
	)

	return m
}

var (
	initOnce  sync.Once
	metrics   *Metrics
	startTime = time.Now()
)

func get() *Metrics {
	initOnce.Do(func() {
		metrics = NewMetrics("bingo")
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(startTime).Seconds()
		}))
	})
	return metrics
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	get()
	return promhttp.Handler()
}

func SessionOpened() {
	get().OnlinePlayers.Inc()
}

func SessionClosed() {
	get().OnlinePlayers.Dec()
}

func RoomOpened() {
	get().ActiveRooms.Inc()
}

func RoomClosed() {
	get().ActiveRooms.Dec()
}

func CallProcessed(duration time.Duration) {
	m := get()
	m.CallsProcessed.Inc()
	m.CallLatency.Observe(duration.Seconds())
}

func GameFinished() {
	get().GamesFinished.Inc()
}
