package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richardl62/richards-old-games-server/game/gameerr"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	sessionsActive    prometheus.Gauge
	playersConnected  prometheus.Gauge
	sessionsCreated   prometheus.Counter
	sessionsDestroyed *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	fanoutEvents      *prometheus.CounterVec
	fanoutRecipients  *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg under the
// "gameserver" namespace.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const ns = "gameserver"

	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "sessions_active",
			Help:      "Number of live sessions",
		}),
		playersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "players_connected",
			Help:      "Number of registered players",
		}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		sessionsDestroyed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sessions_destroyed_total",
			Help:      "Total number of sessions destroyed by reason",
		}, []string{"reason"}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_total",
			Help:      "Total number of engine operations by event and result code",
		}, []string{"event", "result"}),
		fanoutEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fanout_events_total",
			Help:      "Total number of events fanned out to rooms",
		}, []string{"event"}),
		fanoutRecipients: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fanout_recipients_total",
			Help:      "Total number of per-connection deliveries queued by fan-out",
		}, []string{"event"}),
	}
}

func (m *Metrics) observe(event string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = gameerr.Code(err)
	}
	m.eventsTotal.WithLabelValues(event, result).Inc()
}

func (m *Metrics) fanout(event string, recipients int) {
	if m == nil {
		return
	}
	m.fanoutEvents.WithLabelValues(event).Inc()
	m.fanoutRecipients.WithLabelValues(event).Add(float64(recipients))
}

func (m *Metrics) created() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) destroyed(reason string) {
	if m == nil {
		return
	}
	m.sessionsDestroyed.WithLabelValues(reason).Inc()
}

func (m *Metrics) destroyedN(reason string, n int) {
	if m == nil {
		return
	}
	m.sessionsDestroyed.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) counts(sessions, players int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(sessions))
	m.playersConnected.Set(float64(players))
}
