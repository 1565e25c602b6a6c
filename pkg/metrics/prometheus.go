package metrics

import (
	"FollowFeed/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals     *prometheus.CounterVec
	follows     *prometheus.CounterVec
	backlog     prometheus.Gauge
	polls       *prometheus.CounterVec
	connection  *prometheus.GaugeVec
	lastPrice   *prometheus.GaugeVec
	alertsFired *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "followfeed_signals_generated_total",
				Help: "Total number of trade signals received by the follow engine",
			},
			[]string{"symbol"},
		),
		follows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "followfeed_follows_total",
				Help: "Follow attempts by result",
			},
			[]string{"result"},
		),
		backlog: f.NewGauge(prometheus.GaugeOpts{
			Name: "followfeed_signal_backlog",
			Help: "Number of unresolved signals in the backlog",
		}),
		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "followfeed_market_polls_total",
				Help: "Market feed polls by result",
			},
			[]string{"result"},
		),
		connection: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "followfeed_market_connection",
				Help: "1 for the current connection status of the market feed, 0 otherwise",
			},
			[]string{"status"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "followfeed_last_price",
				Help: "Last polled price for a symbol",
			},
			[]string{"symbol"},
		),
		alertsFired: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "followfeed_price_alerts_fired_total",
				Help: "Price alert firings",
			},
			[]string{"symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "followfeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "followfeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignal(symbol string) {
	r.signals.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordFollow(result models.FollowResult) {
	r.follows.WithLabelValues(string(result)).Inc()
}

func (r *Recorder) RecordBacklog(size int) {
	r.backlog.Set(float64(size))
}

func (r *Recorder) RecordPoll(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.polls.WithLabelValues(result).Inc()
}

// RecordConnection sets the gauge of the active status to 1 and the others to 0.
func (r *Recorder) RecordConnection(status models.ConnectionStatus) {
	for _, s := range []models.ConnectionStatus{models.StatusConnecting, models.StatusConnected, models.StatusDisconnected} {
		v := 0.0
		if s == status {
			v = 1
		}
		r.connection.WithLabelValues(string(s)).Set(v)
	}
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordAlertFired(symbol string) {
	r.alertsFired.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
