package monitoring

import (
	"streamledger/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.MetricsRecorder on top of the
// default prometheus registry.
type PrometheusCollector struct {
	streamsCreatedTotal *prometheus.CounterVec
	streamsActive       prometheus.Gauge
	streamsEndedTotal   prometheus.Counter

	viewersJoinedTotal *prometheus.CounterVec

	revenueDepositedTotal prometheus.Counter
	tipsTotal             prometheus.Counter
	payoutsTotal          prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		streamsCreatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamledger_streams_created_total",
			Help: "Total number of streams created",
		}, []string{"category"}),

		streamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamledger_streams_active",
			Help: "Number of streams currently live",
		}),

		streamsEndedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamledger_streams_ended_total",
			Help: "Total number of streams ended",
		}),

		viewersJoinedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamledger_viewers_joined_total",
			Help: "Total number of viewer joins",
		}, []string{"stream_id"}),

		revenueDepositedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamledger_revenue_deposited_total",
			Help: "Total subscription revenue merged into stream balances",
		}),

		tipsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamledger_tips_total",
			Help: "Total tip value merged into stream balances",
		}),

		payoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamledger_payouts_total",
			Help: "Total revenue paid out to creators",
		}),
	}
}

func (p *PrometheusCollector) RecordStreamCreated(category string) {
	p.streamsCreatedTotal.WithLabelValues(category).Inc()
}

func (p *PrometheusCollector) RecordStreamStarted() {
	p.streamsActive.Inc()
}

func (p *PrometheusCollector) RecordStreamEnded() {
	p.streamsActive.Dec()
	p.streamsEndedTotal.Inc()
}

func (p *PrometheusCollector) RecordViewerJoined(id domain.StreamID) {
	p.viewersJoinedTotal.WithLabelValues(string(id)).Inc()
}

func (p *PrometheusCollector) RecordDeposit(amount uint64) {
	p.revenueDepositedTotal.Add(float64(amount))
}

func (p *PrometheusCollector) RecordTip(amount uint64) {
	p.tipsTotal.Add(float64(amount))
}

func (p *PrometheusCollector) RecordPayout(amount uint64) {
	p.payoutsTotal.Add(float64(amount))
}
