package obs

import (
	"strconv"
	"time"

	"auction-bidgate/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	BidAttempts           *prometheus.CounterVec
	RateLimited           *prometheus.CounterVec
	RemoteRequests        *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BidAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidgate_bid_attempts_total",
				Help: "Bid submissions handled by the gateway, by outcome",
			},
			[]string{"outcome"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidgate_rate_limited_total",
				Help: "Attempts refused by the client-side rate limiter",
			},
			[]string{"action"},
		),
		RemoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidgate_remote_requests_total",
				Help: "HTTP exchanges with the remote auction service",
			},
			[]string{"endpoint", "code"},
		),
		RemoteRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bidgate_remote_request_duration_seconds",
				Help:    "Remote auction service latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}

	reg.MustRegister(m.BidAttempts, m.RateLimited, m.RemoteRequests, m.RemoteRequestDuration)
	return m
}

// ObserveRemoteRequest satisfies api.RequestObserver.
func (m *Metrics) ObserveRemoteRequest(endpoint string, statusCode int, elapsed time.Duration) {
	m.RemoteRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.RemoteRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) BidAttempt(outcome domain.BidAttemptOutcome) {
	m.BidAttempts.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) Limited(action string) {
	m.RateLimited.WithLabelValues(action).Inc()
}
