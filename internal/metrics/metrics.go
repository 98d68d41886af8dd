package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus instruments for the conversation layer.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	ChatRequestsTotal *prometheus.CounterVec

	// Usage metrics
	TokensTotal     *prometheus.CounterVec
	CostUSDTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Content safety metrics
	BlockedContentTotal *prometheus.CounterVec
}

// New creates and registers all conversation metrics on a private
// registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ChatRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_requests_total",
				Help: "Total conversation requests by backend configuration.",
			},
			[]string{"provider", "variant", "business_user"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total tokens consumed by completion calls.",
			},
			[]string{"provider", "variant", "direction"},
		),
		CostUSDTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_cost_usd_total",
				Help: "Estimated completion cost in US dollars.",
			},
			[]string{"provider", "variant"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of completion calls in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "variant"},
		),
		BlockedContentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blocked_content_total",
				Help: "Completion calls whose content was blocked by the provider.",
			},
			[]string{"provider", "reason", "category"},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ChatRequestsTotal)
	m.registry.MustRegister(m.TokensTotal)
	m.registry.MustRegister(m.CostUSDTotal)
	m.registry.MustRegister(m.RequestDuration)
	m.registry.MustRegister(m.BlockedContentTotal)
}

// IncChatRequests counts one conversation request with the backend
// configuration as dimensions.
func (m *Metrics) IncChatRequests(provider, variant, businessUser string) {
	m.ChatRequestsTotal.WithLabelValues(provider, variant, businessUser).Inc()
}

// ObserveUsage records token, cost and latency figures for one
// completion call. Zero token counts are skipped so that backends
// which do not report usage leave no misleading series behind.
func (m *Metrics) ObserveUsage(provider, variant string, inputTokens, outputTokens int, costUSD float64, latency time.Duration) {
	if inputTokens > 0 {
		m.TokensTotal.WithLabelValues(provider, variant, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensTotal.WithLabelValues(provider, variant, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		m.CostUSDTotal.WithLabelValues(provider, variant).Add(costUSD)
	}
	m.RequestDuration.WithLabelValues(provider, variant).Observe(latency.Seconds())
}

// IncBlockedContent counts one blocked completion.
func (m *Metrics) IncBlockedContent(provider, reason, category string) {
	if reason == "" {
		reason = "unknown"
	}
	if category == "" {
		category = "unknown"
	}
	m.BlockedContentTotal.WithLabelValues(provider, reason, category).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
