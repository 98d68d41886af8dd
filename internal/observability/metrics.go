package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// moduleMetrics holds process-wide instruments for the history store.
// They are registered lazily on the default registry so library users
// who never scrape pay nothing beyond the counters themselves.
type moduleMetrics struct {
	activeConversations prometheus.Gauge
	historyLoadDuration prometheus.Histogram
	historySaveDuration prometheus.Histogram
	historyTurnsDeleted prometheus.Counter
	historyCleared      prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeConversations: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "history_active_conversations",
					Help: "Number of conversations currently holding state in the store.",
				},
			),
			historyLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_load_duration_seconds",
					Help:    "Duration of history load operations in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			historySaveDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_save_duration_seconds",
					Help:    "Duration of history append operations in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			historyTurnsDeleted: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "history_turns_deleted_total",
					Help: "Total turns removed by positional delete.",
				},
			),
			historyCleared: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "history_conversations_cleared_total",
					Help: "Total conversations cleared on end.",
				},
			),
		}

		prometheus.DefaultRegisterer.MustRegister(
			m.activeConversations,
			m.historyLoadDuration,
			m.historySaveDuration,
			m.historyTurnsDeleted,
			m.historyCleared,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered forces registration of the store instruments.
func EnsureRegistered() {
	getMetrics()
}

// SetActiveConversations records the store's current record count.
func SetActiveConversations(n int) {
	getMetrics().activeConversations.Set(float64(n))
}

// RecordHistoryLoad records one load operation's duration.
func RecordHistoryLoad(d time.Duration) {
	getMetrics().historyLoadDuration.Observe(d.Seconds())
}

// RecordHistorySave records one append operation's duration.
func RecordHistorySave(d time.Duration) {
	getMetrics().historySaveDuration.Observe(d.Seconds())
}

// RecordTurnDeleted counts one positional delete.
func RecordTurnDeleted() {
	getMetrics().historyTurnsDeleted.Inc()
}

// RecordConversationCleared counts one cleared conversation.
func RecordConversationCleared() {
	getMetrics().historyCleared.Inc()
}
