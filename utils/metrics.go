package utils

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks coin flow and operation outcomes.
type LedgerMetrics struct {
	credited      *prometheus.CounterVec
	debited       *prometheus.CounterVec
	checkins      prometheus.Counter
	raffleEntries prometheus.Counter
	rafflesDrawn  prometheus.Counter
	purchases     prometheus.Counter
	failures      *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsRegistry *LedgerMetrics
)

// Metrics returns the process-wide ledger metrics, registering them on first use.
func Metrics() *LedgerMetrics {
	metricsOnce.Do(func() {
		metricsRegistry = &LedgerMetrics{
			credited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "coinbot_coins_credited_total",
				Help: "Coins credited to accounts by category.",
			}, []string{"category"}),
			debited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "coinbot_coins_debited_total",
				Help: "Coins debited from accounts by category.",
			}, []string{"category"}),
			checkins: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "coinbot_checkins_total",
				Help: "Successful daily check-ins.",
			}),
			raffleEntries: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "coinbot_raffle_entries_total",
				Help: "Paid raffle entries.",
			}),
			rafflesDrawn: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "coinbot_raffles_drawn_total",
				Help: "Raffles completed with a winner.",
			}),
			purchases: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "coinbot_purchases_total",
				Help: "Completed shop purchases.",
			}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "coinbot_operation_failures_total",
				Help: "Rejected or failed operations by operation and error kind.",
			}, []string{"op", "kind"}),
		}
		prometheus.MustRegister(
			metricsRegistry.credited,
			metricsRegistry.debited,
			metricsRegistry.checkins,
			metricsRegistry.raffleEntries,
			metricsRegistry.rafflesDrawn,
			metricsRegistry.purchases,
			metricsRegistry.failures,
		)
	})
	return metricsRegistry
}

func (m *LedgerMetrics) ObserveCredit(category string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.credited.WithLabelValues(category).Add(float64(amount))
}

func (m *LedgerMetrics) ObserveDebit(category string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.debited.WithLabelValues(category).Add(float64(amount))
}

func (m *LedgerMetrics) ObserveCheckin() {
	if m == nil {
		return
	}
	m.checkins.Inc()
}

func (m *LedgerMetrics) ObserveRaffleEntry() {
	if m == nil {
		return
	}
	m.raffleEntries.Inc()
}

func (m *LedgerMetrics) ObserveRaffleDrawn() {
	if m == nil {
		return
	}
	m.rafflesDrawn.Inc()
}

func (m *LedgerMetrics) ObservePurchase() {
	if m == nil {
		return
	}
	m.purchases.Inc()
}

func (m *LedgerMetrics) ObserveFailure(op, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.failures.WithLabelValues(op, kind).Inc()
}
