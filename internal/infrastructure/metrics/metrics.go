package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector owns the engine's Prometheus registry. A nil *Collector is valid
// and records nothing, which keeps use cases free of nil checks in tests.
type Collector struct {
	registry          *prometheus.Registry
	loanTransitions   *prometheus.CounterVec
	disbursements     *prometheus.CounterVec
	reservations      *prometheus.CounterVec
	txRetries         *prometheus.CounterVec
	notifyFailures    prometheus.Counter
	allocationUsage   *prometheus.GaugeVec
	allocationBalance *prometheus.GaugeVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		loanTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_transitions_total",
			Help: "Loan state transitions committed, by target status",
		}, []string{"status"}),
		disbursements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_disbursements_total",
			Help: "Disbursement attempts by outcome",
		}, []string{"result"}),
		reservations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subsidy_ledger_mutations_total",
			Help: "Subsidy ledger credits and reservations by outcome",
		}, []string{"op", "result"}),
		txRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_tx_retries_total",
			Help: "Transactions restarted after a version conflict",
		}, []string{"operation"}),
		notifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notifications dropped on a full queue or after exhausting retries",
		}),
		allocationUsage: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "subsidy_allocation_used_amount",
			Help: "Used amount of the live subsidy pool per SFD",
		}, []string{"sfd_id"}),
		allocationBalance: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "subsidy_allocation_amount",
			Help: "Allocated amount of the live subsidy pool per SFD",
		}, []string{"sfd_id"}),
	}
}

func (c *Collector) LoanTransition(status string) {
	if c == nil {
		return
	}
	c.loanTransitions.WithLabelValues(status).Inc()
}

func (c *Collector) Disbursement(result string) {
	if c == nil {
		return
	}
	c.disbursements.WithLabelValues(result).Inc()
}

func (c *Collector) LedgerMutation(op, result string) {
	if c == nil {
		return
	}
	c.reservations.WithLabelValues(op, result).Inc()
}

func (c *Collector) TxRetry(operation string) {
	if c == nil {
		return
	}
	c.txRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) NotificationFailed() {
	if c == nil {
		return
	}
	c.notifyFailures.Inc()
}

func (c *Collector) AllocationBalance(sfdID string, amount, used decimal.Decimal) {
	if c == nil {
		return
	}
	c.allocationBalance.WithLabelValues(sfdID).Set(amount.InexactFloat64())
	c.allocationUsage.WithLabelValues(sfdID).Set(used.InexactFloat64())
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
