package usecase

import (
	"fmt"
	"time"

	"meref-loan-engine/internal/config"
	"meref-loan-engine/internal/domain/event"
	"meref-loan-engine/internal/infrastructure/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deps carries the collaborators every use case shares. The zero value is
// usable after WithDefaults: UTC wall clock, default policy, discarded events,
// no metrics and a no-op logger.
type Deps struct {
	Policy  config.Policy
	Now     func() time.Time
	Events  event.Publisher
	Metrics *metrics.Collector
	Log     *zap.Logger
}

func (d Deps) WithDefaults() Deps {
	if d.Policy == (config.Policy{}) {
		d.Policy = config.DefaultPolicy
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Events == nil {
		d.Events = event.Discard{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return d
}

// Grace is the overdue window after next_payment_date before a loan may default.
func (d Deps) Grace() time.Duration {
	return time.Duration(d.Policy.GraceDays) * 24 * time.Hour
}

// NextDue advances a due date by one repayment cadence.
func (d Deps) NextDue(from time.Time) time.Time {
	return from.AddDate(0, d.Policy.CadenceMonths, 0)
}

// Precise reports whether amt carries no more decimal places than the
// currency's minor units allow.
func (d Deps) Precise(amt decimal.Decimal) bool {
	return amt.Equal(amt.Round(d.Policy.MinorUnits))
}

// PrecisionMessage is the violation text for an amount Precise rejects.
func (d Deps) PrecisionMessage() string {
	return fmt.Sprintf("must have at most %d decimal places", d.Policy.MinorUnits)
}
