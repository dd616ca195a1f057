package ledger

import (
	"time"

	"meref-loan-engine/internal/domain/subsidy"

	"github.com/shopspring/decimal"
)

// Mutation is one credit or reservation against an SFD pool.
type Mutation struct {
	SFDID   string
	Amount  decimal.Decimal
	ActorID string
	// Reference names the record that caused the mutation (loan or request id).
	Reference string
}

type AllocationDTO struct {
	AllocationID string          `json:"allocation_id"`
	SFDID        string          `json:"sfd_id"`
	Amount       decimal.Decimal `json:"amount"`
	UsedAmount   decimal.Decimal `json:"used_amount"`
	Remaining    decimal.Decimal `json:"remaining"`
	UsagePercent decimal.Decimal `json:"usage_percent"`
	Status       string          `json:"status"`
	Version      uint64          `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToDTO adds the derived remaining balance and usage share.
func ToDTO(a *subsidy.Allocation) *AllocationDTO {
	return &AllocationDTO{
		AllocationID: a.AllocationID,
		SFDID:        a.SFDID,
		Amount:       a.Amount,
		UsedAmount:   a.UsedAmount,
		Remaining:    a.Remaining(),
		UsagePercent: a.UsagePercent(),
		Status:       string(a.Status),
		Version:      a.Version,
		UpdatedAt:    a.UpdatedAt,
	}
}
