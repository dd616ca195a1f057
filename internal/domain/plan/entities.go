package plan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var ErrNotFound = errors.New("loan plan not found")

// Table: loan_plans. Plans are soft-deactivated only; historical loans keep
// pointing at them.
type LoanPlan struct {
	ID           uint64                      `gorm:"primaryKey;column:id" json:"-"`
	PlanID       string                      `gorm:"size:32;uniqueIndex:ux_loan_plans_plan_id" json:"plan_id"`
	SFDID        string                      `gorm:"column:sfd_id;size:32;index:idx_loan_plans_sfd" json:"sfd_id"`
	Name         string                      `gorm:"size:128;not null" json:"name"`
	MinAmount    decimal.Decimal             `gorm:"type:decimal(18,2);not null" json:"min_amount"`
	MaxAmount    decimal.Decimal             `gorm:"type:decimal(18,2);not null" json:"max_amount"`
	MinDuration  int                         `gorm:"not null" json:"min_duration"`
	MaxDuration  int                         `gorm:"not null" json:"max_duration"`
	InterestRate decimal.Decimal             `gorm:"type:decimal(7,4);not null" json:"interest_rate"`
	FeeRate      decimal.Decimal             `gorm:"type:decimal(7,4);not null;default:0" json:"fee_rate"`
	Requirements datatypes.JSONSlice[string] `gorm:"type:json" json:"requirements"`
	IsActive     bool                        `gorm:"not null" json:"is_active"`
	Version      uint32                      `gorm:"not null;default:1" json:"version"`
	CreatedBy    string                      `gorm:"size:32" json:"created_by"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LoanPlan) TableName() string { return "loan_plans" }

func (p *LoanPlan) AmountInRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinAmount) && amount.LessThanOrEqual(p.MaxAmount)
}

func (p *LoanPlan) DurationInRange(months int) bool {
	return months >= p.MinDuration && months <= p.MaxDuration
}
