package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("loan not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusDefaulted Status = "defaulted"
)

// transitions lists, per target status, the statuses a loan may leave to reach it.
var transitions = map[Status][]Status{
	StatusApproved:  {StatusPending},
	StatusRejected:  {StatusPending},
	StatusActive:    {StatusApproved},
	StatusCompleted: {StatusActive},
	StatusDefaulted: {StatusActive},
}

// CanTransition reports whether from -> to is an edge of the loan state machine.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusDefaulted
}

// Table: loans
type Loan struct {
	ID       uint64  `gorm:"primaryKey;column:id" json:"-"`
	LoanID   string  `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	ClientID string  `gorm:"size:32;index:idx_loans_client" json:"client_id"`
	SFDID    string  `gorm:"column:sfd_id;size:32;index:idx_loans_sfd_status" json:"sfd_id"`
	PlanID   *string `gorm:"size:32" json:"plan_id,omitempty"`
	// PlanVersion pins the catalog terms the loan was validated against.
	PlanVersion *uint32 `json:"plan_version,omitempty"`

	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	DurationMonths int             `gorm:"not null" json:"duration_months"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"interest_rate"`
	MonthlyPayment decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"monthly_payment"`
	TotalRepayment decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_repayment"`
	FeeAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"fee_amount"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount_paid"`
	SubsidyAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"subsidy_amount"`
	SubsidyRate    decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"subsidy_rate"`

	Status          Status    `gorm:"size:16;not null;default:'pending';index:idx_loans_sfd_status" json:"status"`
	StatusUpdatedAt time.Time `json:"status_updated_at"`
	Purpose         string    `gorm:"type:text" json:"purpose"`

	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *string    `gorm:"size:32" json:"approved_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      *string    `gorm:"size:32" json:"rejected_by,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	DisbursedAt     *time.Time `json:"disbursed_at,omitempty"`
	DisbursedBy     *string    `gorm:"size:32" json:"disbursed_by,omitempty"`
	// DisbursementKey is the caller's idempotency key for the disbursement call.
	DisbursementKey *string    `gorm:"size:64" json:"-"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	NextPaymentDate *time.Time `gorm:"index:idx_loans_next_payment" json:"next_payment_date,omitempty"`
	DefaultedAt     *time.Time `json:"defaulted_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Outstanding is what remains to be repaid against the total repayment.
func (l *Loan) Outstanding() decimal.Decimal {
	rest := l.TotalRepayment.Sub(l.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// MoveTo applies a state-machine edge, stamping StatusUpdatedAt.
func (l *Loan) MoveTo(to Status, at time.Time) bool {
	if !CanTransition(l.Status, to) {
		return false
	}
	l.Status = to
	l.StatusUpdatedAt = at
	return true
}

// OverdueSince reports whether the next installment is more than grace past due at now.
func (l *Loan) OverdueSince(now time.Time, grace time.Duration) bool {
	if l.Status != StatusActive || l.NextPaymentDate == nil {
		return false
	}
	return now.After(l.NextPaymentDate.Add(grace))
}
