package subsidy

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAllocationNotFound = errors.New("subsidy allocation not found")
	ErrRequestNotFound    = errors.New("subsidy request not found")
)

type AllocationStatus string

const (
	AllocationActive   AllocationStatus = "active"
	AllocationDepleted AllocationStatus = "depleted"
	AllocationRevoked  AllocationStatus = "revoked"
)

// Table: subsidy_allocations. Invariant: 0 <= UsedAmount <= Amount.
type Allocation struct {
	ID           uint64 `gorm:"primaryKey;column:id" json:"-"`
	AllocationID string `gorm:"size:32;uniqueIndex:ux_subsidy_allocations_allocation_id" json:"allocation_id"`
	SFDID        string `gorm:"column:sfd_id;size:32;index:idx_subsidy_allocations_sfd" json:"sfd_id"`
	// LiveSFD mirrors SFDID while the pool is not revoked and is NULL otherwise,
	// so the unique index allows a single live pool per SFD.
	LiveSFD    *string          `gorm:"column:live_sfd;size:32;uniqueIndex:ux_subsidy_allocations_live_sfd" json:"-"`
	Amount     decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	UsedAmount decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"used_amount"`
	Status     AllocationStatus `gorm:"size:16;not null;default:'active'" json:"status"`
	Version    uint64           `gorm:"not null;default:1" json:"version"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Allocation) TableName() string { return "subsidy_allocations" }

func (a *Allocation) Remaining() decimal.Decimal { return a.Amount.Sub(a.UsedAmount) }

// UsagePercent is a read-only projection; it is never persisted.
func (a *Allocation) UsagePercent() decimal.Decimal {
	if !a.Amount.IsPositive() {
		return decimal.Zero
	}
	return a.UsedAmount.Div(a.Amount).Mul(decimal.NewFromInt(100)).Round(2)
}

// settleStatus keeps Status in line with the balance for non-revoked pools.
func (a *Allocation) settleStatus() {
	if a.Status == AllocationRevoked {
		return
	}
	if a.UsedAmount.GreaterThanOrEqual(a.Amount) {
		a.Status = AllocationDepleted
		return
	}
	a.Status = AllocationActive
}

// Debit moves amount from remaining to used. It reports false, leaving the
// allocation untouched, when the pool is revoked or the balance is short.
func (a *Allocation) Debit(amount decimal.Decimal) bool {
	if a.Status == AllocationRevoked || a.UsedAmount.Add(amount).GreaterThan(a.Amount) {
		return false
	}
	a.UsedAmount = a.UsedAmount.Add(amount)
	a.settleStatus()
	return true
}

func (a *Allocation) Credit(amount decimal.Decimal) {
	a.Amount = a.Amount.Add(amount)
	a.settleStatus()
}

type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestUnderReview RequestStatus = "under_review"
	RequestApproved    RequestStatus = "approved"
	RequestRejected    RequestStatus = "rejected"
)

func (s RequestStatus) Decidable() bool {
	return s == RequestPending || s == RequestUnderReview
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityNormal: 2,
	PriorityLow:    3,
}

func (p Priority) Valid() bool { _, ok := priorityRank[p]; return ok }

// Rank orders review queues, urgent first. It never gates a transition.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityNormal]
}

// Table: subsidy_requests
type Request struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	RequestID        string          `gorm:"size:32;uniqueIndex:ux_subsidy_requests_request_id" json:"request_id"`
	SFDID            string          `gorm:"column:sfd_id;size:32;index:idx_subsidy_requests_sfd" json:"sfd_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Purpose          string          `gorm:"type:text;not null" json:"purpose"`
	Justification    string          `gorm:"type:text" json:"justification"`
	Priority         Priority        `gorm:"size:16;not null;default:'normal'" json:"priority"`
	PriorityRank     int             `gorm:"not null;index:idx_subsidy_requests_queue" json:"-"`
	Region           string          `gorm:"size:64" json:"region"`
	Status           RequestStatus   `gorm:"size:16;not null;default:'pending';index:idx_subsidy_requests_queue" json:"status"`
	DecisionComments string          `gorm:"type:text" json:"decision_comments,omitempty"`
	ReviewedBy       *string         `gorm:"size:32" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time      `json:"reviewed_at,omitempty"`
	AllocationID     *string         `gorm:"size:32" json:"allocation_id,omitempty"`
	SubmittedBy      string          `gorm:"size:32" json:"submitted_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index:idx_subsidy_requests_queue" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Request) TableName() string { return "subsidy_requests" }
