package activity

import (
	"time"

	"meref-loan-engine/pkg/id"

	"gorm.io/datatypes"
)

type SubjectType string

const (
	SubjectLoan       SubjectType = "loan"
	SubjectPlan       SubjectType = "loan_plan"
	SubjectRequest    SubjectType = "subsidy_request"
	SubjectAllocation SubjectType = "subsidy_allocation"
)

type Type string

const (
	LoanCreated   Type = "loan_created"
	LoanApproved  Type = "loan_approved"
	LoanRejected  Type = "loan_rejected"
	LoanDisbursed Type = "loan_disbursed"
	LoanDefaulted Type = "loan_defaulted"
	LoanCompleted Type = "loan_completed"

	PaymentRecorded Type = "payment_recorded"

	PlanCreated     Type = "plan_created"
	PlanUpdated     Type = "plan_updated"
	PlanDeactivated Type = "plan_deactivated"

	RequestCreated     Type = "request_created"
	RequestUnderReview Type = "request_under_review"
	RequestApproved    Type = "request_approved"
	RequestRejected    Type = "request_rejected"

	AllocationCredited Type = "allocation_credited"
	AllocationReserved Type = "allocation_reserved"
)

// Table: activity_log. Append-only; entries are written in the same
// transaction as the change they document and never updated or deleted.
type Entry struct {
	ID           uint64            `gorm:"primaryKey;column:id" json:"-"`
	EntryID      string            `gorm:"size:32;uniqueIndex:ux_activity_log_entry_id" json:"id"`
	SubjectType  SubjectType       `gorm:"size:32;not null" json:"subject_type"`
	SubjectID    string            `gorm:"size:32;not null;index:idx_activity_log_subject_time" json:"subject_id"`
	ActivityType Type              `gorm:"size:48;not null" json:"activity_type"`
	Description  string            `gorm:"type:text" json:"description"`
	PerformedBy  string            `gorm:"size:32" json:"performed_by"`
	PerformedAt  time.Time         `gorm:"not null;index:idx_activity_log_subject_time" json:"performed_at"`
	Details      datatypes.JSONMap `gorm:"type:json" json:"details,omitempty"`
}

func (Entry) TableName() string { return "activity_log" }

// NewEntry builds an entry with a fresh id; callers append it through the
// transaction that performs the change it documents.
func NewEntry(subject SubjectType, subjectID string, t Type, actor string, at time.Time, description string, details map[string]any) *Entry {
	return &Entry{
		EntryID:      id.NewID32(),
		SubjectType:  subject,
		SubjectID:    subjectID,
		ActivityType: t,
		Description:  description,
		PerformedBy:  actor,
		PerformedAt:  at,
		Details:      details,
	}
}
