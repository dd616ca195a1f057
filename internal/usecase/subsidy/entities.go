package subsidy

import (
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/usecase/ledger"

	"github.com/shopspring/decimal"
)

type SubmitInput struct {
	SFDID         string
	Amount        decimal.Decimal
	Purpose       string
	Justification string
	// Priority defaults to normal.
	Priority subsidy.Priority
	Region   string
	ActorID  string
}

type DecideInput struct {
	RequestID string
	ActorID   string
	Status    subsidy.RequestStatus
	Comments  string
}

type DecisionResult struct {
	Request    *subsidy.Request      `json:"request"`
	Allocation *ledger.AllocationDTO `json:"allocation,omitempty"`
}
