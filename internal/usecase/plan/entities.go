package plan

import "github.com/shopspring/decimal"

type CreatePlanInput struct {
	SFDID        string
	Name         string
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	MinDuration  int
	MaxDuration  int
	InterestRate decimal.Decimal
	FeeRate      decimal.Decimal
	Requirements []string
	ActorID      string
}

// UpdatePlanInput changes only the fields that are set.
type UpdatePlanInput struct {
	PlanID       string
	Name         *string
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
	MinDuration  *int
	MaxDuration  *int
	InterestRate *decimal.Decimal
	FeeRate      *decimal.Decimal
	Requirements []string
	ActorID      string
}
