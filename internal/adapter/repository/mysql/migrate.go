package mysql

import (
	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/payment"
	"meref-loan-engine/internal/domain/plan"
	"meref-loan-engine/internal/domain/subsidy"

	"gorm.io/gorm"
)

// Models lists every table owned by the engine, in dependency order.
func Models() []any {
	return []any{
		&plan.LoanPlan{},
		&loan.Loan{},
		&payment.LoanPayment{},
		&subsidy.Allocation{},
		&subsidy.Request{},
		&activity.Entry{},
	}
}

func AutoMigrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }
