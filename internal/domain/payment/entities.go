package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("payment not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodMobileMoney, MethodBankTransfer, MethodCheque:
		return true
	}
	return false
}

// Table: loan_payments. Rows are append-only; a completed payment is never updated.
type LoanPayment struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	PaymentID     string          `gorm:"size:32;uniqueIndex:ux_loan_payments_payment_id" json:"payment_id"`
	LoanID        string          `gorm:"size:32;not null;index:idx_loan_payments_loan;uniqueIndex:ux_loan_payments_loan_reference" json:"loan_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaymentMethod Method          `gorm:"size:32;not null" json:"payment_method"`
	// Reference is the caller's receipt/transaction reference; nil when absent.
	Reference   *string   `gorm:"size:64;uniqueIndex:ux_loan_payments_loan_reference" json:"reference,omitempty"`
	PaymentDate time.Time `gorm:"not null" json:"payment_date"`
	Status      Status    `gorm:"size:16;not null" json:"status"`
	RecordedBy  string    `gorm:"size:32" json:"recorded_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LoanPayment) TableName() string { return "loan_payments" }
