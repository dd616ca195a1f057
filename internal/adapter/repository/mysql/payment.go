package mysql

import (
	"context"

	paymentDomain "meref-loan-engine/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Append(ctx context.Context, p *paymentDomain.LoanPayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByReference(ctx context.Context, loanID, reference string) (*paymentDomain.LoanPayment, error) {
	var out paymentDomain.LoanPayment
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND reference = ?", loanID, reference).
		First(&out).Error
	if err != nil {
		return nil, notFound(err, paymentDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *PaymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]paymentDomain.LoanPayment, error) {
	var out []paymentDomain.LoanPayment
	return out, r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("payment_date ASC, id ASC").
		Find(&out).Error
}
