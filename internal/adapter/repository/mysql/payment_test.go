package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	paymentDomain "meref-loan-engine/internal/domain/payment"
	"meref-loan-engine/pkg/id"

	"github.com/shopspring/decimal"
)

func TestPayment_AppendListAndReference(t *testing.T) {
	db := openTestDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	loanID := id.NewID32()
	ref := "RCPT-001"
	day := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	first := &paymentDomain.LoanPayment{
		PaymentID: id.NewID32(), LoanID: loanID, Amount: decimal.NewFromInt(85_837),
		PaymentMethod: paymentDomain.MethodMobileMoney, Reference: &ref,
		PaymentDate: day, Status: paymentDomain.StatusCompleted,
	}
	second := &paymentDomain.LoanPayment{
		PaymentID: id.NewID32(), LoanID: loanID, Amount: decimal.NewFromInt(10_000),
		PaymentMethod: paymentDomain.MethodCash,
		PaymentDate:   day.AddDate(0, 1, 0), Status: paymentDomain.StatusCompleted,
	}
	for _, p := range []*paymentDomain.LoanPayment{second, first} {
		if err := repo.Append(ctx, p); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	list, err := repo.ListByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("ListByLoanID: %v", err)
	}
	if len(list) != 2 || list[0].PaymentID != first.PaymentID {
		t.Fatalf("payments not ordered by date: %+v", list)
	}

	got, err := repo.GetByReference(ctx, loanID, ref)
	if err != nil || got.PaymentID != first.PaymentID {
		t.Fatalf("GetByReference: %+v %v", got, err)
	}
	if _, err := repo.GetByReference(ctx, loanID, "missing"); !errors.Is(err, paymentDomain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	dup := *first
	dup.ID = 0
	dup.PaymentID = id.NewID32()
	if err := repo.Append(ctx, &dup); err == nil {
		t.Fatalf("duplicate (loan, reference) must be rejected")
	}
}
