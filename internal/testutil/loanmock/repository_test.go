package loanmock

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "meref-loan-engine/internal/domain/loan"
)

func TestRepo_Create(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{LoanID: "LN-1"}

	called := false
	wantErr := errors.New("boom")
	m := &Repo{
		CreateFn: func(gotCtx context.Context, got *domain.Loan) error {
			called = true
			if gotCtx != ctx {
				t.Fatalf("ctx mismatch")
			}
			if got != l {
				t.Fatalf("arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Create(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Create: want %v, got %v", wantErr, err)
	}
	if !called {
		t.Fatalf("CreateFn not called")
	}

	// nil func: no-op
	if err := (&Repo{}).Create(ctx, l); err != nil {
		t.Fatalf("Create default: want nil, got %v", err)
	}
}

func TestRepo_Reads_DefaultNotFound(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}
	if _, err := m.GetByLoanID(ctx, "LN-X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanID default: got %v", err)
	}
	if _, err := m.GetByLoanIDForUpdate(ctx, "LN-X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByLoanIDForUpdate default: got %v", err)
	}
	if got, err := m.List(ctx, domain.Filter{}); err != nil || got != nil {
		t.Fatalf("List default: got %v, %v", got, err)
	}
	if got, err := m.ListOverdue(ctx, time.Now(), 10); err != nil || got != nil {
		t.Fatalf("ListOverdue default: got %v, %v", got, err)
	}
}

func TestRepo_ForUpdate_FallsBackToGet(t *testing.T) {
	want := &domain.Loan{LoanID: "LN-2"}
	m := &Repo{
		GetByLoanIDFn: func(_ context.Context, id string) (*domain.Loan, error) {
			if id != "LN-2" {
				t.Fatalf("loanID mismatch: %s", id)
			}
			return want, nil
		},
	}
	got, err := m.GetByLoanIDForUpdate(context.Background(), "LN-2")
	if err != nil || got != want {
		t.Fatalf("GetByLoanIDForUpdate: got %+v, %v", got, err)
	}
}

func TestRepo_Save_Records(t *testing.T) {
	m := &Repo{}
	l := &domain.Loan{LoanID: "LN-3", Status: domain.StatusApproved}
	if err := m.Save(context.Background(), l); err != nil {
		t.Fatalf("Save: %v", err)
	}
	l.Status = domain.StatusActive
	if err := m.Save(context.Background(), l); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(m.Saved) != 2 || m.Saved[0].Status != domain.StatusApproved || m.Saved[1].Status != domain.StatusActive {
		t.Fatalf("Saved snapshots wrong: %+v", m.Saved)
	}
}
