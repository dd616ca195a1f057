package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"meref-loan-engine/internal/adapter/repository/mysql"
	"meref-loan-engine/internal/config"
	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/event"
	domain "meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/plan"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/testutil/activitymock"
	"meref-loan-engine/internal/testutil/eventmock"
	"meref-loan-engine/internal/testutil/loanmock"
	"meref-loan-engine/internal/testutil/testdb"
	"meref-loan-engine/internal/testutil/uowmock"
	"meref-loan-engine/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func ptr[T any](v T) *T            { return &v }

func TestUsecase_Approve(t *testing.T) {
	pendingLoan := func() *domain.Loan {
		return &domain.Loan{ID: 7, LoanID: "LN-7", SFDID: "sfd-1", Amount: dec("1000"), Status: domain.StatusPending}
	}

	tests := []struct {
		name       string
		load       func() *domain.Loan
		saveErr    error
		wantErr    error
		wantStatus domain.Status
		wantEvents int
	}{
		{name: "pending -> approved", load: pendingLoan, wantStatus: domain.StatusApproved, wantEvents: 1},
		{
			name:    "already approved",
			load:    func() *domain.Loan { l := pendingLoan(); l.Status = domain.StatusApproved; return l },
			wantErr: errs.ErrInvalidTransition,
		},
		{
			name:    "rejected is terminal",
			load:    func() *domain.Loan { l := pendingLoan(); l.Status = domain.StatusRejected; return l },
			wantErr: errs.ErrInvalidTransition,
		},
		{name: "save fails", load: pendingLoan, saveErr: errors.New("db down"), wantErr: errors.New("db down")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loans := &loanmock.Repo{
				GetByLoanIDForUpdateFn: func(context.Context, string) (*domain.Loan, error) { return tc.load(), nil },
				SaveFn:                 func(context.Context, *domain.Loan) error { return tc.saveErr },
			}
			acts := &activitymock.Recorder{}
			pub := &eventmock.Publisher{}
			uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans, Activities: acts}), usecase.Deps{
				Now:    func() time.Time { return t0 },
				Events: pub,
			})

			dto, err := uc.Approve(context.Background(), "LN-7", "officer-1")
			if tc.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tc.wantErr, errs.ErrInvalidTransition) {
					assert.ErrorIs(t, err, errs.ErrInvalidTransition)
				}
				assert.Empty(t, pub.Events(), "no notification for a failed transition")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, dto.Status)
			require.NotNil(t, dto.ApprovedBy)
			assert.Equal(t, "officer-1", *dto.ApprovedBy)
			assert.Equal(t, t0, *dto.ApprovedAt)
			assert.Equal(t, []activity.Type{activity.LoanApproved}, acts.Types())

			evs := pub.Events()
			require.Len(t, evs, tc.wantEvents)
			assert.Equal(t, event.LoanStatusChanged, evs[0].Kind)
			assert.Equal(t, "approved", evs[0].Status)
		})
	}
}

func TestUsecase_Reject_RequiresReason(t *testing.T) {
	tx := uowmock.New()
	uc := NewUsecase(&loanmock.Repo{}, tx, usecase.Deps{})
	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := uc.Reject(context.Background(), "LN-1", "officer", reason)
		assert.True(t, errs.IsValidation(err), "reason %q", reason)
	}
	assert.Zero(t, tx.Calls)
}

func TestUsecase_Get_NotFound(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, uowmock.New(), usecase.Deps{})
	_, err := uc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidateCreate(t *testing.T) {
	base := CreateLoanInput{ClientID: "c1", SFDID: "sfd-1", Amount: dec("1000"), DurationMonths: 6, InterestRate: ptr(dec("5"))}
	tests := []struct {
		name  string
		mut   func(*CreateLoanInput)
		field string
	}{
		{"client required", func(in *CreateLoanInput) { in.ClientID = "" }, "client_id"},
		{"sfd required", func(in *CreateLoanInput) { in.SFDID = " " }, "sfd_id"},
		{"amount positive", func(in *CreateLoanInput) { in.Amount = decimal.Zero }, "amount"},
		{"duration >= 1", func(in *CreateLoanInput) { in.DurationMonths = 0 }, "duration_months"},
		{"rate >= 0", func(in *CreateLoanInput) { in.InterestRate = ptr(dec("-1")) }, "interest_rate"},
		{"subsidy above amount", func(in *CreateLoanInput) { in.SubsidyAmount = ptr(dec("1001")) }, "subsidy_amount"},
		{"subsidy rate above 100", func(in *CreateLoanInput) { in.SubsidyRate = ptr(dec("100.01")) }, "subsidy_rate"},
		{"amount finer than minor units", func(in *CreateLoanInput) { in.Amount = dec("1000.49") }, "amount"},
		{"subsidy finer than minor units", func(in *CreateLoanInput) { in.SubsidyAmount = ptr(dec("10.5")) }, "subsidy_amount"},
	}
	require.NoError(t, validateCreate(base, usecase.Deps{}.WithDefaults()))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mut(&in)
			var ve *errs.ValidationError
			require.True(t, errors.As(validateCreate(in, usecase.Deps{}.WithDefaults()), &ve))
			assert.Equal(t, tc.field, ve.Violations[0].Field)
		})
	}
}

// ---- sqlite-backed flows ----

type env struct {
	uc  *Usecase
	tx  *mysql.GormUoW
	now *time.Time
	pub *eventmock.Publisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := t0
	tx := mysql.NewGormUoW(testdb.Open(t))
	pub := &eventmock.Publisher{}
	uc := NewUsecase(tx.Repos().Loans, tx, usecase.Deps{
		Now:    func() time.Time { return clock },
		Events: pub,
	})
	return &env{uc: uc, tx: tx, now: &clock, pub: pub}
}

func (e *env) seedPlan(t *testing.T, active bool) *plan.LoanPlan {
	t.Helper()
	p := &plan.LoanPlan{
		PlanID: "PL-1", SFDID: "sfd-1", Name: "Standard",
		MinAmount: dec("100000"), MaxAmount: dec("2000000"), MinDuration: 6, MaxDuration: 24,
		InterestRate: dec("5.5"), FeeRate: dec("2"), IsActive: active, Version: 3,
	}
	require.NoError(t, e.tx.Repos().Plans.Create(context.Background(), p))
	return p
}

func planInput() CreateLoanInput {
	return CreateLoanInput{
		ClientID: "client-1", SFDID: "sfd-1", PlanID: ptr("PL-1"),
		Amount: dec("1000000"), DurationMonths: 12, Purpose: "millet stock", ActorID: "agent-1",
	}
}

func TestCreate_WithPlan_DerivesTerms(t *testing.T) {
	e := newEnv(t)
	e.seedPlan(t, true)

	in := planInput()
	in.SubsidyRate = ptr(dec("50"))
	dto, err := e.uc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, dto.Status)
	assert.Equal(t, "5.5", dto.InterestRate.String())
	assert.Equal(t, "85837", dto.MonthlyPayment.String())
	assert.Equal(t, "1030044", dto.TotalRepayment.String())
	assert.Equal(t, "20000", dto.FeeAmount.String())
	assert.Equal(t, "15022", dto.SubsidyAmount.String(), "half of 30044 total interest")
	assert.Equal(t, uint32(3), *dto.PlanVersion)
	assert.Equal(t, "1030044", dto.Outstanding.String())

	entries, err := e.tx.Repos().Activities.List(context.Background(), activity.Query{SubjectID: dto.LoanID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, activity.LoanCreated, entries[0].ActivityType)
}

func TestCreate_RejectsPrincipalTooSmallToRepay(t *testing.T) {
	e := newEnv(t)
	in := CreateLoanInput{ClientID: "client-1", SFDID: "sfd-1", Amount: dec("1"), DurationMonths: 3, InterestRate: ptr(decimal.Zero)}

	_, err := e.uc.Create(context.Background(), in)
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve), "unexpected error %v", err)
	assert.Equal(t, "amount", ve.Violations[0].Field)

	all, err := e.uc.List(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_HonoursPolicyMinorUnits(t *testing.T) {
	tx := mysql.NewGormUoW(testdb.Open(t))
	policy := config.DefaultPolicy
	policy.MinorUnits = 2
	uc := NewUsecase(tx.Repos().Loans, tx, usecase.Deps{Policy: policy, Now: func() time.Time { return t0 }})

	dto, err := uc.Create(context.Background(), CreateLoanInput{
		ClientID: "client-1", SFDID: "sfd-1", Amount: dec("1000.49"), DurationMonths: 3, InterestRate: ptr(decimal.Zero),
	})
	require.NoError(t, err)
	assert.Equal(t, "333.5", dto.MonthlyPayment.String())

	_, err = uc.Create(context.Background(), CreateLoanInput{
		ClientID: "client-1", SFDID: "sfd-1", Amount: dec("1000.495"), DurationMonths: 3, InterestRate: ptr(decimal.Zero),
	})
	assert.True(t, errs.IsValidation(err), "unexpected error %v", err)
}

func TestCreate_PlanChecks(t *testing.T) {
	tests := []struct {
		name    string
		active  bool
		mut     func(*CreateLoanInput)
		wantErr func(error) bool
	}{
		{"inactive plan", false, func(*CreateLoanInput) {}, func(err error) bool { return errors.Is(err, errs.ErrPlanInactive) }},
		{"amount above max", true, func(in *CreateLoanInput) { in.Amount = dec("2000001") }, errs.IsValidation},
		{"duration below min", true, func(in *CreateLoanInput) { in.DurationMonths = 3 }, errs.IsValidation},
		{"rate mismatch", true, func(in *CreateLoanInput) { in.InterestRate = ptr(dec("4")) }, errs.IsValidation},
		{"unknown plan", true, func(in *CreateLoanInput) { in.PlanID = ptr("PL-404") }, errs.IsValidation},
		{"other SFD", true, func(in *CreateLoanInput) { in.SFDID = "sfd-2" }, errs.IsValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.seedPlan(t, tc.active)
			in := planInput()
			tc.mut(&in)

			_, err := e.uc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, tc.wantErr(err), "unexpected error %v", err)

			all, err := e.uc.List(context.Background(), domain.Filter{})
			require.NoError(t, err)
			assert.Empty(t, all, "nothing persisted")
		})
	}
}

func TestCreate_WithoutPlanNeedsRate(t *testing.T) {
	e := newEnv(t)
	in := planInput()
	in.PlanID = nil
	_, err := e.uc.Create(context.Background(), in)
	require.True(t, errs.IsValidation(err))

	in.InterestRate = ptr(dec("0"))
	in.DurationMonths = 10
	in.SubsidyAmount = ptr(dec("50000"))
	dto, err := e.uc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, dto.PlanID)
	assert.True(t, dto.FeeAmount.IsZero())
	assert.Equal(t, "50000", dto.SubsidyAmount.String())
	assert.True(t, dto.TotalRepayment.Equal(dto.Amount))
}

func (e *env) activeLoan(t *testing.T, next time.Time) *domain.Loan {
	t.Helper()
	l := &domain.Loan{
		LoanID: "LN-ACTIVE", ClientID: "c", SFDID: "sfd-1",
		Amount: dec("1200"), DurationMonths: 12, InterestRate: decimal.Zero,
		MonthlyPayment: dec("100"), TotalRepayment: dec("1200"), AmountPaid: decimal.Zero,
		Status: domain.StatusActive, StatusUpdatedAt: t0, NextPaymentDate: &next,
	}
	require.NoError(t, e.tx.Repos().Loans.Create(context.Background(), l))
	return l
}

func TestRecordDefault_GracePeriod(t *testing.T) {
	e := newEnv(t)
	due := t0
	e.activeLoan(t, due)

	*e.now = due.Add(30 * 24 * time.Hour)
	_, err := e.uc.RecordDefault(context.Background(), "LN-ACTIVE", "system")
	require.ErrorIs(t, err, errs.ErrInvalidTransition, "exactly at the grace boundary is not overdue")

	*e.now = due.Add(30*24*time.Hour + time.Second)
	dto, err := e.uc.RecordDefault(context.Background(), "LN-ACTIVE", "system")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDefaulted, dto.Status)
	require.NotNil(t, dto.DefaultedAt)

	_, err = e.uc.RecordDefault(context.Background(), "LN-ACTIVE", "system")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition, "defaulted is terminal")
}

func TestSweepDefaults(t *testing.T) {
	e := newEnv(t)
	e.activeLoan(t, t0)
	recent := &domain.Loan{
		LoanID: "LN-RECENT", ClientID: "c", SFDID: "sfd-1", Amount: dec("10"), DurationMonths: 1,
		MonthlyPayment: dec("10"), TotalRepayment: dec("10"), Status: domain.StatusActive,
		StatusUpdatedAt: t0, NextPaymentDate: ptr(t0.AddDate(0, 1, 0)),
	}
	require.NoError(t, e.tx.Repos().Loans.Create(context.Background(), recent))

	*e.now = t0.AddDate(0, 0, 45)
	ids, err := e.uc.SweepDefaults(context.Background(), "cron")
	require.NoError(t, err)
	assert.Equal(t, []string{"LN-ACTIVE"}, ids)

	got, err := e.uc.Get(context.Background(), "LN-RECENT")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestComplete_RequiresFullRepayment(t *testing.T) {
	e := newEnv(t)
	l := e.activeLoan(t, t0)

	_, err := e.uc.Complete(context.Background(), l.LoanID, "officer")
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	l.AmountPaid = dec("1200")
	require.NoError(t, e.tx.Repos().Loans.Save(context.Background(), l))

	dto, err := e.uc.Complete(context.Background(), l.LoanID, "officer")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, dto.Status)
	assert.True(t, dto.Outstanding.IsZero())
}

func TestLifecycle_PendingToRejected(t *testing.T) {
	e := newEnv(t)
	e.seedPlan(t, true)
	dto, err := e.uc.Create(context.Background(), planInput())
	require.NoError(t, err)

	rejected, err := e.uc.Reject(context.Background(), dto.LoanID, "officer", "  insufficient collateral ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Equal(t, "insufficient collateral", rejected.RejectionReason)

	_, err = e.uc.Approve(context.Background(), dto.LoanID, "officer")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	entries, err := e.tx.Repos().Activities.List(context.Background(), activity.Query{SubjectID: dto.LoanID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "insufficient collateral", entries[1].Details["note"])

	evs := e.pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, "rejected", evs[0].Status)
}

func TestSchedule(t *testing.T) {
	e := newEnv(t)
	e.seedPlan(t, true)
	dto, err := e.uc.Create(context.Background(), planInput())
	require.NoError(t, err)

	rows, err := e.uc.Schedule(context.Background(), dto.LoanID)
	require.NoError(t, err)
	assert.Len(t, rows, 12)
	assert.Equal(t, "4583", rows[0].Interest.String())
}
