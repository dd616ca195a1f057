package subsidy

import (
	"context"
	"errors"
	"testing"
	"time"

	"meref-loan-engine/internal/adapter/repository/mysql"
	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/event"
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/testutil/activitymock"
	"meref-loan-engine/internal/testutil/eventmock"
	"meref-loan-engine/internal/testutil/subsidymock"
	"meref-loan-engine/internal/testutil/testdb"
	"meref-loan-engine/internal/testutil/uowmock"
	"meref-loan-engine/internal/usecase"
	"meref-loan-engine/internal/usecase/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	u      *Usecase
	tx     *mysql.GormUoW
	events *eventmock.Publisher
}

func newSQLite(t *testing.T) fixture {
	t.Helper()
	tx := mysql.NewGormUoW(testdb.Open(t))
	pub := &eventmock.Publisher{}
	u := NewUsecase(tx.Repos().Requests, tx, usecase.Deps{Now: func() time.Time { return now }, Events: pub})
	return fixture{u: u, tx: tx, events: pub}
}

func (f fixture) submit(t *testing.T, sfd, amount string, p subsidy.Priority) *subsidy.Request {
	t.Helper()
	req, err := f.u.Submit(context.Background(), SubmitInput{
		SFDID: sfd, Amount: dec(amount), Purpose: "rural microcredit", Priority: p, ActorID: "sfd-officer",
	})
	require.NoError(t, err)
	return req
}

func TestSubmit_Validation(t *testing.T) {
	u := NewUsecase(&subsidymock.RequestRepo{}, uowmock.New(), usecase.Deps{})
	for _, tc := range []struct {
		name string
		in   SubmitInput
	}{
		{"missing sfd", SubmitInput{Amount: dec("10"), Purpose: "x"}},
		{"zero amount", SubmitInput{SFDID: "sfd-1", Amount: decimal.Zero, Purpose: "x"}},
		{"negative amount", SubmitInput{SFDID: "sfd-1", Amount: dec("-5"), Purpose: "x"}},
		{"blank purpose", SubmitInput{SFDID: "sfd-1", Amount: dec("10"), Purpose: "  "}},
		{"amount finer than minor units", SubmitInput{SFDID: "sfd-1", Amount: dec("10.5"), Purpose: "x"}},
		{"unknown priority", SubmitInput{SFDID: "sfd-1", Amount: dec("10"), Purpose: "x", Priority: "critical"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := u.Submit(context.Background(), tc.in)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestSubmit_DefaultsAndAudit(t *testing.T) {
	rec := &activitymock.Recorder{}
	var created *subsidy.Request
	repos := uow.Repos{
		Requests: &subsidymock.RequestRepo{CreateFn: func(_ context.Context, r *subsidy.Request) error {
			created = r
			return nil
		}},
		Activities: rec,
	}
	u := NewUsecase(repos.Requests, uowmock.Passthrough(repos), usecase.Deps{})

	req, err := u.Submit(context.Background(), SubmitInput{SFDID: "sfd-1", Amount: dec("25000"), Purpose: " seed fund "})
	require.NoError(t, err)
	assert.Same(t, created, req)
	assert.Equal(t, subsidy.PriorityNormal, req.Priority)
	assert.Equal(t, subsidy.PriorityNormal.Rank(), req.PriorityRank)
	assert.Equal(t, subsidy.RequestPending, req.Status)
	assert.Equal(t, "seed fund", req.Purpose)
	assert.Len(t, req.RequestID, 32)
	assert.Equal(t, []activity.Type{activity.RequestCreated}, rec.Types())
}

func TestDecide_ApproveCreditsExactlyTheRequestedAmount(t *testing.T) {
	ctx := context.Background()
	f := newSQLite(t)
	pools := ledger.NewUsecase(f.tx.Repos().Allocations, f.tx, usecase.Deps{Now: func() time.Time { return now }})

	_, err := pools.Credit(ctx, ledger.Mutation{SFDID: "sfd-1", Amount: dec("40000"), Reference: "seed"})
	require.NoError(t, err)
	before, err := pools.Get(ctx, "sfd-1")
	require.NoError(t, err)

	req := f.submit(t, "sfd-1", "60000", subsidy.PriorityHigh)
	res, err := f.u.Decide(ctx, DecideInput{RequestID: req.RequestID, ActorID: "meref-admin", Status: subsidy.RequestApproved})
	require.NoError(t, err)

	require.NotNil(t, res.Allocation)
	assert.Equal(t, before.AllocationID, res.Allocation.AllocationID)
	assert.Equal(t, "100000", res.Allocation.Amount.String())
	require.NotNil(t, res.Request.AllocationID)
	assert.Equal(t, before.AllocationID, *res.Request.AllocationID)
	assert.Equal(t, "meref-admin", *res.Request.ReviewedBy)
	assert.Equal(t, now, *res.Request.ReviewedAt)

	after, err := pools.Get(ctx, "sfd-1")
	require.NoError(t, err)
	assert.True(t, after.Amount.Sub(before.Amount).Equal(dec("60000")))
	assert.True(t, after.UsedAmount.Equal(before.UsedAmount))

	entries, err := f.tx.Repos().Activities.List(ctx, activity.Query{SubjectID: req.RequestID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, activity.RequestApproved, entries[1].ActivityType)
	assert.Equal(t, before.AllocationID, entries[1].Details["allocation_id"])

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, event.RequestDecided, evs[0].Kind)
	assert.Equal(t, "approved", evs[0].Status)
}

func TestDecide_ApproveCreatesPoolWhenMissing(t *testing.T) {
	ctx := context.Background()
	f := newSQLite(t)
	req := f.submit(t, "sfd-new", "15000", "")

	res, err := f.u.Decide(ctx, DecideInput{RequestID: req.RequestID, ActorID: "meref-admin", Status: subsidy.RequestApproved})
	require.NoError(t, err)
	assert.Equal(t, "15000", res.Allocation.Remaining.String())
	assert.Equal(t, uint64(1), res.Allocation.Version)
}

func TestDecide_RejectRequiresComments(t *testing.T) {
	f := newSQLite(t)
	req := f.submit(t, "sfd-1", "1000", subsidy.PriorityLow)

	_, err := f.u.Decide(context.Background(), DecideInput{RequestID: req.RequestID, Status: subsidy.RequestRejected, Comments: "   "})
	assert.True(t, errs.IsValidation(err))

	res, err := f.u.Decide(context.Background(), DecideInput{
		RequestID: req.RequestID, ActorID: "meref-admin", Status: subsidy.RequestRejected, Comments: "budget closed",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Allocation)
	assert.Nil(t, res.Request.AllocationID)
	assert.Equal(t, "budget closed", res.Request.DecisionComments)

	_, err = f.tx.Repos().Allocations.GetLiveBySFD(context.Background(), "sfd-1")
	assert.ErrorIs(t, err, subsidy.ErrAllocationNotFound, "rejection never touches the ledger")
}

func TestDecide_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newSQLite(t)
	req := f.submit(t, "sfd-1", "5000", "")

	_, err := f.u.Decide(ctx, DecideInput{RequestID: req.RequestID, ActorID: "a", Status: subsidy.RequestApproved})
	require.NoError(t, err)

	_, err = f.u.Decide(ctx, DecideInput{RequestID: req.RequestID, ActorID: "a", Status: subsidy.RequestApproved})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = f.u.Decide(ctx, DecideInput{RequestID: req.RequestID, ActorID: "a", Status: subsidy.RequestRejected, Comments: "late"})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	pool, err := f.tx.Repos().Allocations.GetLiveBySFD(ctx, "sfd-1")
	require.NoError(t, err)
	assert.Equal(t, "5000", pool.Amount.String(), "a second decision must not credit again")
}

func TestDecide_InvalidStatus(t *testing.T) {
	u := NewUsecase(&subsidymock.RequestRepo{}, uowmock.New(), usecase.Deps{})
	for _, s := range []subsidy.RequestStatus{subsidy.RequestPending, subsidy.RequestUnderReview, "cancelled"} {
		_, err := u.Decide(context.Background(), DecideInput{RequestID: "r", Status: s})
		assert.True(t, errs.IsValidation(err), "status %q", s)
	}
}

func TestMarkUnderReview(t *testing.T) {
	ctx := context.Background()
	f := newSQLite(t)
	req := f.submit(t, "sfd-1", "7000", "")

	got, err := f.u.MarkUnderReview(ctx, req.RequestID, "meref-reviewer")
	require.NoError(t, err)
	assert.Equal(t, subsidy.RequestUnderReview, got.Status)

	_, err = f.u.MarkUnderReview(ctx, req.RequestID, "meref-reviewer")
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	// still decidable from review
	_, err = f.u.Decide(ctx, DecideInput{RequestID: req.RequestID, ActorID: "a", Status: subsidy.RequestApproved})
	require.NoError(t, err)

	_, err = f.u.MarkUnderReview(ctx, "missing", "x")
	assert.ErrorIs(t, err, subsidy.ErrRequestNotFound)
}

func TestDecide_RetriesOnPoolConflict(t *testing.T) {
	req := &subsidy.Request{RequestID: "r1", SFDID: "sfd-1", Amount: dec("100"), Status: subsidy.RequestPending}
	pool := &subsidy.Allocation{AllocationID: "a1", SFDID: "sfd-1", Amount: dec("50"), Status: subsidy.AllocationActive, Version: 4}
	conflicts := 0
	repos := uow.Repos{
		Requests: &subsidymock.RequestRepo{GetByRequestIDFn: func(context.Context, string) (*subsidy.Request, error) {
			cp := *req
			return &cp, nil
		}},
		Allocations: &subsidymock.AllocationRepo{
			GetLiveBySFDFn: func(context.Context, string) (*subsidy.Allocation, error) {
				cp := *pool
				return &cp, nil
			},
			UpdateBalanceFn: func(_ context.Context, a *subsidy.Allocation, v uint64) error {
				if conflicts < 2 {
					conflicts++
					return errs.ErrVersionConflict
				}
				a.Version = v + 1
				return nil
			},
		},
		Activities: &activitymock.Recorder{},
	}
	tx := uowmock.Passthrough(repos)
	u := NewUsecase(repos.Requests, tx, usecase.Deps{})

	res, err := u.Decide(context.Background(), DecideInput{RequestID: "r1", ActorID: "a", Status: subsidy.RequestApproved})
	require.NoError(t, err)
	assert.Equal(t, 3, tx.Calls)
	assert.Equal(t, "150", res.Allocation.Amount.String())
	assert.Equal(t, uint64(5), res.Allocation.Version)
}

func TestDecide_RetriesExhausted(t *testing.T) {
	repos := uow.Repos{
		Requests: &subsidymock.RequestRepo{GetByRequestIDFn: func(context.Context, string) (*subsidy.Request, error) {
			return &subsidy.Request{RequestID: "r1", SFDID: "sfd-1", Amount: dec("1"), Status: subsidy.RequestPending}, nil
		}},
		Allocations: &subsidymock.AllocationRepo{
			GetLiveBySFDFn: func(context.Context, string) (*subsidy.Allocation, error) {
				return &subsidy.Allocation{AllocationID: "a1", SFDID: "sfd-1", Amount: dec("1"), Version: 1}, nil
			},
			UpdateBalanceFn: func(context.Context, *subsidy.Allocation, uint64) error { return errs.ErrVersionConflict },
		},
		Activities: &activitymock.Recorder{},
	}
	pub := &eventmock.Publisher{}
	tx := uowmock.Passthrough(repos)
	u := NewUsecase(repos.Requests, tx, usecase.Deps{Events: pub})

	_, err := u.Decide(context.Background(), DecideInput{RequestID: "r1", ActorID: "a", Status: subsidy.RequestApproved})
	require.ErrorIs(t, err, errs.ErrConcurrentUpdate)
	assert.True(t, errs.IsRetryable(err))
	assert.Equal(t, 5, tx.Calls)
	assert.Empty(t, pub.Events())
}

func TestDecide_AuditFailureAbortsDecision(t *testing.T) {
	repos := uow.Repos{
		Requests: &subsidymock.RequestRepo{
			GetByRequestIDFn: func(context.Context, string) (*subsidy.Request, error) {
				return &subsidy.Request{RequestID: "r1", SFDID: "sfd-1", Amount: dec("1"), Status: subsidy.RequestPending}, nil
			},
		},
		Activities: &activitymock.Recorder{AppendErr: errors.New("disk full")},
	}
	pub := &eventmock.Publisher{}
	tx := uowmock.Passthrough(repos)
	u := NewUsecase(repos.Requests, tx, usecase.Deps{Events: pub})

	_, err := u.Decide(context.Background(), DecideInput{RequestID: "r1", ActorID: "a", Status: subsidy.RequestRejected, Comments: "no"})
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, tx.Calls, "only version conflicts are retried")
	assert.Empty(t, pub.Events())
}

func TestQueue_PriorityThenAge(t *testing.T) {
	ctx := context.Background()
	f := newSQLite(t)
	low := f.submit(t, "sfd-1", "1", subsidy.PriorityLow)
	urgent := f.submit(t, "sfd-1", "2", subsidy.PriorityUrgent)
	normal := f.submit(t, "sfd-1", "3", "")
	other := f.submit(t, "sfd-2", "4", subsidy.PriorityUrgent)

	got, err := f.u.Queue(ctx, subsidy.RequestPending, "sfd-1", 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.RequestID)
	}
	assert.Equal(t, []string{urgent.RequestID, normal.RequestID, low.RequestID}, ids)

	all, err := f.u.Queue(ctx, "", "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, urgent.RequestID, all[0].RequestID)
	assert.Equal(t, other.RequestID, all[1].RequestID)

	fetched, err := f.u.Get(ctx, normal.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "3", fetched.Amount.String())
}
