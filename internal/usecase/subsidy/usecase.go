package subsidy

import (
	"context"
	"fmt"
	"strings"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/event"
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/usecase"
	"meref-loan-engine/internal/usecase/ledger"
	"meref-loan-engine/pkg/id"

	"go.uber.org/zap"
)

type Usecase struct {
	requests subsidy.RequestRepository
	uow      uow.UnitOfWork
	deps     usecase.Deps
}

func NewUsecase(requests subsidy.RequestRepository, tx uow.UnitOfWork, deps usecase.Deps) *Usecase {
	return &Usecase{requests: requests, uow: tx, deps: deps.WithDefaults()}
}

func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*subsidy.Request, error) {
	if in.Priority == "" {
		in.Priority = subsidy.PriorityNormal
	}
	v := &errs.ValidationError{}
	if strings.TrimSpace(in.SFDID) == "" {
		v.Add("sfd_id", "is required")
	}
	if !in.Amount.IsPositive() {
		v.Add("amount", "must be > 0")
	} else if !u.deps.Precise(in.Amount) {
		v.Add("amount", u.deps.PrecisionMessage())
	}
	if strings.TrimSpace(in.Purpose) == "" {
		v.Add("purpose", "is required")
	}
	if !in.Priority.Valid() {
		v.Add("priority", "must be one of low, normal, high, urgent")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	req := &subsidy.Request{
		RequestID:     id.NewID32(),
		SFDID:         in.SFDID,
		Amount:        in.Amount,
		Purpose:       strings.TrimSpace(in.Purpose),
		Justification: in.Justification,
		Priority:      in.Priority,
		PriorityRank:  in.Priority.Rank(),
		Region:        in.Region,
		Status:        subsidy.RequestPending,
		SubmittedBy:   in.ActorID,
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Requests.Create(ctx, req); err != nil {
			return err
		}
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectRequest, req.RequestID, activity.RequestCreated, in.ActorID, u.deps.Now(),
			fmt.Sprintf("subsidy of %s requested", req.Amount),
			map[string]any{"sfd_id": req.SFDID, "priority": string(req.Priority)},
		))
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (u *Usecase) MarkUnderReview(ctx context.Context, requestID, actorID string) (*subsidy.Request, error) {
	var out *subsidy.Request
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != subsidy.RequestPending {
			return fmt.Errorf("%w: request is %s", errs.ErrInvalidTransition, req.Status)
		}
		req.Status = subsidy.RequestUnderReview
		if err := r.Requests.Save(ctx, req); err != nil {
			return err
		}
		out = req
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectRequest, req.RequestID, activity.RequestUnderReview, actorID, u.deps.Now(),
			"subsidy request taken into review", nil,
		))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decide approves or rejects a request. Approval credits the SFD pool in the
// same transaction, so the decision and the credit commit together or not at all.
func (u *Usecase) Decide(ctx context.Context, in DecideInput) (*DecisionResult, error) {
	switch in.Status {
	case subsidy.RequestApproved:
	case subsidy.RequestRejected:
		if strings.TrimSpace(in.Comments) == "" {
			return nil, errs.Invalid("decision_comments", "are required to reject a request")
		}
	default:
		return nil, errs.Invalid("status", "must be approved or rejected")
	}

	var res DecisionResult
	err := ledger.Retry(ctx, u.deps.Policy.MaxRetries, func(attempt int) {
		u.deps.Metrics.TxRetry("decide")
		u.deps.Log.Info("decide: allocation version conflict, retrying",
			zap.String("request_id", in.RequestID), zap.Int("attempt", attempt))
	}, func() error {
		res = DecisionResult{}
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			req, err := r.Requests.GetByRequestIDForUpdate(ctx, in.RequestID)
			if err != nil {
				return err
			}
			if !req.Status.Decidable() {
				return fmt.Errorf("%w: request is already %s", errs.ErrInvalidTransition, req.Status)
			}

			now := u.deps.Now()
			details := map[string]any{"amount": req.Amount.String()}
			typ := activity.RequestRejected
			if in.Status == subsidy.RequestApproved {
				a, err := ledger.Credit(ctx, r, ledger.Mutation{
					SFDID:     req.SFDID,
					Amount:    req.Amount,
					ActorID:   in.ActorID,
					Reference: req.RequestID,
				}, now)
				if err != nil {
					return err
				}
				allocationID := a.AllocationID
				req.AllocationID = &allocationID
				details["allocation_id"] = allocationID
				typ = activity.RequestApproved
				res.Allocation = ledger.ToDTO(a)
			}

			req.Status = in.Status
			req.DecisionComments = strings.TrimSpace(in.Comments)
			req.ReviewedBy, req.ReviewedAt = &in.ActorID, &now
			if err := r.Requests.Save(ctx, req); err != nil {
				return err
			}
			res.Request = req
			return r.Activities.Append(ctx, activity.NewEntry(
				activity.SubjectRequest, req.RequestID, typ, in.ActorID, now,
				fmt.Sprintf("subsidy request %s", in.Status), details,
			))
		})
	})
	if err != nil {
		return nil, err
	}

	if res.Allocation != nil {
		u.deps.Metrics.LedgerMutation("credit", "ok")
		u.deps.Metrics.AllocationBalance(res.Allocation.SFDID, res.Allocation.Amount, res.Allocation.UsedAmount)
	}
	u.deps.Events.Publish(ctx, event.Event{
		Kind:       event.RequestDecided,
		SubjectID:  res.Request.RequestID,
		SFDID:      res.Request.SFDID,
		Status:     string(res.Request.Status),
		Amount:     res.Request.Amount.String(),
		ActorID:    in.ActorID,
		OccurredAt: *res.Request.ReviewedAt,
	})
	return &res, nil
}

func (u *Usecase) Get(ctx context.Context, requestID string) (*subsidy.Request, error) {
	return u.requests.GetByRequestID(ctx, requestID)
}

// Queue lists requests in review order. Priority orders the queue only; it
// never changes which transitions are allowed.
func (u *Usecase) Queue(ctx context.Context, status subsidy.RequestStatus, sfdID string, limit int) ([]subsidy.Request, error) {
	return u.requests.Queue(ctx, status, sfdID, limit)
}
