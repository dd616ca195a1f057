package http

import (
	"net/http"

	domain "meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/payment"
	"meref-loan-engine/internal/usecase/disbursement"
	"meref-loan-engine/internal/usecase/loan"
	paymentuc "meref-loan-engine/internal/usecase/payment"
	"meref-loan-engine/pkg/id"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	uc        *loan.Usecase
	disburser *disbursement.Usecase
	payments  *paymentuc.Usecase
}

func NewLoanHandler(uc *loan.Usecase, disburser *disbursement.Usecase, payments *paymentuc.Usecase) *LoanHandler {
	return &LoanHandler{uc: uc, disburser: disburser, payments: payments}
}

type createLoanReq struct {
	ClientID       string           `json:"client_id"       validate:"required,hex32"`
	SFDID          string           `json:"sfd_id"          validate:"required,hex32"`
	PlanID         *string          `json:"plan_id"         validate:"omitempty,hex32"`
	Amount         decimal.Decimal  `json:"amount"          validate:"gt=0,dec2"`
	DurationMonths int              `json:"duration_months" validate:"gte=1,lte=360"`
	InterestRate   *decimal.Decimal `json:"interest_rate"   validate:"omitempty,gte=0,lte=100"`
	SubsidyAmount  *decimal.Decimal `json:"subsidy_amount"  validate:"omitempty,gte=0,dec2"`
	SubsidyRate    *decimal.Decimal `json:"subsidy_rate"    validate:"omitempty,gte=0,lte=100"`
	Purpose        string           `json:"purpose"`
}

type rejectLoanReq struct {
	Reason string `json:"reason" validate:"required"`
}

type recordPaymentReq struct {
	Amount        decimal.Decimal `json:"amount"         validate:"gt=0,dec2"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash mobile_money bank_transfer cheque"`
	Reference     string          `json:"reference"      validate:"omitempty,max=64"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		ClientID:       req.ClientID,
		SFDID:          req.SFDID,
		PlanID:         req.PlanID,
		Amount:         req.Amount,
		DurationMonths: req.DurationMonths,
		InterestRate:   req.InterestRate,
		SubsidyAmount:  req.SubsidyAmount,
		SubsidyRate:    req.SubsidyRate,
		Purpose:        req.Purpose,
		ActorID:        actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ListLoans serves GET /loans?sfd_id=&status=&limit=
func (h *LoanHandler) ListLoans(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), domain.Filter{
		SFDID:  c.QueryParam("sfd_id"),
		Status: domain.Status(c.QueryParam("status")),
		Limit:  queryLimit(c, 100),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) ApproveLoan(c echo.Context) error {
	dto, err := h.uc.Approve(c.Request().Context(), c.Param("loan_id"), actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) RejectLoan(c echo.Context) error {
	var req rejectLoanReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Reject(c.Request().Context(), c.Param("loan_id"), actorID(c), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// DisburseLoan uses the request id as the disbursement idempotency key, so a
// retried call is answered from the loan even after the cached response expires.
func (h *LoanHandler) DisburseLoan(c echo.Context) error {
	key, _ := id.Normalize(c.Request().Header.Get("Ax-Request-Id"))
	res, err := h.disburser.Disburse(c.Request().Context(), disbursement.DisburseInput{
		LoanID:         c.Param("loan_id"),
		DisburserID:    actorID(c),
		IdempotencyKey: key,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) DefaultLoan(c echo.Context) error {
	dto, err := h.uc.RecordDefault(c.Request().Context(), c.Param("loan_id"), actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) CompleteLoan(c echo.Context) error {
	dto, err := h.uc.Complete(c.Request().Context(), c.Param("loan_id"), actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// SweepDefaults defaults every active loan past its grace period.
func (h *LoanHandler) SweepDefaults(c echo.Context) error {
	ids, err := h.uc.SweepDefaults(c.Request().Context(), actorID(c))
	if err != nil && len(ids) == 0 {
		return writeError(c, err)
	}
	resp := map[string]any{"defaulted": ids}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *LoanHandler) GetSchedule(c echo.Context) error {
	rows, err := h.uc.Schedule(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *LoanHandler) RecordPayment(c echo.Context) error {
	var req recordPaymentReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	res, err := h.payments.RecordPayment(c.Request().Context(), paymentuc.RecordInput{
		LoanID:    c.Param("loan_id"),
		Amount:    req.Amount,
		Method:    payment.Method(req.PaymentMethod),
		Reference: req.Reference,
		ActorID:   actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	code := http.StatusCreated
	if res.Duplicate {
		code = http.StatusOK
	}
	return c.JSON(code, res)
}

func (h *LoanHandler) ListPayments(c echo.Context) error {
	out, err := h.payments.List(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
