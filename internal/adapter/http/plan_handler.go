package http

import (
	"net/http"

	"meref-loan-engine/internal/usecase/plan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PlanHandler struct{ uc *plan.Usecase }

func NewPlanHandler(uc *plan.Usecase) *PlanHandler { return &PlanHandler{uc: uc} }

type createPlanReq struct {
	SFDID        string          `json:"sfd_id"        validate:"required,hex32"`
	Name         string          `json:"name"          validate:"required,max=128"`
	MinAmount    decimal.Decimal `json:"min_amount"    validate:"gt=0,dec2"`
	MaxAmount    decimal.Decimal `json:"max_amount"    validate:"gt=0,dec2"`
	MinDuration  int             `json:"min_duration"  validate:"gte=1"`
	MaxDuration  int             `json:"max_duration"  validate:"gte=1"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=100"`
	FeeRate      decimal.Decimal `json:"fee_rate"      validate:"gte=0,lte=100"`
	Requirements []string        `json:"requirements"`
}

type updatePlanReq struct {
	Name         *string          `json:"name"          validate:"omitempty,max=128"`
	MinAmount    *decimal.Decimal `json:"min_amount"    validate:"omitempty,gt=0,dec2"`
	MaxAmount    *decimal.Decimal `json:"max_amount"    validate:"omitempty,gt=0,dec2"`
	MinDuration  *int             `json:"min_duration"  validate:"omitempty,gte=1"`
	MaxDuration  *int             `json:"max_duration"  validate:"omitempty,gte=1"`
	InterestRate *decimal.Decimal `json:"interest_rate" validate:"omitempty,gte=0,lte=100"`
	FeeRate      *decimal.Decimal `json:"fee_rate"      validate:"omitempty,gte=0,lte=100"`
	Requirements []string         `json:"requirements"`
}

func (h *PlanHandler) CreatePlan(c echo.Context) error {
	var req createPlanReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	p, err := h.uc.Create(c.Request().Context(), plan.CreatePlanInput{
		SFDID:        req.SFDID,
		Name:         req.Name,
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
		MinDuration:  req.MinDuration,
		MaxDuration:  req.MaxDuration,
		InterestRate: req.InterestRate,
		FeeRate:      req.FeeRate,
		Requirements: req.Requirements,
		ActorID:      actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	var req updatePlanReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	p, err := h.uc.Update(c.Request().Context(), plan.UpdatePlanInput{
		PlanID:       c.Param("plan_id"),
		Name:         req.Name,
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
		MinDuration:  req.MinDuration,
		MaxDuration:  req.MaxDuration,
		InterestRate: req.InterestRate,
		FeeRate:      req.FeeRate,
		Requirements: req.Requirements,
		ActorID:      actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PlanHandler) DeactivatePlan(c echo.Context) error {
	p, err := h.uc.Deactivate(c.Request().Context(), c.Param("plan_id"), actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PlanHandler) GetPlan(c echo.Context) error {
	p, err := h.uc.Get(c.Request().Context(), c.Param("plan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListPlans serves GET /sfds/:sfd_id/plans?active=true
func (h *PlanHandler) ListPlans(c echo.Context) error {
	out, err := h.uc.ListBySFD(c.Request().Context(), c.Param("sfd_id"), queryBool(c, "active"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
