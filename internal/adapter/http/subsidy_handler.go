package http

import (
	"net/http"

	domain "meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/usecase/ledger"
	"meref-loan-engine/internal/usecase/subsidy"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type SubsidyHandler struct {
	requests *subsidy.Usecase
	ledger   *ledger.Usecase
}

func NewSubsidyHandler(requests *subsidy.Usecase, l *ledger.Usecase) *SubsidyHandler {
	return &SubsidyHandler{requests: requests, ledger: l}
}

type submitRequestReq struct {
	SFDID         string          `json:"sfd_id"        validate:"required,hex32"`
	Amount        decimal.Decimal `json:"amount"        validate:"gt=0,dec2"`
	Purpose       string          `json:"purpose"       validate:"required"`
	Justification string          `json:"justification"`
	Priority      string          `json:"priority"      validate:"omitempty,priority"`
	Region        string          `json:"region"        validate:"omitempty,max=64"`
}

type decideRequestReq struct {
	Status   string `json:"status"            validate:"required,oneof=approved rejected"`
	Comments string `json:"decision_comments" validate:"required_if=Status rejected"`
}

type creditReq struct {
	Amount    decimal.Decimal `json:"amount"    validate:"gt=0,dec2"`
	Reference string          `json:"reference" validate:"omitempty,max=64"`
}

func (h *SubsidyHandler) SubmitRequest(c echo.Context) error {
	var req submitRequestReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	out, err := h.requests.Submit(c.Request().Context(), subsidy.SubmitInput{
		SFDID:         req.SFDID,
		Amount:        req.Amount,
		Purpose:       req.Purpose,
		Justification: req.Justification,
		Priority:      domain.Priority(req.Priority),
		Region:        req.Region,
		ActorID:       actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *SubsidyHandler) ReviewRequest(c echo.Context) error {
	out, err := h.requests.MarkUnderReview(c.Request().Context(), c.Param("request_id"), actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SubsidyHandler) DecideRequest(c echo.Context) error {
	var req decideRequestReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	out, err := h.requests.Decide(c.Request().Context(), subsidy.DecideInput{
		RequestID: c.Param("request_id"),
		ActorID:   actorID(c),
		Status:    domain.RequestStatus(req.Status),
		Comments:  req.Comments,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SubsidyHandler) GetRequest(c echo.Context) error {
	out, err := h.requests.Get(c.Request().Context(), c.Param("request_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Queue serves GET /subsidy-requests?status=&sfd_id=&limit=
func (h *SubsidyHandler) Queue(c echo.Context) error {
	out, err := h.requests.Queue(c.Request().Context(),
		domain.RequestStatus(c.QueryParam("status")), c.QueryParam("sfd_id"), queryLimit(c, 100))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SubsidyHandler) GetAllocation(c echo.Context) error {
	out, err := h.ledger.Get(c.Request().Context(), c.Param("sfd_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreditAllocation tops up an SFD pool outside the request workflow.
func (h *SubsidyHandler) CreditAllocation(c echo.Context) error {
	var req creditReq
	if ok, err := decode(c, &req); !ok {
		return err
	}
	out, err := h.ledger.Credit(c.Request().Context(), ledger.Mutation{
		SFDID:     c.Param("sfd_id"),
		Amount:    req.Amount,
		ActorID:   actorID(c),
		Reference: req.Reference,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
