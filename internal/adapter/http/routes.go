package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health     *Handler
	Plans      *PlanHandler
	Loans      *LoanHandler
	Subsidies  *SubsidyHandler
	Activities *ActivityHandler
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

// Register mounts the API under /api/v1; mw wraps only the API group.
func Register(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	api := e.Group("/api/v1", mw...)

	api.POST("/plans", h.Plans.CreatePlan)
	api.GET("/plans/:plan_id", h.Plans.GetPlan)
	api.PATCH("/plans/:plan_id", h.Plans.UpdatePlan)
	api.POST("/plans/:plan_id/deactivate", h.Plans.DeactivatePlan)
	api.GET("/sfds/:sfd_id/plans", h.Plans.ListPlans)

	api.POST("/loans", h.Loans.CreateLoan)
	api.GET("/loans", h.Loans.ListLoans)
	api.POST("/loans/defaults/sweep", h.Loans.SweepDefaults)
	api.GET("/loans/:loan_id", h.Loans.GetLoan)
	api.GET("/loans/:loan_id/schedule", h.Loans.GetSchedule)
	api.POST("/loans/:loan_id/approve", h.Loans.ApproveLoan)
	api.POST("/loans/:loan_id/reject", h.Loans.RejectLoan)
	api.POST("/loans/:loan_id/disburse", h.Loans.DisburseLoan)
	api.POST("/loans/:loan_id/default", h.Loans.DefaultLoan)
	api.POST("/loans/:loan_id/complete", h.Loans.CompleteLoan)
	api.POST("/loans/:loan_id/payments", h.Loans.RecordPayment)
	api.GET("/loans/:loan_id/payments", h.Loans.ListPayments)

	api.POST("/subsidy-requests", h.Subsidies.SubmitRequest)
	api.GET("/subsidy-requests", h.Subsidies.Queue)
	api.GET("/subsidy-requests/:request_id", h.Subsidies.GetRequest)
	api.POST("/subsidy-requests/:request_id/review", h.Subsidies.ReviewRequest)
	api.POST("/subsidy-requests/:request_id/decision", h.Subsidies.DecideRequest)
	api.GET("/sfds/:sfd_id/allocation", h.Subsidies.GetAllocation)
	api.POST("/sfds/:sfd_id/allocation/credits", h.Subsidies.CreditAllocation)

	api.GET("/activities/:subject_id", h.Activities.ListActivities)
}
