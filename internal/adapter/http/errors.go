package http

import (
	"context"
	"errors"
	"net/http"

	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/payment"
	"meref-loan-engine/internal/domain/plan"
	"meref-loan-engine/internal/domain/subsidy"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var notFound = []error{
	loan.ErrNotFound,
	plan.ErrNotFound,
	payment.ErrNotFound,
	subsidy.ErrAllocationNotFound,
	subsidy.ErrRequestNotFound,
}

var conflicts = []error{
	errs.ErrInvalidTransition,
	errs.ErrInsufficientSubsidy,
	errs.ErrLoanNotActive,
	errs.ErrPlanInactive,
}

// StatusFor maps a use-case error to its HTTP status.
func StatusFor(err error) int {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, errs.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrConcurrentUpdate), errors.Is(err, errs.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// writeError renders err with the status StatusFor picks. Internal errors are
// logged and their message withheld.
func writeError(c echo.Context, err error) error {
	code := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		resp.Error = "validation failed"
		for _, v := range ve.Violations {
			resp.Details = append(resp.Details, FieldError(v))
		}
	}
	if code == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		resp.Error = "internal error"
	}
	if errs.IsRetryable(err) {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(code, resp)
}

// decode binds and validates the body. When it reports false the error
// response has already been written.
func decode(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
