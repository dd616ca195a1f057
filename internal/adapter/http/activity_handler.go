package http

import (
	"net/http"

	"meref-loan-engine/internal/usecase/activity"

	"github.com/labstack/echo/v4"
)

type ActivityHandler struct{ uc *activity.Usecase }

func NewActivityHandler(uc *activity.Usecase) *ActivityHandler { return &ActivityHandler{uc: uc} }

// ListActivities serves GET /activities/:subject_id?from=&to=&limit=
func (h *ActivityHandler) ListActivities(c echo.Context) error {
	from, ok := queryTime(c, "from")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from must be RFC3339 or YYYY-MM-DD"})
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to must be RFC3339 or YYYY-MM-DD"})
	}
	out, err := h.uc.List(c.Request().Context(), c.Param("subject_id"), from, to, queryLimit(c, 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
