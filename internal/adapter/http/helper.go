package http

import (
	"strconv"
	"strings"
	"time"

	"meref-loan-engine/pkg/id"

	"github.com/labstack/echo/v4"
)

const HeaderActorID = "Ax-Actor-Id"

// actorID is the normalised caller id. The idempotency middleware has already
// rejected mutating requests without a well-formed header.
func actorID(c echo.Context) string {
	if v, ok := id.Normalize(c.Request().Header.Get(HeaderActorID)); ok {
		return v
	}
	return ""
}

func queryLimit(c echo.Context, def int) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// queryTime accepts RFC3339 or a plain date; an empty value is the zero time.
func queryTime(c echo.Context, name string) (time.Time, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}
