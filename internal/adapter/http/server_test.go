package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meref-loan-engine/internal/adapter/repository/mysql"
	"meref-loan-engine/internal/infrastructure/metrics"
	"meref-loan-engine/internal/testutil/testdb"
	"meref-loan-engine/internal/usecase"
	activityuc "meref-loan-engine/internal/usecase/activity"
	"meref-loan-engine/internal/usecase/disbursement"
	"meref-loan-engine/internal/usecase/ledger"
	loanuc "meref-loan-engine/internal/usecase/loan"
	paymentuc "meref-loan-engine/internal/usecase/payment"
	planuc "meref-loan-engine/internal/usecase/plan"
	subsidyuc "meref-loan-engine/internal/usecase/subsidy"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var (
	sfdID    = strings.Repeat("5", 32)
	clientID = strings.Repeat("c", 32)
	admin    = strings.Repeat("a", 32)
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	tx := mysql.NewGormUoW(testdb.Open(t))
	r := tx.Repos()
	deps := usecase.Deps{
		Now:     func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) },
		Metrics: metrics.New(),
	}

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, Handlers{
		Health: NewHandler(),
		Plans:  NewPlanHandler(planuc.NewUsecase(r.Plans, tx, deps)),
		Loans: NewLoanHandler(
			loanuc.NewUsecase(r.Loans, tx, deps),
			disbursement.NewUsecase(tx, deps),
			paymentuc.NewUsecase(r.Payments, r.Loans, tx, deps),
		),
		Subsidies: NewSubsidyHandler(
			subsidyuc.NewUsecase(r.Requests, tx, deps),
			ledger.NewUsecase(r.Allocations, tx, deps),
		),
		Activities: NewActivityHandler(activityuc.NewUsecase(r.Activities)),
		Metrics:    deps.Metrics.Handler(),
	})
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderActorID, admin)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "raw=%s", rec.Body.String())
	return out
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
