package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	compsvc "github.com/cmlabs-hris/payroll-engine/internal/service/compensation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type fakeCompensationService struct {
	compensation.CompensationService
}

func (fakeCompensationService) ComputeBreakdown(ctx context.Context, req compensation.ComputeBreakdownRequest) (compensation.SalaryBreakdown, error) {
	if err := req.Validate(); err != nil {
		return compensation.SalaryBreakdown{}, err
	}
	return compsvc.NewSolver(compsvc.DefaultTolerance).Solve(req.AnnualCTC, compensation.CompensationRules{})
}

type fakeRevisionService struct {
	revision.RevisionService
	created []revision.CreateDraftRequest
}

func (f *fakeRevisionService) CreateDraft(ctx context.Context, req revision.CreateDraftRequest) (revision.SalaryRevision, error) {
	if err := req.Validate(); err != nil {
		return revision.SalaryRevision{}, err
	}
	f.created = append(f.created, req)
	return revision.SalaryRevision{
		ID:          "rev-1",
		TenantID:    req.TenantID,
		EmployeeID:  req.EmployeeID,
		Type:        req.Type,
		NewSnapshot: revision.Snapshot{Breakdown: req.NewBreakdown},
		Status:      revision.StatusDraft,
	}, nil
}

type fakePayrollService struct {
	payroll.PayrollService
	reviseErr error
	export    []byte
}

func (f *fakePayrollService) ReviseSalaryTemplate(ctx context.Context, req payroll.ReviseSalaryTemplateRequest) (payroll.AmendedPayslip, error) {
	if f.reviseErr != nil {
		return payroll.AmendedPayslip{}, f.reviseErr
	}
	return payroll.AmendedPayslip{ID: "amend-1", OriginalPayslipID: req.PayslipID, Version: 1}, nil
}

func (f *fakePayrollService) ExportBankTransfers(ctx context.Context, tenantID, runID string, w io.Writer) error {
	_, err := w.Write(f.export)
	return err
}

type testServer struct {
	handler   http.Handler
	jwt       jwt.Service
	revisions *fakeRevisionService
	payroll   *fakePayrollService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	jwtSvc := jwt.NewJWTService(handlerTestSecret, time.Hour)
	revisions := &fakeRevisionService{}
	payrollSvc := &fakePayrollService{}
	comp := fakeCompensationService{}

	router := NewRouter(
		config.AppConfig{Env: "test", LogLevel: "error"},
		jwtSvc,
		NewCompensationHandler(comp),
		NewRevisionHandler(revisions, comp),
		NewPayrollHandler(payrollSvc),
	)
	return testServer{handler: router, jwt: jwtSvc, revisions: revisions, payroll: payrollSvc}
}

func (s testServer) token(t *testing.T, userID, companyID string, role auth.Role) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(userID, companyID, role)
	require.NoError(t, err)
	return token
}

func (s testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/compensation/breakdown", "", map[string]any{"annual_ctc": "600000"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RequiresCompany(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "user-1", "", auth.RoleOwner)

	rec := srv.do(t, http.MethodPost, "/api/v1/compensation/breakdown", token, map[string]any{"annual_ctc": "600000"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCompensationHandler_ComputeBreakdown(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "user-1", "tenant-1", auth.RoleEmployee)

	rec := srv.do(t, http.MethodPost, "/api/v1/compensation/breakdown", token, map[string]any{"annual_ctc": "600000"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data compensation.SalaryBreakdown `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, decimal.NewFromInt(48200).Equal(body.Data.GrossEarnings.Monthly))
	assert.True(t, decimal.NewFromInt(46200).Equal(body.Data.NetPay.Monthly))
}

func TestCompensationHandler_InvalidBody(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "user-1", "tenant-1", auth.RoleEmployee)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compensation/breakdown", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompensationHandler_ValidationError(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "user-1", "tenant-1", auth.RoleEmployee)

	rec := srv.do(t, http.MethodPost, "/api/v1/compensation/breakdown", token, map[string]any{"annual_ctc": "0"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, "must be greater than 0", body.Error.Details["annual_ctc"])
}

func TestRevisionHandler_CreateSolvesBreakdown(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "manager-1", "tenant-1", auth.RoleManager)

	rec := srv.do(t, http.MethodPost, "/api/v1/revisions", token, map[string]any{
		"employee_id":    "emp-1",
		"type":           "INCREMENT",
		"annual_ctc":     "600000",
		"reason":         "annual cycle",
		"effective_from": "2026-04-01",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, srv.revisions.created, 1)
	got := srv.revisions.created[0]
	assert.Equal(t, "tenant-1", got.TenantID)
	assert.Equal(t, "manager-1", got.ActorID)
	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.True(t, decimal.NewFromInt(48200).Equal(got.NewBreakdown.GrossEarnings.Monthly))
}

func TestRevisionHandler_EmployeeCannotDraft(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "emp-1", "tenant-1", auth.RoleEmployee)

	rec := srv.do(t, http.MethodPost, "/api/v1/revisions", token, map[string]any{"employee_id": "emp-1"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, srv.revisions.created)
}

func TestPayrollHandler_RunsRequireManager(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "emp-1", "tenant-1", auth.RoleEmployee)

	rec := srv.do(t, http.MethodPost, "/api/v1/payroll/runs", token, map[string]any{"period_start": "2026-06-01", "period_end": "2026-06-30"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayrollHandler_ReviseSalaryTemplateLocked(t *testing.T) {
	srv := newTestServer(t)
	srv.payroll.reviseErr = apperror.WithContext(payroll.ErrAmendmentWindowPassed, "days_since_creation", 35, "window_days", 30)
	token := srv.token(t, "manager-1", "tenant-1", auth.RoleManager)

	rec := srv.do(t, http.MethodPost, "/api/v1/payslips/slip-1/amendments/salary-template", token, map[string]any{
		"salary_template_id": "tpl-1",
		"reason":             "wrong template",
	})

	assert.Equal(t, http.StatusLocked, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, "LOCKED", body.Error.Code)
	assert.Equal(t, "35", body.Error.Details["days_since_creation"])
}

func TestPayrollHandler_ReviseSalaryTemplate(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "manager-1", "tenant-1", auth.RoleManager)

	rec := srv.do(t, http.MethodPost, "/api/v1/payslips/slip-1/amendments/salary-template", token, map[string]any{
		"salary_template_id": "tpl-1",
		"reason":             "wrong template",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data payroll.AmendmentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "slip-1", body.Data.OriginalPayslipID)
}

func TestPayrollHandler_ExportBankTransfers(t *testing.T) {
	srv := newTestServer(t)
	srv.payroll.export = []byte("xlsx-bytes")
	token := srv.token(t, "manager-1", "tenant-1", auth.RoleOwner)

	rec := srv.do(t, http.MethodGet, "/api/v1/payroll/runs/run-1/bank-transfers.xlsx", token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bank-transfers-run-1.xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}
