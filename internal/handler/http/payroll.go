package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	UpdateRunStatus(w http.ResponseWriter, r *http.Request)
	SetRunLock(w http.ResponseWriter, r *http.Request)

	// Payslips
	GeneratePayslip(w http.ResponseWriter, r *http.Request)
	GetPayslip(w http.ResponseWriter, r *http.Request)
	AnalyzePayslip(w http.ResponseWriter, r *http.Request)

	// Amendments
	ReviseSalaryTemplate(w http.ResponseWriter, r *http.Request)
	CorrectAttendance(w http.ResponseWriter, r *http.Request)

	// Summary
	GetRunSummary(w http.ResponseWriter, r *http.Request)
	ExportBankTransfers(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.TenantID = caller(r).TenantID

	run, err := h.payrollService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", payroll.NewRunResponse(run))
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.payrollService.GetRun(r.Context(), caller(r).TenantID, chi.URLParam(r, "runID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewRunResponse(run))
}

func (h *payrollHandlerImpl) UpdateRunStatus(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdateRunStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)
	req.TenantID = claims.TenantID
	req.ActorID = claims.ActorID
	req.RunID = chi.URLParam(r, "runID")

	run, err := h.payrollService.UpdateRunStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewRunResponse(run))
}

func (h *payrollHandlerImpl) SetRunLock(w http.ResponseWriter, r *http.Request) {
	var req payroll.SetRunLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)
	req.TenantID = claims.TenantID
	req.ActorID = claims.ActorID
	req.RunID = chi.URLParam(r, "runID")

	run, err := h.payrollService.SetRunLock(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewRunResponse(run))
}

// ========== PAYSLIPS ==========

func (h *payrollHandlerImpl) GeneratePayslip(w http.ResponseWriter, r *http.Request) {
	var req payroll.GeneratePayslipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)
	req.TenantID = claims.TenantID
	req.ActorID = claims.ActorID
	req.RunID = chi.URLParam(r, "runID")

	slip, analysis, err := h.payrollService.GeneratePayslip(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payslip generated", payroll.GeneratePayslipResponse{
		Payslip:  payroll.NewPayslipResponse(slip),
		Analysis: analysis,
	})
}

func (h *payrollHandlerImpl) GetPayslip(w http.ResponseWriter, r *http.Request) {
	slip, err := h.payrollService.GetPayslip(r.Context(), caller(r).TenantID, chi.URLParam(r, "payslipID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPayslipResponse(slip))
}

func (h *payrollHandlerImpl) AnalyzePayslip(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.AnalyzePayslip(r.Context(), caller(r).TenantID, chi.URLParam(r, "payslipID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== AMENDMENTS ==========

func (h *payrollHandlerImpl) ReviseSalaryTemplate(w http.ResponseWriter, r *http.Request) {
	var req payroll.ReviseSalaryTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)
	req.TenantID = claims.TenantID
	req.ActorID = claims.ActorID
	req.PayslipID = chi.URLParam(r, "payslipID")

	amendment, err := h.payrollService.ReviseSalaryTemplate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payslip amendment created", payroll.NewAmendmentResponse(amendment))
}

func (h *payrollHandlerImpl) CorrectAttendance(w http.ResponseWriter, r *http.Request) {
	var req payroll.CorrectAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)
	req.TenantID = claims.TenantID
	req.ActorID = claims.ActorID
	req.PayslipID = chi.URLParam(r, "payslipID")

	slip, err := h.payrollService.CorrectBackdatedAttendance(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance corrected, payslip queued for recalculation", payroll.NewPayslipResponse(slip))
}

// ========== SUMMARY ==========

func (h *payrollHandlerImpl) GetRunSummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.SummarizeRun(r.Context(), caller(r).TenantID, chi.URLParam(r, "runID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ExportBankTransfers(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	// Buffered so a failed export still gets a JSON error response.
	var buf bytes.Buffer
	if err := h.payrollService.ExportBankTransfers(r.Context(), caller(r).TenantID, runID, &buf); err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bank-transfers-%s.xlsx"`, runID))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
