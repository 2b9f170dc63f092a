package payroll

import (
	"context"
	"io"
)

type PayrollService interface {
	// Runs
	CreateRun(ctx context.Context, req CreateRunRequest) (PayrollRun, error)
	GetRun(ctx context.Context, tenantID, runID string) (PayrollRun, error)
	UpdateRunStatus(ctx context.Context, req UpdateRunStatusRequest) (PayrollRun, error)
	SetRunLock(ctx context.Context, req SetRunLockRequest) (PayrollRun, error)

	// Payslips
	GeneratePayslip(ctx context.Context, req GeneratePayslipRequest) (Payslip, DisputeAnalysis, error)
	GetPayslip(ctx context.Context, tenantID, payslipID string) (Payslip, error)
	AnalyzePayslip(ctx context.Context, tenantID, payslipID string) (DisputeAnalysis, error)

	// Amendments
	ReviseSalaryTemplate(ctx context.Context, req ReviseSalaryTemplateRequest) (AmendedPayslip, error)
	CorrectBackdatedAttendance(ctx context.Context, req CorrectAttendanceRequest) (Payslip, error)
	RecalculatePending(ctx context.Context, limit int) (int, error)

	// Summary
	SummarizeRun(ctx context.Context, tenantID, runID string) (PayrollSummary, error)
	ExportBankTransfers(ctx context.Context, tenantID, runID string, w io.Writer) error
}
