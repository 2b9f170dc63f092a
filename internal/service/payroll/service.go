package payroll

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
)

type PayrollServiceImpl struct {
	tx            payroll.Transactor
	runRepo       payroll.RunRepository
	payslipRepo   payroll.PayslipRepository
	amendmentRepo payroll.AmendmentRepository
	auditRepo     payroll.AuditLogRepository
	compensation  compensation.CompensationService
	revisions     revision.RevisionService
	guard         *LockGuard
	now           func() time.Time
}

func NewPayrollService(
	tx payroll.Transactor,
	runRepo payroll.RunRepository,
	payslipRepo payroll.PayslipRepository,
	amendmentRepo payroll.AmendmentRepository,
	auditRepo payroll.AuditLogRepository,
	compensationService compensation.CompensationService,
	revisionService revision.RevisionService,
	guard *LockGuard,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:            tx,
		runRepo:       runRepo,
		payslipRepo:   payslipRepo,
		amendmentRepo: amendmentRepo,
		auditRepo:     auditRepo,
		compensation:  compensationService,
		revisions:     revisionService,
		guard:         guard,
		now:           time.Now,
	}
}

func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, tenantID, payslipID string) (payroll.Payslip, error) {
	return s.payslipRepo.GetByID(ctx, tenantID, payslipID)
}

// AnalyzePayslip diagnoses a stored payslip and persists the resulting transitions.
func (s *PayrollServiceImpl) AnalyzePayslip(ctx context.Context, tenantID, payslipID string) (payroll.DisputeAnalysis, error) {
	var analysis payroll.DisputeAnalysis
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.payslipRepo.GetByID(ctx, tenantID, payslipID)
		if err != nil {
			return err
		}
		analysis = Analyze(p)
		if len(analysis.Transitions) == 0 {
			return nil
		}

		updated := ApplyTransitions(p, analysis.Transitions)
		if err := s.payslipRepo.UpdateReviewState(ctx, tenantID, p.ID, updated.Status, updated.RequiresManualReview); err != nil {
			return err
		}
		return s.auditRepo.Append(ctx, s.disputeAudit(p, updated, analysis))
	})
	if err != nil {
		return payroll.DisputeAnalysis{}, err
	}
	if analysis.HasNegativeNetPay {
		slog.Warn("Payslip has negative net pay", "tenant_id", tenantID, "payslip_id", payslipID, "root_causes", analysis.RootCauses)
	}
	return analysis, nil
}

func (s *PayrollServiceImpl) disputeAudit(before, after payroll.Payslip, analysis payroll.DisputeAnalysis) payroll.AuditEntry {
	causes := make([]string, 0, len(analysis.RootCauses))
	for _, c := range analysis.RootCauses {
		causes = append(causes, string(c))
	}
	return payroll.AuditEntry{
		TenantID:   before.TenantID,
		EntityType: payroll.AuditEntityPayslip,
		EntityID:   before.ID,
		Action:     payroll.AuditActionDisputed,
		ActorID:    "system",
		Reason:     "negative net pay",
		Before:     map[string]any{"status": string(before.Status), "requires_manual_review": before.RequiresManualReview},
		After:      map[string]any{"status": string(after.Status), "requires_manual_review": after.RequiresManualReview, "root_causes": causes},
		CreatedAt:  s.now(),
	}
}

func (s *PayrollServiceImpl) SummarizeRun(ctx context.Context, tenantID, runID string) (payroll.PayrollSummary, error) {
	run, err := s.runRepo.GetByID(ctx, tenantID, runID)
	if err != nil {
		return payroll.PayrollSummary{}, err
	}
	payslips, err := s.payslipRepo.ListByRun(ctx, tenantID, runID)
	if err != nil {
		return payroll.PayrollSummary{}, err
	}

	summary := Summarize(run, payslips)
	if summary.Failed > 0 {
		slog.Warn("Payroll summary skipped payslips", "tenant_id", tenantID, "run_id", runID, "failed", summary.Failed)
	}
	return summary, nil
}

func (s *PayrollServiceImpl) ExportBankTransfers(ctx context.Context, tenantID, runID string, w io.Writer) error {
	summary, err := s.SummarizeRun(ctx, tenantID, runID)
	if err != nil {
		return err
	}
	return WriteBankTransferSheet(summary, w)
}
