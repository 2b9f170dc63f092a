package payroll

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	compsvc "github.com/cmlabs-hris/payroll-engine/internal/service/compensation"
)

const DefaultRecalculationBatch = 100

// RecalculatePending re-runs pro-rata for payslips flagged by attendance
// corrections. Payslips whose run has since locked are skipped and stay flagged.
func (s *PayrollServiceImpl) RecalculatePending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultRecalculationBatch
	}
	pending, err := s.payslipRepo.ListNeedingRecalculation(ctx, limit)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.recalculate(ctx, p.TenantID, p.ID); err != nil {
			if apperror.KindOf(err) == apperror.KindLocked {
				slog.Warn("Skipping recalculation, run locked", "tenant_id", p.TenantID, "payslip_id", p.ID, "reason", err.Error())
				continue
			}
			slog.Error("Failed to recalculate payslip", "tenant_id", p.TenantID, "payslip_id", p.ID, "error", err)
			continue
		}
		done++
	}

	if len(pending) > 0 {
		slog.Info("Recalculation sweep finished", "pending", len(pending), "recalculated", done)
	}
	return done, nil
}

func (s *PayrollServiceImpl) recalculate(ctx context.Context, tenantID, payslipID string) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.payslipRepo.GetByID(ctx, tenantID, payslipID)
		if err != nil {
			return err
		}
		if !p.NeedsRecalculation {
			return nil
		}
		run, err := s.runRepo.GetForUpdate(ctx, tenantID, p.RunID)
		if err != nil {
			return err
		}
		if err := s.guard.CheckRun(run); err != nil {
			return err
		}
		if err := s.guard.CheckExplicitLock(run); err != nil {
			return err
		}

		rules, err := s.compensation.RulesForTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		pr, err := proRataFor(p)
		if err != nil {
			return err
		}
		breakdown, err := compsvc.ProRateBreakdown(p.BaseBreakdown, pr, rules.Resolve())
		if err != nil {
			return err
		}

		before := p
		p.Breakdown = breakdown
		p.Lines = buildLines(breakdown, before.LinesIn(payroll.LinePostTaxDeduction))
		applyTotals(&p)
		p.NeedsRecalculation = false
		// a manual-review flag survives recalculation; only a reviewer clears it
		if !p.RequiresManualReview {
			p.Status = payroll.PayslipStatusProcessed
		}

		analysis := Analyze(p)
		p = ApplyTransitions(p, analysis.Transitions)
		if err := s.payslipRepo.ReplaceComputation(ctx, p); err != nil {
			return err
		}

		return s.auditRepo.Append(ctx, payroll.AuditEntry{
			TenantID:   tenantID,
			EntityType: payroll.AuditEntityPayslip,
			EntityID:   p.ID,
			Action:     payroll.AuditActionRecalculated,
			ActorID:    "system",
			Reason:     "attendance correction",
			Before:     map[string]any{"net_pay": before.NetPay.String(), "status": string(before.Status)},
			After:      map[string]any{"net_pay": p.NetPay.String(), "status": string(p.Status)},
			CreatedAt:  s.now(),
		})
	})
}
