package payroll

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	compsvc "github.com/cmlabs-hris/payroll-engine/internal/service/compensation"
)

// ReviseSalaryTemplate records a linked amendment that recomputes a payslip against
// another salary template. The original payslip is left untouched.
func (s *PayrollServiceImpl) ReviseSalaryTemplate(ctx context.Context, req payroll.ReviseSalaryTemplateRequest) (payroll.AmendedPayslip, error) {
	if err := req.Validate(); err != nil {
		return payroll.AmendedPayslip{}, err
	}

	var amended payroll.AmendedPayslip
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.payslipRepo.GetByID(ctx, req.TenantID, req.PayslipID)
		if err != nil {
			return err
		}
		// window before lock state
		if err := s.guard.CheckWindow(p); err != nil {
			return err
		}
		run, err := s.runRepo.GetForUpdate(ctx, req.TenantID, p.RunID)
		if err != nil {
			return err
		}
		if err := s.guard.CheckRun(run); err != nil {
			return err
		}

		tmpl, full, err := s.compensation.BreakdownForTemplate(ctx, req.TenantID, req.TemplateID)
		if err != nil {
			return err
		}
		rules, err := s.compensation.RulesForTenant(ctx, req.TenantID)
		if err != nil {
			return err
		}
		if tmpl.Overrides != nil {
			rules = rules.Merge(*tmpl.Overrides)
		}

		pr, err := proRataFor(p)
		if err != nil {
			return err
		}
		recalculated, err := compsvc.ProRateBreakdown(full, pr, rules.Resolve())
		if err != nil {
			return err
		}

		version, err := s.amendmentRepo.LatestVersion(ctx, req.TenantID, p.ID)
		if err != nil {
			return err
		}
		amended, err = s.amendmentRepo.Create(ctx, payroll.AmendedPayslip{
			TenantID:          req.TenantID,
			OriginalPayslipID: p.ID,
			Version:           version + 1,
			Reason:            req.Reason,
			Changes: payroll.AmendmentChanges{
				SalaryTemplateID:   &tmpl.ID,
				SalaryTemplateName: &tmpl.Name,
			},
			RecalculatedValues: &recalculated,
			Status:             payroll.AmendmentStatusPendingApproval,
			RequestedBy:        req.ActorID,
			CreatedAt:          s.now(),
		})
		if err != nil {
			return err
		}

		return s.auditRepo.Append(ctx, payroll.AuditEntry{
			TenantID:   req.TenantID,
			EntityType: payroll.AuditEntityPayslip,
			EntityID:   p.ID,
			Action:     payroll.AuditActionTemplateAmended,
			ActorID:    req.ActorID,
			Reason:     req.Reason,
			Before:     map[string]any{"net_pay": p.NetPay.String(), "gross_earnings": p.GrossEarnings.String()},
			After: map[string]any{
				"salary_template_id": tmpl.ID,
				"amendment_id":       amended.ID,
				"amendment_version":  amended.Version,
				"net_pay":            recalculated.NetPay.Monthly.String(),
				"gross_earnings":     recalculated.GrossEarnings.Monthly.String(),
			},
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return payroll.AmendedPayslip{}, err
	}

	slog.Info("Salary template amendment recorded", "tenant_id", req.TenantID, "payslip_id", req.PayslipID, "amendment_id", amended.ID, "version", amended.Version)
	return amended, nil
}

// CorrectBackdatedAttendance replaces a payslip's attendance and flags it for the
// recalculation sweep. The run's lock state is read in the same transaction.
func (s *PayrollServiceImpl) CorrectBackdatedAttendance(ctx context.Context, req payroll.CorrectAttendanceRequest) (payroll.Payslip, error) {
	if err := req.Validate(); err != nil {
		return payroll.Payslip{}, err
	}

	var updated payroll.Payslip
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.payslipRepo.GetByID(ctx, req.TenantID, req.PayslipID)
		if err != nil {
			return err
		}
		run, err := s.runRepo.GetForUpdate(ctx, req.TenantID, p.RunID)
		if err != nil {
			return err
		}
		if err := s.guard.CheckRun(run); err != nil {
			return err
		}
		if err := s.guard.CheckExplicitLock(run); err != nil {
			return err
		}
		if p.Status == payroll.PayslipStatusFinalized {
			return payroll.ErrPayslipFinalized
		}

		if err := s.payslipRepo.UpdateAttendance(ctx, req.TenantID, p.ID, req.Attendance, true); err != nil {
			return err
		}
		if err := s.auditRepo.Append(ctx, payroll.AuditEntry{
			TenantID:   req.TenantID,
			EntityType: payroll.AuditEntityPayslip,
			EntityID:   p.ID,
			Action:     payroll.AuditActionAttendanceCorrected,
			ActorID:    req.ActorID,
			Reason:     req.Reason,
			Before:     attendanceFields(p.Attendance),
			After:      attendanceFields(req.Attendance),
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}

		p.Attendance = req.Attendance
		p.NeedsRecalculation = true
		updated = p
		return nil
	})
	if err != nil {
		return payroll.Payslip{}, err
	}

	slog.Info("Attendance corrected", "tenant_id", req.TenantID, "payslip_id", req.PayslipID, "lop_days", req.Attendance.LOPDays)
	return updated, nil
}

func attendanceFields(a payroll.AttendanceSummary) map[string]any {
	return map[string]any{
		"total_days":   a.TotalDays,
		"present_days": a.PresentDays,
		"leave_days":   a.LeaveDays,
		"lop_days":     a.LOPDays,
		"holiday_days": a.HolidayDays,
	}
}

