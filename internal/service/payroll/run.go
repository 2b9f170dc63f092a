package payroll

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

func (s *PayrollServiceImpl) CreateRun(ctx context.Context, req payroll.CreateRunRequest) (payroll.PayrollRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRun{}, err
	}
	start, end := req.Period()

	run, err := s.runRepo.Create(ctx, payroll.PayrollRun{
		TenantID:    req.TenantID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      payroll.RunStatusDraft,
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	slog.Info("Payroll run created", "tenant_id", run.TenantID, "run_id", run.ID, "period_start", req.PeriodStart)
	return run, nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, tenantID, runID string) (payroll.PayrollRun, error) {
	return s.runRepo.GetByID(ctx, tenantID, runID)
}

// UpdateRunStatus moves the run one step forward. Moving to PAID finalizes its processed payslips.
func (s *PayrollServiceImpl) UpdateRunStatus(ctx context.Context, req payroll.UpdateRunStatusRequest) (payroll.PayrollRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRun{}, err
	}

	var updated payroll.PayrollRun
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.runRepo.GetForUpdate(ctx, req.TenantID, req.RunID)
		if err != nil {
			return err
		}
		if !run.Status.CanTransitionTo(req.Status) {
			return apperror.WithContext(payroll.ErrInvalidRunTransition, "from", string(run.Status), "to", string(req.Status))
		}
		if err := s.runRepo.UpdateStatus(ctx, req.TenantID, run.ID, req.Status, req.ActorID); err != nil {
			return err
		}
		if err := s.auditRepo.Append(ctx, payroll.AuditEntry{
			TenantID:   req.TenantID,
			EntityType: payroll.AuditEntityRun,
			EntityID:   run.ID,
			Action:     payroll.AuditActionRunStatusChanged,
			ActorID:    req.ActorID,
			Before:     map[string]any{"status": string(run.Status)},
			After:      map[string]any{"status": string(req.Status)},
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}

		updated, err = s.runRepo.GetByID(ctx, req.TenantID, run.ID)
		return err
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	slog.Info("Payroll run status changed", "tenant_id", req.TenantID, "run_id", req.RunID, "status", req.Status, "actor_id", req.ActorID)
	return updated, nil
}

// SetRunLock toggles the explicit lock. It has no effect on the status based lock of APPROVED and PAID runs.
func (s *PayrollServiceImpl) SetRunLock(ctx context.Context, req payroll.SetRunLockRequest) (payroll.PayrollRun, error) {
	var updated payroll.PayrollRun
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.runRepo.GetForUpdate(ctx, req.TenantID, req.RunID)
		if err != nil {
			return err
		}
		if run.Locked == req.Locked {
			updated = run
			return nil
		}
		if err := s.runRepo.SetLocked(ctx, req.TenantID, run.ID, req.Locked, req.ActorID); err != nil {
			return err
		}
		if err := s.auditRepo.Append(ctx, payroll.AuditEntry{
			TenantID:   req.TenantID,
			EntityType: payroll.AuditEntityRun,
			EntityID:   run.ID,
			Action:     payroll.AuditActionRunLockChanged,
			ActorID:    req.ActorID,
			Before:     map[string]any{"locked": run.Locked},
			After:      map[string]any{"locked": req.Locked},
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}

		updated, err = s.runRepo.GetByID(ctx, req.TenantID, run.ID)
		return err
	})
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	return updated, nil
}
