package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

// DefaultAmendmentWindow is how long after creation a payslip accepts template amendments.
const DefaultAmendmentWindow = 30 * 24 * time.Hour

// IsLocked reports whether a run has progressed past the point of amendment.
func IsLocked(run payroll.PayrollRun) bool {
	return run.Status == payroll.RunStatusApproved || run.Status == payroll.RunStatusPaid
}

// LockGuard decides whether a run or payslip may still be mutated.
type LockGuard struct {
	window time.Duration
	now    func() time.Time
}

func NewLockGuard(window time.Duration) *LockGuard {
	if window <= 0 {
		window = DefaultAmendmentWindow
	}
	return &LockGuard{window: window, now: time.Now}
}

// CheckRun rejects APPROVED and PAID runs with distinct reasons.
func (g *LockGuard) CheckRun(run payroll.PayrollRun) error {
	switch run.Status {
	case payroll.RunStatusPaid:
		return apperror.WithContext(payroll.ErrRunAlreadyPaid, "run_id", run.ID)
	case payroll.RunStatusApproved:
		return apperror.WithContext(payroll.ErrRunAlreadyApproved, "run_id", run.ID)
	}
	return nil
}

// CheckExplicitLock rejects runs an admin has locked, whatever their status.
func (g *LockGuard) CheckExplicitLock(run payroll.PayrollRun) error {
	if run.Locked {
		return apperror.WithContext(payroll.ErrRunExplicitlyLocked, "run_id", run.ID)
	}
	return nil
}

// CheckWindow rejects payslips created longer ago than the amendment window.
func (g *LockGuard) CheckWindow(p payroll.Payslip) error {
	age := g.now().Sub(p.CreatedAt)
	if age > g.window {
		return apperror.WithContext(payroll.ErrAmendmentWindowPassed,
			"payslip_id", p.ID,
			"days_since_creation", int(age.Hours()/24),
			"window_days", int(g.window.Hours()/24),
		)
	}
	return nil
}
