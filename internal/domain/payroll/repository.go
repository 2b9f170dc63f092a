package payroll

import "context"

// All methods include tenantID to prevent cross-tenant access.
type RunRepository interface {
	Create(ctx context.Context, run PayrollRun) (PayrollRun, error)
	GetByID(ctx context.Context, tenantID, id string) (PayrollRun, error)
	// GetForUpdate row-locks the run; call it inside a transaction.
	GetForUpdate(ctx context.Context, tenantID, id string) (PayrollRun, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status RunStatus, actorID string) error
	SetLocked(ctx context.Context, tenantID, id string, locked bool, actorID string) error
}

// PayslipRepository never deletes payslips.
type PayslipRepository interface {
	Create(ctx context.Context, p Payslip) (Payslip, error)
	GetByID(ctx context.Context, tenantID, id string) (Payslip, error)
	UpdateAttendance(ctx context.Context, tenantID, id string, attendance AttendanceSummary, needsRecalculation bool) error
	UpdateReviewState(ctx context.Context, tenantID, id string, status PayslipStatus, requiresManualReview bool) error
	// ReplaceComputation stores a recalculated breakdown, lines and totals and clears needs_recalculation.
	ReplaceComputation(ctx context.Context, p Payslip) error
	ListByRun(ctx context.Context, tenantID, runID string) ([]Payslip, error)
	ListNeedingRecalculation(ctx context.Context, limit int) ([]Payslip, error)
}

type AmendmentRepository interface {
	// Create fails with ErrAmendmentConflict when the version is already taken.
	Create(ctx context.Context, a AmendedPayslip) (AmendedPayslip, error)
	LatestVersion(ctx context.Context, tenantID, payslipID string) (int, error)
	ListByPayslip(ctx context.Context, tenantID, payslipID string) ([]AmendedPayslip, error)
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// Transactor runs fn in one database transaction carried by the context passed to fn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
