package payroll

import "github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"

var (
	ErrRunNotFound           = apperror.New(apperror.KindNotFound, "payroll run not found")
	ErrPayslipNotFound       = apperror.New(apperror.KindNotFound, "payslip not found")
	ErrRunAlreadyPaid        = apperror.New(apperror.KindLocked, "payroll run is already paid")
	ErrRunAlreadyApproved    = apperror.New(apperror.KindLocked, "payroll run is already approved")
	ErrRunExplicitlyLocked   = apperror.New(apperror.KindLocked, "payroll run is explicitly locked")
	ErrAmendmentWindowPassed = apperror.New(apperror.KindLocked, "amendment window passed")
	ErrPayslipFinalized      = apperror.New(apperror.KindInvalidState, "payslip is finalized")
	ErrInvalidRunTransition  = apperror.New(apperror.KindInvalidState, "payroll run status change not allowed")
	ErrRunAlreadyExists      = apperror.New(apperror.KindConflict, "payroll run for this period already exists")
	ErrPayslipAlreadyExists  = apperror.New(apperror.KindConflict, "employee already has a payslip in this run")
	ErrAmendmentConflict     = apperror.New(apperror.KindConflict, "payslip amendment was created concurrently, retry")
)
