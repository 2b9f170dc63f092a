package compensation

import "github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"

var (
	ErrInvalidCTC             = apperror.New(apperror.KindValidation, "annual CTC must be a positive amount")
	ErrRulesNotFound          = apperror.New(apperror.KindNotFound, "compensation rules not found")
	ErrTemplateNotFound       = apperror.New(apperror.KindNotFound, "salary template not found")
	ErrReconciliationMismatch = apperror.New(apperror.KindReconciliation, "reconstructed CTC does not reconcile with declared CTC")
	ErrInvalidPeriod          = apperror.New(apperror.KindValidation, "period end must not be before period start")
	ErrInvalidDayCount        = apperror.New(apperror.KindValidation, "days worked must be between 0 and total days")
)
