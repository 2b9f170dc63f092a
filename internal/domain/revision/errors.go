package revision

import "github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"

var (
	ErrRevisionNotFound   = apperror.New(apperror.KindNotFound, "salary revision not found")
	ErrNoAppliedSnapshot  = apperror.New(apperror.KindNotFound, "employee has no applied salary structure")
	ErrInvalidTransition  = apperror.New(apperror.KindInvalidState, "revision status transition is not allowed")
	ErrSnapshotImmutable  = apperror.New(apperror.KindInvalidState, "revision snapshots cannot be changed after submission, create a new revision")
	ErrOpenRevisionExists = apperror.New(apperror.KindInvalidState, "employee already has an open salary revision")
	ErrSelfApproval       = apperror.New(apperror.KindValidation, "a revision cannot be approved or rejected by its initiator")
	ErrRevisionConflict   = apperror.New(apperror.KindConflict, "revision was changed concurrently, retry")
	ErrRejectionReason    = apperror.New(apperror.KindValidation, "rejection reason is required")
)
