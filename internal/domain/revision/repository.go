package revision

import (
	"context"
	"time"
)

// Repository is append-only for snapshot data. No method writes old/new snapshot
// contents of a revision once it has left DRAFT.
type Repository interface {
	// Create fails with ErrRevisionConflict when the sequence is already taken.
	Create(ctx context.Context, rev SalaryRevision) (SalaryRevision, error)
	GetByID(ctx context.Context, tenantID, id string) (SalaryRevision, error)
	ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]SalaryRevision, error)
	LatestApplied(ctx context.Context, tenantID, employeeID string) (SalaryRevision, error)
	// LatestApprovedEffective returns the newest APPROVED revision with effective_from <= asOf.
	LatestApprovedEffective(ctx context.Context, tenantID, employeeID string, asOf time.Time) (SalaryRevision, error)
	FindOpen(ctx context.Context, tenantID, employeeID string) (SalaryRevision, error)
	NextSequence(ctx context.Context, tenantID, employeeID string) (int64, error)
	// ReplaceDraft rewrites the proposed snapshot of a revision still in DRAFT.
	ReplaceDraft(ctx context.Context, rev SalaryRevision) error
	// UpdateStatus writes status, approval, audit, lock flags and digest, only if the
	// stored status is still from. Otherwise ErrRevisionConflict.
	UpdateStatus(ctx context.Context, rev SalaryRevision, from RevisionStatus) error
}
