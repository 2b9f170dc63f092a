package revision

import (
	"context"
	"time"
)

type RevisionService interface {
	CreateDraft(ctx context.Context, req CreateDraftRequest) (SalaryRevision, error)
	UpdateDraft(ctx context.Context, req UpdateDraftRequest) (SalaryRevision, error)
	SubmitForApproval(ctx context.Context, tenantID, revisionID, actorID string) (SalaryRevision, error)
	Approve(ctx context.Context, tenantID, revisionID, approverID string) (SalaryRevision, error)
	Reject(ctx context.Context, req RejectRequest) (SalaryRevision, error)
	ResolveForPeriod(ctx context.Context, tenantID, employeeID string, periodStart time.Time, actorID string) (ResolvedSnapshot, error)
	GetRevision(ctx context.Context, tenantID, revisionID string) (SalaryRevision, error)
	ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]SalaryRevision, error)
}
