package revision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const lockScope = "revision"

type RevisionServiceImpl struct {
	repo   revision.Repository
	locker lock.Locker
	now    func() time.Time
}

func NewRevisionService(repo revision.Repository, locker lock.Locker) revision.RevisionService {
	return &RevisionServiceImpl{
		repo:   repo,
		locker: locker,
		now:    time.Now,
	}
}

// withEmployeeLock serializes ledger writes for one employee across instances.
func (s *RevisionServiceImpl) withEmployeeLock(ctx context.Context, tenantID, employeeID string, fn func() error) error {
	key := lock.EmployeeKey(lockScope, tenantID, employeeID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to release revision lock", "key", key, "error", err)
		}
	}()
	return fn()
}

func (s *RevisionServiceImpl) CreateDraft(ctx context.Context, req revision.CreateDraftRequest) (revision.SalaryRevision, error) {
	if err := req.Validate(); err != nil {
		return revision.SalaryRevision{}, err
	}

	var created revision.SalaryRevision
	err := s.withEmployeeLock(ctx, req.TenantID, req.EmployeeID, func() error {
		open, err := s.repo.FindOpen(ctx, req.TenantID, req.EmployeeID)
		if err == nil {
			return apperror.WithContext(revision.ErrOpenRevisionExists, "revision_id", open.ID, "status", string(open.Status))
		}
		if !errors.Is(err, revision.ErrRevisionNotFound) {
			return err
		}

		var old *revision.Snapshot
		oldCTC := decimal.Zero
		current, err := s.repo.LatestApplied(ctx, req.TenantID, req.EmployeeID)
		switch {
		case err == nil:
			old = &revision.Snapshot{Breakdown: current.NewSnapshot.Breakdown, Locked: true}
			oldCTC = current.NewSnapshot.Breakdown.AnnualCTC
		case errors.Is(err, revision.ErrRevisionNotFound):
		default:
			return err
		}

		seq, err := s.repo.NextSequence(ctx, req.TenantID, req.EmployeeID)
		if err != nil {
			return err
		}

		now := s.now()
		created, err = s.repo.Create(ctx, revision.SalaryRevision{
			TenantID:         req.TenantID,
			EmployeeID:       req.EmployeeID,
			Sequence:         seq,
			Type:             req.Type,
			EffectiveFrom:    req.EffectiveDate(),
			OldSnapshot:      old,
			NewSnapshot:      revision.Snapshot{Breakdown: req.NewBreakdown},
			ChangeSummary:    revision.NewChangeSummary(oldCTC, req.NewBreakdown.AnnualCTC, req.Reason),
			PromotionDetails: req.PromotionDetails,
			Status:           revision.StatusDraft,
			Audit:            revision.Audit{CreatedBy: req.ActorID, CreatedAt: now},
		})
		return err
	})
	if err != nil {
		return revision.SalaryRevision{}, err
	}

	slog.Info("Salary revision drafted", "tenant_id", created.TenantID, "employee_id", created.EmployeeID, "revision_id", created.ID, "sequence", created.Sequence)
	return created, nil
}

// UpdateDraft replaces the proposed breakdown. Only a DRAFT may change; any later
// status is immutable and a correction needs a new revision.
func (s *RevisionServiceImpl) UpdateDraft(ctx context.Context, req revision.UpdateDraftRequest) (revision.SalaryRevision, error) {
	if err := req.Validate(); err != nil {
		return revision.SalaryRevision{}, err
	}
	rev, err := s.repo.GetByID(ctx, req.TenantID, req.RevisionID)
	if err != nil {
		return revision.SalaryRevision{}, err
	}

	err = s.withEmployeeLock(ctx, rev.TenantID, rev.EmployeeID, func() error {
		rev, err = s.repo.GetByID(ctx, req.TenantID, req.RevisionID)
		if err != nil {
			return err
		}
		if rev.Status != revision.StatusDraft {
			return apperror.WithContext(revision.ErrSnapshotImmutable, "revision_id", rev.ID, "status", string(rev.Status))
		}

		reason := rev.ChangeSummary.Reason
		if req.Reason != nil {
			reason = *req.Reason
		}
		now := s.now()
		rev.NewSnapshot = revision.Snapshot{Breakdown: req.NewBreakdown}
		rev.ChangeSummary = revision.NewChangeSummary(rev.ChangeSummary.OldCTC, req.NewBreakdown.AnnualCTC, reason)
		rev.Audit.ModifiedBy = &req.ActorID
		rev.Audit.ModifiedAt = &now
		return s.repo.ReplaceDraft(ctx, rev)
	})
	if err != nil {
		return revision.SalaryRevision{}, err
	}
	return rev, nil
}

func (s *RevisionServiceImpl) SubmitForApproval(ctx context.Context, tenantID, revisionID, actorID string) (revision.SalaryRevision, error) {
	return s.transition(ctx, tenantID, revisionID, revision.StatusPendingApproval, func(rev *revision.SalaryRevision, now time.Time) error {
		if err := rev.Seal(); err != nil {
			return err
		}
		rev.Audit.SubmittedBy = &actorID
		rev.Audit.SubmittedAt = &now
		rev.Audit.ModifiedBy = &actorID
		rev.Audit.ModifiedAt = &now
		return nil
	})
}

func (s *RevisionServiceImpl) Approve(ctx context.Context, tenantID, revisionID, approverID string) (revision.SalaryRevision, error) {
	return s.transition(ctx, tenantID, revisionID, revision.StatusApproved, func(rev *revision.SalaryRevision, now time.Time) error {
		if approverID == "" || approverID == rev.Audit.CreatedBy {
			return apperror.WithContext(revision.ErrSelfApproval, "revision_id", rev.ID)
		}
		rev.Approval.ApprovedBy = &approverID
		rev.Approval.ApprovedAt = &now
		rev.Audit.ModifiedBy = &approverID
		rev.Audit.ModifiedAt = &now
		return nil
	})
}

func (s *RevisionServiceImpl) Reject(ctx context.Context, req revision.RejectRequest) (revision.SalaryRevision, error) {
	if validator.IsEmpty(req.Reason) {
		return revision.SalaryRevision{}, revision.ErrRejectionReason
	}
	return s.transition(ctx, req.TenantID, req.RevisionID, revision.StatusRejected, func(rev *revision.SalaryRevision, now time.Time) error {
		if req.ApproverID == "" || req.ApproverID == rev.Audit.CreatedBy {
			return apperror.WithContext(revision.ErrSelfApproval, "revision_id", rev.ID)
		}
		rev.Approval.RejectedBy = &req.ApproverID
		rev.Approval.RejectedAt = &now
		rev.Approval.RejectionReason = &req.Reason
		rev.Audit.ModifiedBy = &req.ApproverID
		rev.Audit.ModifiedAt = &now
		return nil
	})
}

// transition moves a revision to next after checking the state machine and the
// seal. mutate may only touch status, approval, audit and sealing fields.
func (s *RevisionServiceImpl) transition(ctx context.Context, tenantID, revisionID string, next revision.RevisionStatus, mutate func(*revision.SalaryRevision, time.Time) error) (revision.SalaryRevision, error) {
	rev, err := s.repo.GetByID(ctx, tenantID, revisionID)
	if err != nil {
		return revision.SalaryRevision{}, err
	}

	err = s.withEmployeeLock(ctx, rev.TenantID, rev.EmployeeID, func() error {
		rev, err = s.repo.GetByID(ctx, tenantID, revisionID)
		if err != nil {
			return err
		}
		return s.applyTransition(ctx, &rev, next, mutate)
	})
	if err != nil {
		return revision.SalaryRevision{}, err
	}

	slog.Info("Salary revision status changed", "tenant_id", rev.TenantID, "revision_id", rev.ID, "status", string(rev.Status))
	return rev, nil
}

// applyTransition expects the employee lock to be held.
func (s *RevisionServiceImpl) applyTransition(ctx context.Context, rev *revision.SalaryRevision, next revision.RevisionStatus, mutate func(*revision.SalaryRevision, time.Time) error) error {
	from := rev.Status
	if !from.CanTransitionTo(next) {
		return apperror.WithContext(revision.ErrInvalidTransition, "revision_id", rev.ID, "from", string(from), "to", string(next))
	}
	if err := s.verify(*rev); err != nil {
		return err
	}

	if err := mutate(rev, s.now()); err != nil {
		return err
	}
	rev.Status = next
	return s.repo.UpdateStatus(ctx, *rev, from)
}

func (s *RevisionServiceImpl) verify(rev revision.SalaryRevision) error {
	ok, err := rev.VerifySealed()
	if err != nil {
		return err
	}
	if !ok {
		slog.Error("Sealed revision snapshot does not match its digest", "tenant_id", rev.TenantID, "revision_id", rev.ID)
		return apperror.WithContext(revision.ErrSnapshotImmutable, "revision_id", rev.ID, "status", string(rev.Status))
	}
	return nil
}

// ResolveForPeriod returns the structure payroll must use for a period starting at
// periodStart. An APPROVED revision effective on or before periodStart is applied
// by this call; otherwise the latest APPLIED revision is used unchanged.
func (s *RevisionServiceImpl) ResolveForPeriod(ctx context.Context, tenantID, employeeID string, periodStart time.Time, actorID string) (revision.ResolvedSnapshot, error) {
	var out revision.ResolvedSnapshot
	err := s.withEmployeeLock(ctx, tenantID, employeeID, func() error {
		approved, err := s.repo.LatestApprovedEffective(ctx, tenantID, employeeID, periodStart)
		switch {
		case err == nil:
			err = s.applyTransition(ctx, &approved, revision.StatusApplied, func(rev *revision.SalaryRevision, now time.Time) error {
				start := periodStart
				rev.Audit.AppliedBy = &actorID
				rev.Audit.AppliedAt = &now
				rev.Audit.AppliedPeriodStart = &start
				return nil
			})
			if err != nil {
				return err
			}
			out = revision.ResolvedSnapshot{Snapshot: approved.NewSnapshot, Revision: approved, Applied: true}
			return nil
		case errors.Is(err, revision.ErrRevisionNotFound):
		default:
			return err
		}

		applied, err := s.repo.LatestApplied(ctx, tenantID, employeeID)
		if errors.Is(err, revision.ErrRevisionNotFound) {
			return apperror.WithContext(revision.ErrNoAppliedSnapshot, "employee_id", employeeID)
		}
		if err != nil {
			return err
		}
		if err := s.verify(applied); err != nil {
			return err
		}
		out = revision.ResolvedSnapshot{Snapshot: applied.NewSnapshot, Revision: applied}
		return nil
	})
	if err != nil {
		return revision.ResolvedSnapshot{}, err
	}
	if out.Applied {
		slog.Info("Salary revision applied", "tenant_id", tenantID, "employee_id", employeeID, "revision_id", out.Revision.ID, "period_start", periodStart.Format(time.DateOnly))
	}
	return out, nil
}

func (s *RevisionServiceImpl) GetRevision(ctx context.Context, tenantID, revisionID string) (revision.SalaryRevision, error) {
	return s.repo.GetByID(ctx, tenantID, revisionID)
}

func (s *RevisionServiceImpl) ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]revision.SalaryRevision, error) {
	return s.repo.ListByEmployee(ctx, tenantID, employeeID)
}
