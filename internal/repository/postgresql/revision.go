package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const revisionColumns = `
	id, tenant_id, employee_id, sequence, type, effective_from,
	old_snapshot, new_snapshot, snapshot_digest, change_summary, promotion_details,
	approval, status, audit
`

type revisionRepository struct {
	db *database.DB
}

func NewRevisionRepository(db *database.DB) revision.Repository {
	return &revisionRepository{db: db}
}

func scanRevision(row pgx.Row) (revision.SalaryRevision, error) {
	var rev revision.SalaryRevision
	var oldSnap, newSnap, summary, promotion, approval, audit []byte
	err := row.Scan(
		&rev.ID, &rev.TenantID, &rev.EmployeeID, &rev.Sequence, &rev.Type, &rev.EffectiveFrom,
		&oldSnap, &newSnap, &rev.SnapshotDigest, &summary, &promotion,
		&approval, &rev.Status, &audit,
	)
	if err != nil {
		return revision.SalaryRevision{}, err
	}

	if len(oldSnap) > 0 {
		rev.OldSnapshot = &revision.Snapshot{}
		if err := json.Unmarshal(oldSnap, rev.OldSnapshot); err != nil {
			return revision.SalaryRevision{}, fmt.Errorf("decode old snapshot: %w", err)
		}
	}
	if err := json.Unmarshal(newSnap, &rev.NewSnapshot); err != nil {
		return revision.SalaryRevision{}, fmt.Errorf("decode new snapshot: %w", err)
	}
	if len(promotion) > 0 {
		rev.PromotionDetails = &revision.PromotionDetails{}
		if err := json.Unmarshal(promotion, rev.PromotionDetails); err != nil {
			return revision.SalaryRevision{}, fmt.Errorf("decode promotion details: %w", err)
		}
	}
	if err := json.Unmarshal(summary, &rev.ChangeSummary); err != nil {
		return revision.SalaryRevision{}, fmt.Errorf("decode change summary: %w", err)
	}
	if err := json.Unmarshal(approval, &rev.Approval); err != nil {
		return revision.SalaryRevision{}, fmt.Errorf("decode approval: %w", err)
	}
	if err := json.Unmarshal(audit, &rev.Audit); err != nil {
		return revision.SalaryRevision{}, fmt.Errorf("decode audit: %w", err)
	}
	return rev, nil
}

func nullableJSON(v any, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}

func (r *revisionRepository) Create(ctx context.Context, rev revision.SalaryRevision) (revision.SalaryRevision, error) {
	q := GetQuerier(ctx, r.db)

	if rev.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return revision.SalaryRevision{}, fmt.Errorf("failed to generate revision id: %w", err)
		}
		rev.ID = id.String()
	}

	oldSnap, err := nullableJSON(rev.OldSnapshot, rev.OldSnapshot != nil)
	if err != nil {
		return revision.SalaryRevision{}, fmt.Errorf("failed to encode old snapshot: %w", err)
	}
	promotion, err := nullableJSON(rev.PromotionDetails, rev.PromotionDetails != nil)
	if err != nil {
		return revision.SalaryRevision{}, fmt.Errorf("failed to encode promotion details: %w", err)
	}
	newSnap, _ := json.Marshal(rev.NewSnapshot)
	summary, _ := json.Marshal(rev.ChangeSummary)
	approval, _ := json.Marshal(rev.Approval)
	audit, _ := json.Marshal(rev.Audit)

	query := `
		INSERT INTO salary_revisions (
			id, tenant_id, employee_id, sequence, type, effective_from,
			old_snapshot, new_snapshot, snapshot_digest, change_summary, promotion_details,
			approval, status, audit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + revisionColumns

	created, err := scanRevision(q.QueryRow(ctx, query,
		rev.ID, rev.TenantID, rev.EmployeeID, rev.Sequence, string(rev.Type), rev.EffectiveFrom,
		oldSnap, newSnap, rev.SnapshotDigest, summary, promotion,
		approval, string(rev.Status), audit,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_salary_revision_sequence") {
			return revision.SalaryRevision{}, apperror.WithContext(revision.ErrRevisionConflict,
				"employee_id", rev.EmployeeID, "sequence", rev.Sequence)
		}
		return revision.SalaryRevision{}, fmt.Errorf("failed to create salary revision: %w", err)
	}
	return created, nil
}

func (r *revisionRepository) GetByID(ctx context.Context, tenantID, id string) (revision.SalaryRevision, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + revisionColumns + ` FROM salary_revisions WHERE id = $1 AND tenant_id = $2`

	rev, err := scanRevision(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return revision.SalaryRevision{}, revision.ErrRevisionNotFound
		}
		return revision.SalaryRevision{}, fmt.Errorf("failed to get salary revision: %w", err)
	}
	return rev, nil
}

func (r *revisionRepository) ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]revision.SalaryRevision, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + revisionColumns + `
		FROM salary_revisions
		WHERE tenant_id = $1 AND employee_id = $2
		ORDER BY sequence DESC
	`

	rows, err := q.Query(ctx, query, tenantID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary revisions: %w", err)
	}
	defer rows.Close()

	var out []revision.SalaryRevision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary revision: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

func (r *revisionRepository) one(ctx context.Context, query string, args ...any) (revision.SalaryRevision, error) {
	q := GetQuerier(ctx, r.db)

	rev, err := scanRevision(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return revision.SalaryRevision{}, revision.ErrRevisionNotFound
		}
		return revision.SalaryRevision{}, fmt.Errorf("failed to get salary revision: %w", err)
	}
	return rev, nil
}

func (r *revisionRepository) LatestApplied(ctx context.Context, tenantID, employeeID string) (revision.SalaryRevision, error) {
	return r.one(ctx, `SELECT `+revisionColumns+`
		FROM salary_revisions
		WHERE tenant_id = $1 AND employee_id = $2 AND status = $3
		ORDER BY sequence DESC
		LIMIT 1
	`, tenantID, employeeID, string(revision.StatusApplied))
}

func (r *revisionRepository) LatestApprovedEffective(ctx context.Context, tenantID, employeeID string, asOf time.Time) (revision.SalaryRevision, error) {
	return r.one(ctx, `SELECT `+revisionColumns+`
		FROM salary_revisions
		WHERE tenant_id = $1 AND employee_id = $2 AND status = $3 AND effective_from <= $4
		ORDER BY effective_from DESC, sequence DESC
		LIMIT 1
	`, tenantID, employeeID, string(revision.StatusApproved), asOf)
}

func (r *revisionRepository) FindOpen(ctx context.Context, tenantID, employeeID string) (revision.SalaryRevision, error) {
	return r.one(ctx, `SELECT `+revisionColumns+`
		FROM salary_revisions
		WHERE tenant_id = $1 AND employee_id = $2 AND status IN ($3, $4, $5)
		ORDER BY sequence DESC
		LIMIT 1
	`, tenantID, employeeID,
		string(revision.StatusDraft), string(revision.StatusPendingApproval), string(revision.StatusApproved))
}

func (r *revisionRepository) NextSequence(ctx context.Context, tenantID, employeeID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT COALESCE(MAX(sequence), 0) + 1 FROM salary_revisions WHERE tenant_id = $1 AND employee_id = $2`

	var next int64
	if err := q.QueryRow(ctx, query, tenantID, employeeID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next revision sequence: %w", err)
	}
	return next, nil
}

func (r *revisionRepository) ReplaceDraft(ctx context.Context, rev revision.SalaryRevision) error {
	q := GetQuerier(ctx, r.db)

	newSnap, _ := json.Marshal(rev.NewSnapshot)
	summary, _ := json.Marshal(rev.ChangeSummary)
	audit, _ := json.Marshal(rev.Audit)
	promotion, err := nullableJSON(rev.PromotionDetails, rev.PromotionDetails != nil)
	if err != nil {
		return fmt.Errorf("failed to encode promotion details: %w", err)
	}

	query := `
		UPDATE salary_revisions
		SET new_snapshot = $1, change_summary = $2, promotion_details = $3,
			effective_from = $4, audit = $5, updated_at = NOW()
		WHERE id = $6 AND tenant_id = $7 AND status = $8
	`
	tag, err := q.Exec(ctx, query,
		newSnap, summary, promotion, rev.EffectiveFrom, audit,
		rev.ID, rev.TenantID, string(revision.StatusDraft),
	)
	if err != nil {
		return fmt.Errorf("failed to update draft revision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.WithContext(revision.ErrSnapshotImmutable, "revision_id", rev.ID)
	}
	return nil
}

// UpdateStatus never touches breakdown contents. Lock flags live inside the
// snapshot documents, so they are set with jsonb_set.
func (r *revisionRepository) UpdateStatus(ctx context.Context, rev revision.SalaryRevision, from revision.RevisionStatus) error {
	q := GetQuerier(ctx, r.db)

	approval, _ := json.Marshal(rev.Approval)
	audit, _ := json.Marshal(rev.Audit)

	query := `
		UPDATE salary_revisions
		SET status = $1, approval = $2, audit = $3, snapshot_digest = $4,
			new_snapshot = jsonb_set(new_snapshot, '{locked}', to_jsonb($5::boolean)),
			old_snapshot = CASE WHEN old_snapshot IS NULL THEN NULL
				ELSE jsonb_set(old_snapshot, '{locked}', to_jsonb($6::boolean)) END,
			updated_at = NOW()
		WHERE id = $7 AND tenant_id = $8 AND status = $9
	`
	oldLocked := rev.OldSnapshot != nil && rev.OldSnapshot.Locked
	tag, err := q.Exec(ctx, query,
		string(rev.Status), approval, audit, rev.SnapshotDigest,
		rev.NewSnapshot.Locked, oldLocked,
		rev.ID, rev.TenantID, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update revision status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.WithContext(revision.ErrRevisionConflict, "revision_id", rev.ID, "expected_status", string(from))
	}
	return nil
}
