package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const amendmentColumns = `
	id, tenant_id, original_payslip_id, version, reason, changes,
	recalculated_values, status, requested_by, created_at
`

type amendmentRepository struct {
	db *database.DB
}

func NewAmendmentRepository(db *database.DB) payroll.AmendmentRepository {
	return &amendmentRepository{db: db}
}

func scanAmendment(row pgx.Row) (payroll.AmendedPayslip, error) {
	var a payroll.AmendedPayslip
	var changes, recalculated []byte
	err := row.Scan(
		&a.ID, &a.TenantID, &a.OriginalPayslipID, &a.Version, &a.Reason, &changes,
		&recalculated, &a.Status, &a.RequestedBy, &a.CreatedAt,
	)
	if err != nil {
		return payroll.AmendedPayslip{}, err
	}
	if err := json.Unmarshal(changes, &a.Changes); err != nil {
		return payroll.AmendedPayslip{}, fmt.Errorf("decode changes: %w", err)
	}
	if len(recalculated) > 0 {
		a.RecalculatedValues = &compensation.SalaryBreakdown{}
		if err := json.Unmarshal(recalculated, a.RecalculatedValues); err != nil {
			return payroll.AmendedPayslip{}, fmt.Errorf("decode recalculated values: %w", err)
		}
	}
	return a, nil
}

func (r *amendmentRepository) Create(ctx context.Context, a payroll.AmendedPayslip) (payroll.AmendedPayslip, error) {
	q := GetQuerier(ctx, r.db)

	if a.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.AmendedPayslip{}, fmt.Errorf("failed to generate amendment id: %w", err)
		}
		a.ID = id.String()
	}

	changes, _ := json.Marshal(a.Changes)
	recalculated, err := nullableJSON(a.RecalculatedValues, a.RecalculatedValues != nil)
	if err != nil {
		return payroll.AmendedPayslip{}, fmt.Errorf("failed to encode recalculated values: %w", err)
	}

	query := `
		INSERT INTO payslip_amendments (
			id, tenant_id, original_payslip_id, version, reason, changes,
			recalculated_values, status, requested_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + amendmentColumns

	created, err := scanAmendment(q.QueryRow(ctx, query,
		a.ID, a.TenantID, a.OriginalPayslipID, a.Version, a.Reason, changes,
		recalculated, string(a.Status), a.RequestedBy, a.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payslip_amendment_version") {
			return payroll.AmendedPayslip{}, apperror.WithContext(payroll.ErrAmendmentConflict,
				"payslip_id", a.OriginalPayslipID, "version", a.Version)
		}
		return payroll.AmendedPayslip{}, fmt.Errorf("failed to create payslip amendment: %w", err)
	}
	return created, nil
}

func (r *amendmentRepository) LatestVersion(ctx context.Context, tenantID, payslipID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var version int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM payslip_amendments
		WHERE tenant_id = $1 AND original_payslip_id = $2
	`, tenantID, payslipID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest amendment version: %w", err)
	}
	return version, nil
}

func (r *amendmentRepository) ListByPayslip(ctx context.Context, tenantID, payslipID string) ([]payroll.AmendedPayslip, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+amendmentColumns+`
		FROM payslip_amendments
		WHERE tenant_id = $1 AND original_payslip_id = $2
		ORDER BY version
	`, tenantID, payslipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslip amendments: %w", err)
	}
	defer rows.Close()

	var out []payroll.AmendedPayslip
	for rows.Next() {
		a, err := scanAmendment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip amendment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type auditLogRepository struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) payroll.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Append only inserts; the audit log has no update or delete path.
func (r *auditLogRepository) Append(ctx context.Context, entry payroll.AuditEntry) error {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate audit entry id: %w", err)
		}
		entry.ID = id.String()
	}

	before, err := nullableJSON(entry.Before, entry.Before != nil)
	if err != nil {
		return fmt.Errorf("failed to encode audit before state: %w", err)
	}
	after, err := nullableJSON(entry.After, entry.After != nil)
	if err != nil {
		return fmt.Errorf("failed to encode audit after state: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO payroll_audit_log (
			id, tenant_id, entity_type, entity_id, action, actor_id, reason, before, after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.TenantID, entry.EntityType, entry.EntityID, entry.Action,
		entry.ActorID, entry.Reason, before, after, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}
