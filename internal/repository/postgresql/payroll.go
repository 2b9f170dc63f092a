package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ========== RUNS ==========

const runColumns = `
	id, tenant_id, period_start, period_end, status, locked, locked_by, locked_at,
	approved_by, approved_at, paid_by, paid_at, created_at, updated_at
`

type runRepository struct {
	db *database.DB
}

func NewRunRepository(db *database.DB) payroll.RunRepository {
	return &runRepository{db: db}
}

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var run payroll.PayrollRun
	err := row.Scan(
		&run.ID, &run.TenantID, &run.PeriodStart, &run.PeriodEnd, &run.Status, &run.Locked, &run.LockedBy, &run.LockedAt,
		&run.ApprovedBy, &run.ApprovedAt, &run.PaidBy, &run.PaidAt, &run.CreatedAt, &run.UpdatedAt,
	)
	return run, err
}

func (r *runRepository) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.PayrollRun{}, fmt.Errorf("failed to generate run id: %w", err)
		}
		run.ID = id.String()
	}
	if run.Status == "" {
		run.Status = payroll.RunStatusDraft
	}

	query := `
		INSERT INTO payroll_runs (id, tenant_id, period_start, period_end, status, locked)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.ID, run.TenantID, run.PeriodStart, run.PeriodEnd, string(run.Status), run.Locked,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payroll_run_period") {
			return payroll.PayrollRun{}, payroll.ErrRunAlreadyExists
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return created, nil
}

func (r *runRepository) get(ctx context.Context, query, tenantID, id string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	run, err := scanRun(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *runRepository) GetByID(ctx context.Context, tenantID, id string) (payroll.PayrollRun, error) {
	return r.get(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id = $1 AND tenant_id = $2`, tenantID, id)
}

func (r *runRepository) GetForUpdate(ctx context.Context, tenantID, id string) (payroll.PayrollRun, error) {
	return r.get(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, tenantID, id)
}

func (r *runRepository) UpdateStatus(ctx context.Context, tenantID, id string, status payroll.RunStatus, actorID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs
		SET status = $1,
			approved_by = CASE WHEN $1 = 'APPROVED' THEN $2 ELSE approved_by END,
			approved_at = CASE WHEN $1 = 'APPROVED' THEN NOW() ELSE approved_at END,
			paid_by = CASE WHEN $1 = 'PAID' THEN $2 ELSE paid_by END,
			paid_at = CASE WHEN $1 = 'PAID' THEN NOW() ELSE paid_at END,
			updated_at = NOW()
		WHERE id = $3 AND tenant_id = $4
	`
	tag, err := q.Exec(ctx, query, string(status), actorID, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update payroll run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	if status == payroll.RunStatusPaid {
		if _, err := q.Exec(ctx, `
			UPDATE payslips SET status = $1, updated_at = NOW()
			WHERE run_id = $2 AND tenant_id = $3 AND status = $4
		`, string(payroll.PayslipStatusFinalized), id, tenantID, string(payroll.PayslipStatusProcessed)); err != nil {
			return fmt.Errorf("failed to finalize payslips: %w", err)
		}
	}
	return nil
}

func (r *runRepository) SetLocked(ctx context.Context, tenantID, id string, locked bool, actorID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs
		SET locked = $1,
			locked_by = CASE WHEN $1 THEN $2 ELSE NULL END,
			locked_at = CASE WHEN $1 THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $3 AND tenant_id = $4
	`
	tag, err := q.Exec(ctx, query, locked, actorID, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to set payroll run lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}
	return nil
}

// ========== PAYSLIPS ==========

const payslipColumns = `
	id, tenant_id, run_id, employee_id, employee_name, period_start, period_end,
	joining_date, exit_date, revision_id, base_breakdown, breakdown, lines,
	gross_earnings, pre_tax_deductions, tax_deductions, post_tax_deductions,
	employer_contributions, net_pay, attendance, bank, status,
	requires_manual_review, needs_recalculation, created_at, updated_at
`

type payslipRepository struct {
	db *database.DB
}

func NewPayslipRepository(db *database.DB) payroll.PayslipRepository {
	return &payslipRepository{db: db}
}

func scanPayslip(row pgx.Row) (payroll.Payslip, error) {
	var p payroll.Payslip
	var base, breakdown, lines, attendance, bank []byte
	err := row.Scan(
		&p.ID, &p.TenantID, &p.RunID, &p.EmployeeID, &p.EmployeeName, &p.PeriodStart, &p.PeriodEnd,
		&p.JoiningDate, &p.ExitDate, &p.RevisionID, &base, &breakdown, &lines,
		&p.GrossEarnings, &p.PreTaxDeductions, &p.TaxDeductions, &p.PostTaxDeductions,
		&p.EmployerContributions, &p.NetPay, &attendance, &bank, &p.Status,
		&p.RequiresManualReview, &p.NeedsRecalculation, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return payroll.Payslip{}, err
	}

	docs := []struct {
		raw []byte
		dst any
	}{
		{base, &p.BaseBreakdown},
		{breakdown, &p.Breakdown},
		{lines, &p.Lines},
		{attendance, &p.Attendance},
		{bank, &p.Bank},
	}
	for _, d := range docs {
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return payroll.Payslip{}, fmt.Errorf("decode payslip %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func (r *payslipRepository) Create(ctx context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.Payslip{}, fmt.Errorf("failed to generate payslip id: %w", err)
		}
		p.ID = id.String()
	}

	base, _ := json.Marshal(p.BaseBreakdown)
	breakdown, _ := json.Marshal(p.Breakdown)
	lines, _ := json.Marshal(p.Lines)
	attendance, _ := json.Marshal(p.Attendance)
	bank, _ := json.Marshal(p.Bank)

	query := `
		INSERT INTO payslips (
			id, tenant_id, run_id, employee_id, employee_name, period_start, period_end,
			joining_date, exit_date, revision_id, base_breakdown, breakdown, lines,
			gross_earnings, pre_tax_deductions, tax_deductions, post_tax_deductions,
			employer_contributions, net_pay, attendance, bank, status,
			requires_manual_review, needs_recalculation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING ` + payslipColumns

	created, err := scanPayslip(q.QueryRow(ctx, query,
		p.ID, p.TenantID, p.RunID, p.EmployeeID, p.EmployeeName, p.PeriodStart, p.PeriodEnd,
		p.JoiningDate, p.ExitDate, p.RevisionID, base, breakdown, lines,
		p.GrossEarnings, p.PreTaxDeductions, p.TaxDeductions, p.PostTaxDeductions,
		p.EmployerContributions, p.NetPay, attendance, bank, string(p.Status),
		p.RequiresManualReview, p.NeedsRecalculation, p.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payslip_run_employee") {
			return payroll.Payslip{}, apperror.WithContext(payroll.ErrPayslipAlreadyExists, "payroll_run_id", p.RunID, "employee_id", p.EmployeeID)
		}
		return payroll.Payslip{}, fmt.Errorf("failed to create payslip: %w", err)
	}
	return created, nil
}

func (r *payslipRepository) GetByID(ctx context.Context, tenantID, id string) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE id = $1 AND tenant_id = $2`

	p, err := scanPayslip(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}
	return p, nil
}

func (r *payslipRepository) UpdateAttendance(ctx context.Context, tenantID, id string, attendance payroll.AttendanceSummary, needsRecalculation bool) error {
	q := GetQuerier(ctx, r.db)

	raw, _ := json.Marshal(attendance)
	tag, err := q.Exec(ctx, `
		UPDATE payslips SET attendance = $1, needs_recalculation = $2, updated_at = NOW()
		WHERE id = $3 AND tenant_id = $4
	`, raw, needsRecalculation, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update payslip attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayslipNotFound
	}
	return nil
}

func (r *payslipRepository) UpdateReviewState(ctx context.Context, tenantID, id string, status payroll.PayslipStatus, requiresManualReview bool) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payslips SET status = $1, requires_manual_review = $2, updated_at = NOW()
		WHERE id = $3 AND tenant_id = $4
	`, string(status), requiresManualReview, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update payslip review state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayslipNotFound
	}
	return nil
}

func (r *payslipRepository) ReplaceComputation(ctx context.Context, p payroll.Payslip) error {
	q := GetQuerier(ctx, r.db)

	breakdown, _ := json.Marshal(p.Breakdown)
	lines, _ := json.Marshal(p.Lines)

	query := `
		UPDATE payslips
		SET breakdown = $1, lines = $2,
			gross_earnings = $3, pre_tax_deductions = $4, tax_deductions = $5,
			post_tax_deductions = $6, employer_contributions = $7, net_pay = $8,
			status = $9, requires_manual_review = $10, needs_recalculation = FALSE,
			updated_at = NOW()
		WHERE id = $11 AND tenant_id = $12
	`
	tag, err := q.Exec(ctx, query,
		breakdown, lines,
		p.GrossEarnings, p.PreTaxDeductions, p.TaxDeductions,
		p.PostTaxDeductions, p.EmployerContributions, p.NetPay,
		string(p.Status), p.RequiresManualReview,
		p.ID, p.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace payslip computation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayslipNotFound
	}
	return nil
}

func (r *payslipRepository) list(ctx context.Context, query string, args ...any) ([]payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	var out []payroll.Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *payslipRepository) ListByRun(ctx context.Context, tenantID, runID string) ([]payroll.Payslip, error) {
	return r.list(ctx, `SELECT `+payslipColumns+`
		FROM payslips
		WHERE tenant_id = $1 AND run_id = $2
		ORDER BY employee_name, employee_id
	`, tenantID, runID)
}

func (r *payslipRepository) ListNeedingRecalculation(ctx context.Context, limit int) ([]payroll.Payslip, error) {
	return r.list(ctx, `SELECT `+payslipColumns+`
		FROM payslips
		WHERE needs_recalculation
		ORDER BY updated_at
		LIMIT $1
	`, limit)
}
