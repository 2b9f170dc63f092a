package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type rulesRepository struct {
	db *database.DB
}

func NewRulesRepository(db *database.DB) compensation.RulesRepository {
	return &rulesRepository{db: db}
}

func (r *rulesRepository) GetByTenant(ctx context.Context, tenantID string) (compensation.CompensationRules, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT rules FROM compensation_rules WHERE tenant_id = $1`

	var raw []byte
	if err := q.QueryRow(ctx, query, tenantID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return compensation.CompensationRules{}, compensation.ErrRulesNotFound
		}
		return compensation.CompensationRules{}, fmt.Errorf("failed to get compensation rules: %w", err)
	}

	var rules compensation.CompensationRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return compensation.CompensationRules{}, fmt.Errorf("failed to decode compensation rules: %w", err)
	}
	rules.TenantID = tenantID
	return rules, nil
}

func (r *rulesRepository) Upsert(ctx context.Context, rules compensation.CompensationRules) error {
	q := GetQuerier(ctx, r.db)

	raw, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode compensation rules: %w", err)
	}

	query := `
		INSERT INTO compensation_rules (tenant_id, rules)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET
			rules = EXCLUDED.rules,
			updated_at = NOW()
	`
	if _, err := q.Exec(ctx, query, rules.TenantID, raw); err != nil {
		return fmt.Errorf("failed to upsert compensation rules: %w", err)
	}
	return nil
}

type salaryTemplateRepository struct {
	db *database.DB
}

func NewSalaryTemplateRepository(db *database.DB) compensation.SalaryTemplateRepository {
	return &salaryTemplateRepository{db: db}
}

func (r *salaryTemplateRepository) GetByID(ctx context.Context, tenantID, id string) (compensation.SalaryTemplate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, annual_ctc, overrides, created_at, updated_at
		FROM salary_templates
		WHERE id = $1 AND tenant_id = $2
	`

	var t compensation.SalaryTemplate
	var overrides []byte
	err := q.QueryRow(ctx, query, id, tenantID).Scan(
		&t.ID, &t.TenantID, &t.Name, &t.AnnualCTC, &overrides, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return compensation.SalaryTemplate{}, compensation.ErrTemplateNotFound
		}
		return compensation.SalaryTemplate{}, fmt.Errorf("failed to get salary template: %w", err)
	}

	if len(overrides) > 0 && string(overrides) != "null" {
		var o compensation.CompensationRules
		if err := json.Unmarshal(overrides, &o); err != nil {
			return compensation.SalaryTemplate{}, fmt.Errorf("failed to decode template overrides: %w", err)
		}
		t.Overrides = &o
	}
	return t, nil
}
