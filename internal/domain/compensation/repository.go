package compensation

import "context"

// RulesRepository returns the stored rules for a tenant, or ErrRulesNotFound.
type RulesRepository interface {
	GetByTenant(ctx context.Context, tenantID string) (CompensationRules, error)
	Upsert(ctx context.Context, rules CompensationRules) error
}

type SalaryTemplateRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (SalaryTemplate, error)
}
