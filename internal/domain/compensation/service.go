package compensation

import "context"

type CompensationService interface {
	RulesForTenant(ctx context.Context, tenantID string) (CompensationRules, error)
	ComputeBreakdown(ctx context.Context, req ComputeBreakdownRequest) (SalaryBreakdown, error)
	ValidateManualEdits(ctx context.Context, req ManualEditRequest) (StatutoryAmounts, error)
	ProRate(ctx context.Context, req ProRateRequest) (ProRateResponse, error)
	BreakdownForTemplate(ctx context.Context, tenantID, templateID string) (SalaryTemplate, SalaryBreakdown, error)
}
