package compensation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

type CompensationServiceImpl struct {
	rulesRepo    compensation.RulesRepository
	templateRepo compensation.SalaryTemplateRepository
	solver       *Solver
	ptSlabs      map[string][]compensation.ProfessionalTaxSlab
}

func NewCompensationService(
	rulesRepo compensation.RulesRepository,
	templateRepo compensation.SalaryTemplateRepository,
	solver *Solver,
	ptSlabs map[string][]compensation.ProfessionalTaxSlab,
) compensation.CompensationService {
	return &CompensationServiceImpl{
		rulesRepo:    rulesRepo,
		templateRepo: templateRepo,
		solver:       solver,
		ptSlabs:      ptSlabs,
	}
}

// RulesForTenant returns stored rules, seeding the statutory defaults for a tenant
// that has none. A state with no tenant-specific slabs uses the bundled table.
func (s *CompensationServiceImpl) RulesForTenant(ctx context.Context, tenantID string) (compensation.CompensationRules, error) {
	rules, err := s.rulesRepo.GetByTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, compensation.ErrRulesNotFound) {
			return compensation.CompensationRules{}, err
		}
		rules = fixtures.DefaultCompensationRules(tenantID)
		if err := s.rulesRepo.Upsert(ctx, rules); err != nil {
			slog.Warn("Failed to seed default compensation rules", "tenant_id", tenantID, "error", err)
		} else {
			slog.Info("Seeded default compensation rules", "tenant_id", tenantID)
		}
	}
	return s.withStateSlabs(rules), nil
}

func (s *CompensationServiceImpl) withStateSlabs(rules compensation.CompensationRules) compensation.CompensationRules {
	if rules.PTState == "" || len(rules.PTSlabs[rules.PTState]) > 0 {
		return rules
	}
	slabs, ok := s.ptSlabs[rules.PTState]
	if !ok {
		return rules
	}
	merged := make(map[string][]compensation.ProfessionalTaxSlab, len(rules.PTSlabs)+1)
	for state, v := range rules.PTSlabs {
		merged[state] = v
	}
	merged[rules.PTState] = slabs
	rules.PTSlabs = merged
	return rules
}

func (s *CompensationServiceImpl) effectiveRules(ctx context.Context, tenantID string, overrides *compensation.CompensationRules) (compensation.CompensationRules, error) {
	rules, err := s.RulesForTenant(ctx, tenantID)
	if err != nil {
		return compensation.CompensationRules{}, err
	}
	if overrides != nil {
		rules = s.withStateSlabs(rules.Merge(*overrides))
	}
	return rules, nil
}

func (s *CompensationServiceImpl) ComputeBreakdown(ctx context.Context, req compensation.ComputeBreakdownRequest) (compensation.SalaryBreakdown, error) {
	if err := req.Validate(); err != nil {
		return compensation.SalaryBreakdown{}, err
	}
	rules, err := s.effectiveRules(ctx, req.TenantID, req.Overrides)
	if err != nil {
		return compensation.SalaryBreakdown{}, err
	}

	b, err := s.solver.Solve(req.AnnualCTC, rules)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindReconciliation {
			slog.Error("Breakdown failed to reconcile", "tenant_id", req.TenantID, "annual_ctc", req.AnnualCTC.String(), "error", err)
		}
		return compensation.SalaryBreakdown{}, err
	}
	return b, nil
}

func (s *CompensationServiceImpl) ValidateManualEdits(ctx context.Context, req compensation.ManualEditRequest) (compensation.StatutoryAmounts, error) {
	if err := req.Validate(); err != nil {
		return compensation.StatutoryAmounts{}, err
	}
	rules, err := s.RulesForTenant(ctx, req.TenantID)
	if err != nil {
		return compensation.StatutoryAmounts{}, err
	}
	return s.solver.ValidateAgainstManualEdits(req.Earnings, rules)
}

func (s *CompensationServiceImpl) ProRate(ctx context.Context, req compensation.ProRateRequest) (compensation.ProRateResponse, error) {
	if err := req.Validate(); err != nil {
		return compensation.ProRateResponse{}, err
	}
	periodStart, periodEnd, joining, exit := req.Dates()

	rules, err := s.RulesForTenant(ctx, req.TenantID)
	if err != nil {
		return compensation.ProRateResponse{}, err
	}
	full, err := s.solver.Solve(req.AnnualCTC, rules)
	if err != nil {
		return compensation.ProRateResponse{}, err
	}

	var resp compensation.ProRateResponse
	if exit != nil {
		r, err := ForResignation(*exit, periodStart, periodEnd, req.UnusedLeave)
		if err != nil {
			return compensation.ProRateResponse{}, err
		}
		resp.ForfeitedLeave = r.ForfeitedLeave
	}
	p, err := ForPeriod(periodStart, periodEnd, joining, exit)
	if err != nil {
		return compensation.ProRateResponse{}, err
	}
	resp.ProRata = WithLossOfPay(p, req.LossOfPayDays)

	resp.Breakdown, err = ProRateBreakdown(full, resp.ProRata, rules.Resolve())
	if err != nil {
		return compensation.ProRateResponse{}, err
	}
	return resp, nil
}

func (s *CompensationServiceImpl) BreakdownForTemplate(ctx context.Context, tenantID, templateID string) (compensation.SalaryTemplate, compensation.SalaryBreakdown, error) {
	tmpl, err := s.templateRepo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return compensation.SalaryTemplate{}, compensation.SalaryBreakdown{}, err
	}
	rules, err := s.effectiveRules(ctx, tenantID, tmpl.Overrides)
	if err != nil {
		return compensation.SalaryTemplate{}, compensation.SalaryBreakdown{}, err
	}
	b, err := s.solver.Solve(tmpl.AnnualCTC, rules)
	if err != nil {
		return compensation.SalaryTemplate{}, compensation.SalaryBreakdown{}, err
	}
	return tmpl, b, nil
}
