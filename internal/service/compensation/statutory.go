package compensation

import (
	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/rounding"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// PFWageBasis caps basic at the PF wage ceiling when capping is enabled.
func PFWageBasis(basic decimal.Decimal, r compensation.ResolvedRules) decimal.Decimal {
	if r.PF.CapEnabled && basic.GreaterThan(r.PF.WageCeiling) {
		return r.PF.WageCeiling
	}
	return basic
}

// ProvidentFund splits PF on wageBasis, rounded by the tenant policy.
func ProvidentFund(wageBasis decimal.Decimal, r compensation.ResolvedRules) compensation.ContributionPair {
	if !r.PF.Enabled || !wageBasis.IsPositive() {
		return compensation.ContributionPair{Employee: decimal.Zero, Employer: decimal.Zero}
	}
	return compensation.ContributionPair{
		Employee: r.Rounding.Apply(percentOf(wageBasis, r.PF.EmployeeRate)),
		Employer: r.Rounding.Apply(percentOf(wageBasis, r.PF.EmployerRate)),
	}
}

// ESIApplies is strictly gross <= ceiling. There is no taper above it.
func ESIApplies(gross decimal.Decimal, r compensation.ResolvedRules) bool {
	return r.ESI.Enabled && gross.IsPositive() && gross.LessThanOrEqual(r.ESI.WageCeiling)
}

// StateInsurance returns both shares rounded up, or zero for both when gross is over the ceiling.
func StateInsurance(gross decimal.Decimal, r compensation.ResolvedRules) compensation.ContributionPair {
	if !ESIApplies(gross, r) {
		return compensation.ContributionPair{Employee: decimal.Zero, Employer: decimal.Zero}
	}
	return StateInsuranceContribution(gross, r)
}

// StateInsuranceContribution applies both ESI rates to gross without checking eligibility.
func StateInsuranceContribution(gross decimal.Decimal, r compensation.ResolvedRules) compensation.ContributionPair {
	return compensation.ContributionPair{
		Employee: rounding.CeilWhole(percentOf(gross, r.ESI.EmployeeRate)),
		Employer: rounding.CeilWhole(percentOf(gross, r.ESI.EmployerRate)),
	}
}

// ProfessionalTax uses the state slab table when one is configured, else the flat amount.
// Income outside every slab pays nothing.
func ProfessionalTax(income decimal.Decimal, r compensation.ResolvedRules) decimal.Decimal {
	if !r.PT.Enabled {
		return decimal.Zero
	}
	if len(r.PT.Slabs) == 0 {
		return r.Rounding.Apply(r.PT.FlatAmount)
	}
	for _, slab := range r.PT.Slabs {
		if slab.Contains(income) {
			return r.Rounding.Apply(slab.Amount)
		}
	}
	return decimal.Zero
}

// StatutoryFor recomputes PF, ESI and PT from a basic and gross pair.
func StatutoryFor(earnings compensation.ManualEarnings, r compensation.ResolvedRules) compensation.StatutoryAmounts {
	basis := PFWageBasis(earnings.Basic, r)
	pf := ProvidentFund(basis, r)
	esi := StateInsurance(earnings.Gross, r)
	pt := ProfessionalTax(earnings.Gross, r)

	return compensation.StatutoryAmounts{
		PFWageBasis:     basis,
		ProvidentFund:   pf,
		ESIEligible:     ESIApplies(earnings.Gross, r),
		StateInsurance:  esi,
		ProfessionalTax: pt,
		TotalDeductions: pf.Employee.Add(esi.Employee).Add(pt),
	}
}
