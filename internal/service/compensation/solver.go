package compensation

import (
	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/rounding"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest accepted gap between reconstructed and declared monthly CTC.
var DefaultTolerance = decimal.NewFromInt(1)

var (
	one    = decimal.NewFromInt(1)
	twelve = decimal.NewFromInt(12)
)

// Solver derives a salary structure from annual CTC. It holds no state and is safe for concurrent use.
type Solver struct {
	tolerance decimal.Decimal
}

func NewSolver(tolerance decimal.Decimal) *Solver {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Solver{tolerance: tolerance}
}

// Solve validates rules, applies defaults and solves.
func (s *Solver) Solve(annualCTC decimal.Decimal, rules compensation.CompensationRules) (compensation.SalaryBreakdown, error) {
	if !annualCTC.IsPositive() {
		return compensation.SalaryBreakdown{}, apperror.WithContext(compensation.ErrInvalidCTC, "annual_ctc", annualCTC.String())
	}
	if err := rules.Validate(); err != nil {
		return compensation.SalaryBreakdown{}, err
	}
	return s.SolveResolved(annualCTC, rules.Resolve())
}

// SolveResolved runs the two-pass solve.
//
// The first pass fills the special allowance with whatever CTC is left after known
// earnings and employer PF. If that gross is within the state-insurance ceiling, the
// balance is re-solved once so employer ESI also fits inside CTC:
//
//	targetGross = (monthlyCTC - employerPF) / (1 + employerESIRate)
//
// Eligibility is not re-checked against the re-solved gross. The special allowance
// is floored to cents so reconstructed CTC never overshoots by a full unit.
func (s *Solver) SolveResolved(annualCTC decimal.Decimal, r compensation.ResolvedRules) (compensation.SalaryBreakdown, error) {
	if !annualCTC.IsPositive() {
		return compensation.SalaryBreakdown{}, apperror.WithContext(compensation.ErrInvalidCTC, "annual_ctc", annualCTC.String())
	}

	monthlyCTC := annualCTC.Div(twelve)
	basic := rounding.Cents(percentOf(annualCTC, r.BasicPercent).Div(twelve))
	hra := rounding.Cents(percentOf(basic, r.HRAPercentOfBasic))
	conveyance := allowance(r.Conveyance, basic, r.Rounding)
	medical := allowance(r.Medical, basic, r.Rounding)

	pf := ProvidentFund(PFWageBasis(basic, r), r)

	known := basic.Add(hra).Add(conveyance).Add(medical)
	special := nonNegative(monthlyCTC.Sub(known).Sub(pf.Employer)).RoundFloor(2)
	firstPassGross := known.Add(special)

	gross := firstPassGross
	eligible := ESIApplies(firstPassGross, r)
	if eligible {
		target := monthlyCTC.Sub(pf.Employer).Div(one.Add(r.ESI.EmployerRate.Div(hundred)))
		special = nonNegative(target.Sub(known)).RoundFloor(2)
		gross = known.Add(special)
	}

	esi := compensation.ContributionPair{Employee: decimal.Zero, Employer: decimal.Zero}
	if eligible {
		esi = StateInsuranceContribution(gross, r)
	}
	pt := ProfessionalTax(gross, r)

	deductions := pf.Employee.Add(esi.Employee).Add(pt)
	employerCost := pf.Employer.Add(esi.Employer)
	reconstructed := gross.Add(employerCost)
	drift := reconstructed.Sub(monthlyCTC)

	b := compensation.SalaryBreakdown{
		AnnualCTC:             annualCTC,
		MonthlyCTC:            rounding.Cents(monthlyCTC),
		Basic:                 compensation.Monthly(basic),
		HRA:                   compensation.Monthly(hra),
		Conveyance:            compensation.Monthly(conveyance),
		Medical:               compensation.Monthly(medical),
		SpecialAllowance:      compensation.Monthly(special),
		EmployeePF:            compensation.Monthly(pf.Employee),
		EmployeeESI:           compensation.Monthly(esi.Employee),
		ProfessionalTax:       compensation.Monthly(pt),
		EmployerPF:            compensation.Monthly(pf.Employer),
		EmployerESI:           compensation.Monthly(esi.Employer),
		GrossEarnings:         compensation.Monthly(gross),
		TotalDeductions:       compensation.Monthly(deductions),
		NetPay:                compensation.Monthly(gross.Sub(deductions)),
		EmployerContributions: compensation.Monthly(employerCost),
		ReconstructedCTC:      compensation.Monthly(reconstructed),
		FirstPassGross:        firstPassGross,
		FinalGross:            gross,
		ESIEligible:           eligible,
		ReconciliationDrift:   rounding.Cents(drift),
	}

	if drift.Abs().GreaterThan(s.tolerance) {
		return compensation.SalaryBreakdown{}, apperror.WithContext(compensation.ErrReconciliationMismatch,
			"expected_monthly_ctc", b.MonthlyCTC.String(),
			"reconstructed_monthly_ctc", reconstructed.String(),
			"drift", b.ReconciliationDrift.String(),
		)
	}
	return b, nil
}

// ValidateAgainstManualEdits recomputes only statutory amounts for a hand-edited structure.
func (s *Solver) ValidateAgainstManualEdits(earnings compensation.ManualEarnings, rules compensation.CompensationRules) (compensation.StatutoryAmounts, error) {
	if err := rules.Validate(); err != nil {
		return compensation.StatutoryAmounts{}, err
	}
	return StatutoryFor(earnings, rules.Resolve()), nil
}

func allowance(p compensation.AllowancePolicy, basic decimal.Decimal, policy rounding.Policy) decimal.Decimal {
	if p.Mode == compensation.AllowancePercentOfBasic {
		return policy.Apply(percentOf(basic, p.Value))
	}
	return policy.Apply(p.Value)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
