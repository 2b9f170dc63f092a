package compensation

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/rounding"
	"github.com/shopspring/decimal"
)

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inclusiveDays counts calendar days from..to, both ends included. Zero when to < from.
func inclusiveDays(from, to time.Time) int {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

func newProRata(worked, total int) compensation.ProRata {
	if worked < 0 {
		worked = 0
	}
	return compensation.ProRata{
		DaysWorked: worked,
		TotalDays:  total,
		Factor:     decimal.NewFromInt(int64(worked)).Div(decimal.NewFromInt(int64(total))),
	}
}

// ForPeriod prorates a period for an employee who may join or exit inside it.
// A nil date means the employee was employed across that edge.
func ForPeriod(periodStart, periodEnd time.Time, joiningDate, exitDate *time.Time) (compensation.ProRata, error) {
	start, end := dateOnly(periodStart), dateOnly(periodEnd)
	if end.Before(start) {
		return compensation.ProRata{}, apperror.WithContext(compensation.ErrInvalidPeriod,
			"period_start", start.Format(time.DateOnly), "period_end", end.Format(time.DateOnly))
	}
	total := inclusiveDays(start, end)

	from, to := start, end
	if joiningDate != nil && dateOnly(*joiningDate).After(from) {
		from = dateOnly(*joiningDate)
	}
	if exitDate != nil && dateOnly(*exitDate).Before(to) {
		to = dateOnly(*exitDate)
	}
	return newProRata(inclusiveDays(from, to), total), nil
}

// ForNewJoiner counts days from the joining date to period end. Joining on or before
// the period start is a full period.
func ForNewJoiner(joiningDate, periodStart, periodEnd time.Time) (compensation.ProRata, error) {
	return ForPeriod(periodStart, periodEnd, &joiningDate, nil)
}

// ForResignation counts days from period start to the exit date. Any positive unused
// leave balance is forfeited as loss of pay rather than encashed.
func ForResignation(exitDate, periodStart, periodEnd time.Time, unusedLeave decimal.Decimal) (compensation.ResignationProRata, error) {
	p, err := ForPeriod(periodStart, periodEnd, nil, &exitDate)
	if err != nil {
		return compensation.ResignationProRata{}, err
	}
	out := compensation.ResignationProRata{ProRata: p}
	if unusedLeave.IsPositive() {
		out.ForfeitedLeave = &compensation.ForfeitedLeave{
			Days:      unusedLeave,
			Treatment: compensation.LeaveTreatmentForfeitedAsLOP,
		}
	}
	return out, nil
}

// WithLossOfPay removes unpaid absence days from the worked days.
func WithLossOfPay(p compensation.ProRata, lopDays int) compensation.ProRata {
	if lopDays <= 0 {
		return p
	}
	return newProRata(p.DaysWorked-lopDays, p.TotalDays)
}

// ProRataAmount is monthly/totalDays*daysWorked rounded to 0.01.
func ProRataAmount(monthly decimal.Decimal, daysWorked, totalDays int) (decimal.Decimal, error) {
	if totalDays <= 0 || daysWorked < 0 || daysWorked > totalDays {
		return decimal.Zero, apperror.WithContext(compensation.ErrInvalidDayCount,
			"days_worked", daysWorked, "total_days", totalDays)
	}
	if daysWorked == totalDays {
		return rounding.Cents(monthly), nil
	}
	return rounding.Cents(monthly.Div(decimal.NewFromInt(int64(totalDays))).Mul(decimal.NewFromInt(int64(daysWorked)))), nil
}

// ProRateBreakdown scales every earning by p and recomputes statutory amounts on the
// prorated basic and gross. State-insurance eligibility follows the full-month solve.
// AnnualCTC, MonthlyCTC and FirstPassGross keep their solve-time values.
func ProRateBreakdown(b compensation.SalaryBreakdown, p compensation.ProRata, r compensation.ResolvedRules) (compensation.SalaryBreakdown, error) {
	if p.IsFull() {
		return b, nil
	}

	scale := func(amount decimal.Decimal) (decimal.Decimal, error) {
		return ProRataAmount(amount, p.DaysWorked, p.TotalDays)
	}

	earnings := []*compensation.ComponentAmount{&b.Basic, &b.HRA, &b.Conveyance, &b.Medical, &b.SpecialAllowance}
	gross := decimal.Zero
	for _, e := range earnings {
		v, err := scale(e.Monthly)
		if err != nil {
			return compensation.SalaryBreakdown{}, err
		}
		*e = compensation.Monthly(v)
		gross = gross.Add(v)
	}

	pf := ProvidentFund(PFWageBasis(b.Basic.Monthly, r), r)
	esi := compensation.ContributionPair{Employee: decimal.Zero, Employer: decimal.Zero}
	if b.ESIEligible && gross.IsPositive() {
		esi = compensation.ContributionPair{
			Employee: rounding.CeilWhole(percentOf(gross, r.ESI.EmployeeRate)),
			Employer: rounding.CeilWhole(percentOf(gross, r.ESI.EmployerRate)),
		}
	}
	pt := decimal.Zero
	if gross.IsPositive() {
		pt = ProfessionalTax(gross, r)
	}

	deductions := pf.Employee.Add(esi.Employee).Add(pt)
	employerCost := pf.Employer.Add(esi.Employer)
	reconstructed := gross.Add(employerCost)
	expected := rounding.Cents(b.MonthlyCTC.Mul(p.Factor))

	b.EmployeePF = compensation.Monthly(pf.Employee)
	b.EmployerPF = compensation.Monthly(pf.Employer)
	b.EmployeeESI = compensation.Monthly(esi.Employee)
	b.EmployerESI = compensation.Monthly(esi.Employer)
	b.ProfessionalTax = compensation.Monthly(pt)
	b.GrossEarnings = compensation.Monthly(gross)
	b.FinalGross = gross
	b.TotalDeductions = compensation.Monthly(deductions)
	b.NetPay = compensation.Monthly(gross.Sub(deductions))
	b.EmployerContributions = compensation.Monthly(employerCost)
	b.ReconstructedCTC = compensation.Monthly(reconstructed)
	b.ReconciliationDrift = reconstructed.Sub(expected)
	return b, nil
}
