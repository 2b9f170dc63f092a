package payroll

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	compsvc "github.com/cmlabs-hris/payroll-engine/internal/service/compensation"
	"github.com/shopspring/decimal"
)

// buildLines turns a breakdown into payslip lines. Zero amounts are omitted.
func buildLines(b compensation.SalaryBreakdown, postTax []payroll.PayslipLine) []payroll.PayslipLine {
	var lines []payroll.PayslipLine
	add := func(items []compensation.NamedAmount, category payroll.LineCategory) {
		for _, it := range items {
			if it.Amount.IsZero() {
				continue
			}
			lines = append(lines, payroll.PayslipLine{Name: it.Name, Category: category, Amount: it.Amount})
		}
	}

	add(b.Earnings(), payroll.LineEarning)
	add([]compensation.NamedAmount{
		{Name: compensation.ComponentEmployeePF, Amount: b.EmployeePF.Monthly},
		{Name: compensation.ComponentEmployeeESI, Amount: b.EmployeeESI.Monthly},
	}, payroll.LinePreTaxDeduction)
	add([]compensation.NamedAmount{
		{Name: compensation.ComponentProfessionalTax, Amount: b.ProfessionalTax.Monthly},
	}, payroll.LineTax)
	for _, l := range postTax {
		if l.Amount.IsZero() {
			continue
		}
		lines = append(lines, payroll.PayslipLine{Name: l.Name, Category: payroll.LinePostTaxDeduction, Amount: l.Amount})
	}
	add(b.EmployerLines(), payroll.LineEmployerContribution)
	return lines
}

// applyTotals recomputes the payslip totals from its lines.
func applyTotals(p *payroll.Payslip) {
	sums := map[payroll.LineCategory]decimal.Decimal{}
	for _, l := range p.Lines {
		sums[l.Category] = sums[l.Category].Add(l.Amount)
	}
	p.GrossEarnings = sums[payroll.LineEarning]
	p.PreTaxDeductions = sums[payroll.LinePreTaxDeduction]
	p.TaxDeductions = sums[payroll.LineTax]
	p.PostTaxDeductions = sums[payroll.LinePostTaxDeduction]
	p.EmployerContributions = sums[payroll.LineEmployerContribution]
	p.NetPay = p.GrossEarnings.Sub(p.PreTaxDeductions).Sub(p.TaxDeductions).Sub(p.PostTaxDeductions)
}

// proRataFor derives the payslip's payable days from its dates and LOP.
func proRataFor(p payroll.Payslip) (compensation.ProRata, error) {
	pr, err := compsvc.ForPeriod(p.PeriodStart, p.PeriodEnd, p.JoiningDate, p.ExitDate)
	if err != nil {
		return compensation.ProRata{}, err
	}
	return compsvc.WithLossOfPay(pr, p.Attendance.LOPDays), nil
}

// GeneratePayslip computes one employee's payslip for a run from the structure the
// revision ledger resolves for the period, then analyzes it for negative net pay.
// The run row stays locked until the payslip is written, and the revision is marked
// APPLIED in the same transaction as the payslip insert.
func (s *PayrollServiceImpl) GeneratePayslip(ctx context.Context, req payroll.GeneratePayslipRequest) (payroll.Payslip, payroll.DisputeAnalysis, error) {
	if err := req.Validate(); err != nil {
		return payroll.Payslip{}, payroll.DisputeAnalysis{}, err
	}

	var (
		created  payroll.Payslip
		analysis payroll.DisputeAnalysis
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.runRepo.GetForUpdate(ctx, req.TenantID, req.RunID)
		if err != nil {
			return err
		}
		if err := s.guard.CheckRun(run); err != nil {
			return err
		}
		if err := s.guard.CheckExplicitLock(run); err != nil {
			return err
		}

		resolved, err := s.revisions.ResolveForPeriod(ctx, req.TenantID, req.EmployeeID, run.PeriodStart, req.ActorID)
		if err != nil {
			return err
		}
		rules, err := s.compensation.RulesForTenant(ctx, req.TenantID)
		if err != nil {
			return err
		}

		joining, exit := req.Dates()
		slip := payroll.Payslip{
			TenantID:      req.TenantID,
			RunID:         run.ID,
			EmployeeID:    req.EmployeeID,
			EmployeeName:  req.EmployeeName,
			PeriodStart:   run.PeriodStart,
			PeriodEnd:     run.PeriodEnd,
			JoiningDate:   joining,
			ExitDate:      exit,
			RevisionID:    &resolved.Revision.ID,
			BaseBreakdown: resolved.Snapshot.Breakdown,
			Attendance:    req.Attendance,
			Bank:          req.Bank,
			Status:        payroll.PayslipStatusProcessed,
			CreatedAt:     s.now(),
		}

		pr, err := proRataFor(slip)
		if err != nil {
			return err
		}
		if slip.Attendance.TotalDays == 0 {
			slip.Attendance.TotalDays = pr.TotalDays
		}
		slip.Breakdown, err = compsvc.ProRateBreakdown(slip.BaseBreakdown, pr, rules.Resolve())
		if err != nil {
			return err
		}
		slip.Lines = buildLines(slip.Breakdown, req.PostTaxDeductions)
		applyTotals(&slip)

		analysis = Analyze(slip)
		slip = ApplyTransitions(slip, analysis.Transitions)

		created, err = s.payslipRepo.Create(ctx, slip)
		return err
	})
	if err != nil {
		return payroll.Payslip{}, payroll.DisputeAnalysis{}, err
	}

	analysis.PayslipID = created.ID
	for i := range analysis.Transitions {
		analysis.Transitions[i].PayslipID = created.ID
	}

	if analysis.HasNegativeNetPay {
		slog.Warn("Generated payslip disputed", "tenant_id", created.TenantID, "payslip_id", created.ID, "net_pay", created.NetPay.String(), "root_causes", analysis.RootCauses)
	} else {
		slog.Info("Generated payslip", "tenant_id", created.TenantID, "payslip_id", created.ID, "run_id", created.RunID)
	}
	return created, analysis, nil
}
