package payroll

import (
	"fmt"
	"io"
	"sort"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const unassignedBank = "UNASSIGNED"

// Summarize rolls payslips up for accounting and bank transfer. A malformed payslip
// is counted as failed and contributes nothing; it never aborts the rollup.
// Disputed payslips are totalled but left out of bank transfers.
func Summarize(run payroll.PayrollRun, payslips []payroll.Payslip) payroll.PayrollSummary {
	s := payroll.PayrollSummary{
		RunID:                      run.ID,
		TenantID:                   run.TenantID,
		PeriodStart:                run.PeriodStart,
		PeriodEnd:                  run.PeriodEnd,
		Status:                     run.Status,
		TotalGross:                 decimal.Zero,
		TotalPreTaxDeductions:      decimal.Zero,
		TotalTax:                   decimal.Zero,
		TotalPostTaxDeductions:     decimal.Zero,
		TotalNetPay:                decimal.Zero,
		TotalEmployerContributions: decimal.Zero,
		Earnings:                   map[string]decimal.Decimal{},
		Deductions:                 map[string]decimal.Decimal{},
		EmployerContributions:      map[string]decimal.Decimal{},
		BankTransfers:              []payroll.BankTransfer{},
	}
	banks := map[string]*payroll.BankTransfer{}

	for _, p := range payslips {
		if p.Status == payroll.PayslipStatusFailed {
			s.Failed++
			s.Failures = append(s.Failures, payroll.SummaryFailure{PayslipID: p.ID, Reason: "payslip computation failed"})
			continue
		}
		if err := checkPayslip(p); err != nil {
			s.Failed++
			s.Failures = append(s.Failures, payroll.SummaryFailure{PayslipID: p.ID, Reason: err.Error()})
			continue
		}

		s.Processed++
		s.TotalGross = s.TotalGross.Add(p.GrossEarnings)
		s.TotalPreTaxDeductions = s.TotalPreTaxDeductions.Add(p.PreTaxDeductions)
		s.TotalTax = s.TotalTax.Add(p.TaxDeductions)
		s.TotalPostTaxDeductions = s.TotalPostTaxDeductions.Add(p.PostTaxDeductions)
		s.TotalNetPay = s.TotalNetPay.Add(p.NetPay)
		s.TotalEmployerContributions = s.TotalEmployerContributions.Add(p.EmployerContributions)

		for _, l := range p.Lines {
			switch l.Category {
			case payroll.LineEarning:
				addTo(s.Earnings, l)
			case payroll.LineEmployerContribution:
				addTo(s.EmployerContributions, l)
			default:
				addTo(s.Deductions, l)
			}
		}

		if p.Status == payroll.PayslipStatusDisputed {
			s.Disputed++
			continue
		}
		if !p.NetPay.IsPositive() {
			continue
		}
		name := p.Bank.BankName
		if name == "" {
			name = unassignedBank
		}
		bt, ok := banks[name]
		if !ok {
			bt = &payroll.BankTransfer{BankName: name, Amount: decimal.Zero}
			banks[name] = bt
		}
		bt.Employees++
		bt.Amount = bt.Amount.Add(p.NetPay)
	}

	for _, bt := range banks {
		s.BankTransfers = append(s.BankTransfers, *bt)
	}
	sort.Slice(s.BankTransfers, func(i, j int) bool { return s.BankTransfers[i].BankName < s.BankTransfers[j].BankName })
	return s
}

func addTo(m map[string]decimal.Decimal, l payroll.PayslipLine) {
	if cur, ok := m[l.Name]; ok {
		m[l.Name] = cur.Add(l.Amount)
		return
	}
	m[l.Name] = l.Amount
}

// checkPayslip verifies lines are well formed and agree with the stored totals.
func checkPayslip(p payroll.Payslip) error {
	sums := map[payroll.LineCategory]decimal.Decimal{}
	for i, l := range p.Lines {
		if l.Name == "" {
			return fmt.Errorf("line %d has no name", i)
		}
		if !l.Category.Valid() {
			return fmt.Errorf("line %q has unknown category %q", l.Name, l.Category)
		}
		sums[l.Category] = sums[l.Category].Add(l.Amount)
	}

	checks := []struct {
		name  string
		lines decimal.Decimal
		total decimal.Decimal
	}{
		{"gross earnings", sums[payroll.LineEarning], p.GrossEarnings},
		{"pre-tax deductions", sums[payroll.LinePreTaxDeduction], p.PreTaxDeductions},
		{"tax", sums[payroll.LineTax], p.TaxDeductions},
		{"post-tax deductions", sums[payroll.LinePostTaxDeduction], p.PostTaxDeductions},
		{"employer contributions", sums[payroll.LineEmployerContribution], p.EmployerContributions},
	}
	for _, c := range checks {
		if !c.lines.Equal(c.total) {
			return fmt.Errorf("%s lines sum to %s but total is %s", c.name, c.lines, c.total)
		}
	}

	net := p.GrossEarnings.Sub(p.PreTaxDeductions).Sub(p.TaxDeductions).Sub(p.PostTaxDeductions)
	if !net.Equal(p.NetPay) {
		return fmt.Errorf("net pay %s does not match gross less deductions %s", p.NetPay, net)
	}
	return nil
}

const (
	transferSheet = "Bank Transfers"
	summarySheet  = "Summary"
)

// WriteBankTransferSheet writes the per-bank transfer totals and run totals as XLSX.
func WriteBankTransferSheet(s payroll.PayrollSummary, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transferSheet); err != nil {
		return err
	}
	header := []interface{}{"Bank", "Employees", "Amount"}
	if err := f.SetSheetRow(transferSheet, "A1", &header); err != nil {
		return err
	}
	row := 2
	for _, bt := range s.BankTransfers {
		values := []interface{}{bt.BankName, bt.Employees, bt.Amount.StringFixed(2)}
		if err := f.SetSheetRow(transferSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Run", s.RunID},
		{"Period", fmt.Sprintf("%s to %s", s.PeriodStart.Format("2006-01-02"), s.PeriodEnd.Format("2006-01-02"))},
		{"Processed", s.Processed},
		{"Failed", s.Failed},
		{"Disputed", s.Disputed},
		{"Gross", s.TotalGross.StringFixed(2)},
		{"Pre-tax deductions", s.TotalPreTaxDeductions.StringFixed(2)},
		{"Tax", s.TotalTax.StringFixed(2)},
		{"Post-tax deductions", s.TotalPostTaxDeductions.StringFixed(2)},
		{"Net pay", s.TotalNetPay.StringFixed(2)},
		{"Employer contributions", s.TotalEmployerContributions.StringFixed(2)},
	}
	for i := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}
