package payroll

import (
	"bytes"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func summaryRun() payroll.PayrollRun {
	return payroll.PayrollRun{
		ID:          "run-1",
		TenantID:    "tenant-1",
		PeriodStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:      payroll.RunStatusProcessed,
	}
}

func bankedSlip(id, bank, gross, pf, pt string) payroll.Payslip {
	p := payroll.Payslip{
		ID:     id,
		Status: payroll.PayslipStatusProcessed,
		Bank:   payroll.BankDetails{BankName: bank},
		Lines: []payroll.PayslipLine{
			{Name: "BASIC", Category: payroll.LineEarning, Amount: d(gross)},
			{Name: "EMPLOYEE_PF", Category: payroll.LinePreTaxDeduction, Amount: d(pf)},
			{Name: "PROFESSIONAL_TAX", Category: payroll.LineTax, Amount: d(pt)},
			{Name: "EMPLOYER_PF", Category: payroll.LineEmployerContribution, Amount: d(pf)},
		},
	}
	applyTotals(&p)
	return p
}

func TestSummarize_MalformedPayslipOnlyDropsItself(t *testing.T) {
	good1 := bankedSlip("slip-1", "HDFC", "30000", "1800", "200")
	good2 := bankedSlip("slip-2", "HDFC", "20000", "1800", "200")
	good3 := bankedSlip("slip-3", "", "15000", "1800", "0")

	broken := bankedSlip("slip-4", "SBI", "50000", "1800", "200")
	broken.GrossEarnings = d("99999")

	got := Summarize(summaryRun(), []payroll.Payslip{good1, broken, good2, good3})

	assert.Equal(t, 3, got.Processed)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "slip-4", got.Failures[0].PayslipID)

	assertDec(t, "65000", got.TotalGross, "gross")
	assertDec(t, "5400", got.TotalPreTaxDeductions, "pre-tax")
	assertDec(t, "400", got.TotalTax, "tax")
	assertDec(t, "59200", got.TotalNetPay, "net")
	assertDec(t, "5400", got.TotalEmployerContributions, "employer")
	assertDec(t, "65000", got.Earnings["BASIC"], "basic")
	assertDec(t, "5400", got.Deductions["EMPLOYEE_PF"], "pf")
	assertDec(t, "5400", got.EmployerContributions["EMPLOYER_PF"], "employer pf")

	require.Len(t, got.BankTransfers, 2)
	assert.Equal(t, "HDFC", got.BankTransfers[0].BankName)
	assert.Equal(t, 2, got.BankTransfers[0].Employees)
	assertDec(t, "46000", got.BankTransfers[0].Amount, "hdfc")
	assert.Equal(t, unassignedBank, got.BankTransfers[1].BankName)
	assertDec(t, "13200", got.BankTransfers[1].Amount, "unassigned")
}

func TestSummarize_UnknownLineCategoryIsMalformed(t *testing.T) {
	p := bankedSlip("slip-1", "HDFC", "30000", "1800", "200")
	p.Lines = append(p.Lines, payroll.PayslipLine{Name: "BONUS", Category: "OTHER", Amount: d("0")})

	got := Summarize(summaryRun(), []payroll.Payslip{p})

	assert.Equal(t, 0, got.Processed)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.TotalGross.IsZero())
	assert.Empty(t, got.BankTransfers)
}

func TestSummarize_DisputedAndFailedPayslips(t *testing.T) {
	disputed := bankedSlip("slip-1", "HDFC", "30000", "1800", "200")
	disputed.Status = payroll.PayslipStatusDisputed
	failed := bankedSlip("slip-2", "HDFC", "30000", "1800", "200")
	failed.Status = payroll.PayslipStatusFailed

	got := Summarize(summaryRun(), []payroll.Payslip{disputed, failed})

	assert.Equal(t, 1, got.Processed)
	assert.Equal(t, 1, got.Disputed)
	assert.Equal(t, 1, got.Failed)
	assertDec(t, "28000", got.TotalNetPay, "net")
	assert.Empty(t, got.BankTransfers)
}

func TestWriteBankTransferSheet(t *testing.T) {
	summary := Summarize(summaryRun(), []payroll.Payslip{
		bankedSlip("slip-1", "HDFC", "30000", "1800", "200"),
		bankedSlip("slip-2", "ICICI", "20000", "1800", "200"),
	})

	var buf bytes.Buffer
	require.NoError(t, WriteBankTransferSheet(summary, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(transferSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Bank", "Employees", "Amount"},
		{"HDFC", "1", "28000.00"},
		{"ICICI", "1", "18000.00"},
	}, rows)

	rows, err = f.GetRows(summarySheet)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Run", "run-1"}, rows[0])
	assert.Equal(t, []string{"Period", "2026-06-01 to 2026-06-30"}, rows[1])
	assert.Equal(t, []string{"Net pay", "46000.00"}, rows[9])
}
