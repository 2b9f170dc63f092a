package payroll

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

func slipWithTotals(gross, preTax, tax, postTax string) payroll.Payslip {
	p := payroll.Payslip{
		ID:          "slip-1",
		PeriodStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:      payroll.PayslipStatusProcessed,
		Lines: []payroll.PayslipLine{
			{Name: "BASIC", Category: payroll.LineEarning, Amount: d(gross)},
			{Name: "EMPLOYEE_PF", Category: payroll.LinePreTaxDeduction, Amount: d(preTax)},
			{Name: "PROFESSIONAL_TAX", Category: payroll.LineTax, Amount: d(tax)},
			{Name: "LOAN", Category: payroll.LinePostTaxDeduction, Amount: d(postTax)},
		},
	}
	applyTotals(&p)
	return p
}

func TestAnalyze_HighPostTaxDeductions(t *testing.T) {
	// net -500 with post-tax deductions at 35% of gross
	p := slipWithTotals("10000", "6800", "200", "3500")
	require.True(t, p.NetPay.Equal(d("-500")))

	got := Analyze(p)

	assert.True(t, got.HasNegativeNetPay)
	assert.Equal(t, []payroll.RootCause{payroll.CauseHighPostTaxDeductions}, got.RootCauses)
	assert.Len(t, got.Recommendations, 1)
	require.Len(t, got.Transitions, 1)
	assert.Equal(t, payroll.StateTransition{
		PayslipID:            "slip-1",
		From:                 payroll.PayslipStatusProcessed,
		To:                   payroll.PayslipStatusDisputed,
		RequiresManualReview: true,
	}, got.Transitions[0])

	// input untouched
	assert.Equal(t, payroll.PayslipStatusProcessed, p.Status)
	assert.False(t, p.RequiresManualReview)
}

func TestAnalyze_ReportsEveryMatchingCause(t *testing.T) {
	p := slipWithTotals("4000", "2500", "0", "2000")
	p.Attendance = payroll.AttendanceSummary{TotalDays: 30, PresentDays: 10, LOPDays: 20}

	got := Analyze(p)

	assert.Equal(t, []payroll.RootCause{
		payroll.CauseHighPostTaxDeductions,
		payroll.CauseLowGrossEarnings,
		payroll.CauseExcessiveLOP,
	}, got.RootCauses)
	assert.Len(t, got.Recommendations, 3)
}

func TestAnalyze_ExcessiveLOPUsesPeriodDaysWithoutAttendanceTotal(t *testing.T) {
	p := slipWithTotals("20000", "20000", "200", "0")
	p.Attendance = payroll.AttendanceSummary{LOPDays: 16}

	got := Analyze(p)

	assert.Equal(t, []payroll.RootCause{payroll.CauseExcessiveLOP}, got.RootCauses)

	p.Attendance.LOPDays = 15
	assert.Empty(t, Analyze(p).RootCauses)
}

func TestAnalyze_NonNegativeNetPay(t *testing.T) {
	for _, net := range []string{"0", "100"} {
		p := slipWithTotals(net, "0", "0", "0")
		got := Analyze(p)
		assert.False(t, got.HasNegativeNetPay)
		assert.Empty(t, got.RootCauses)
		assert.Empty(t, got.Transitions)
	}
}

func TestAnalyze_AlreadyDisputedNeedsNoTransition(t *testing.T) {
	p := slipWithTotals("10000", "6800", "200", "3500")
	p.Status = payroll.PayslipStatusDisputed
	p.RequiresManualReview = true

	got := Analyze(p)

	assert.True(t, got.HasNegativeNetPay)
	assert.Empty(t, got.Transitions)
}

func TestApplyTransitions(t *testing.T) {
	p := slipWithTotals("10000", "6800", "200", "3500")
	other := payroll.StateTransition{PayslipID: "slip-2", To: payroll.PayslipStatusFailed}

	got := ApplyTransitions(p, append(Analyze(p).Transitions, other))

	assert.Equal(t, payroll.PayslipStatusDisputed, got.Status)
	assert.True(t, got.RequiresManualReview)
}
