package payroll

import (
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// LowGrossThreshold is the gross below which a negative payslip is blamed on pro-rating.
var LowGrossThreshold = decimal.NewFromInt(5000)

var postTaxShareLimit = decimal.RequireFromString("0.30")

const (
	recommendReviewDeductions = "Review loans, advances and penalties deducted after tax"
	recommendCheckProRata     = "Check pro-rata days and joining or exit dates for this period"
	recommendAuditAttendance  = "Audit attendance corrections and loss-of-pay entries"
)

// Analyze diagnoses a payslip with negative net pay. It does not modify p: the
// returned transitions mark the payslip DISPUTED for manual review and are
// applied by the caller.
func Analyze(p payroll.Payslip) payroll.DisputeAnalysis {
	out := payroll.DisputeAnalysis{
		PayslipID:       p.ID,
		NetPay:          p.NetPay,
		RootCauses:      []payroll.RootCause{},
		Recommendations: []string{},
		Transitions:     []payroll.StateTransition{},
	}
	if !p.NetPay.IsNegative() {
		return out
	}
	out.HasNegativeNetPay = true

	if p.PostTaxDeductions.GreaterThan(p.GrossEarnings.Mul(postTaxShareLimit)) {
		out.RootCauses = append(out.RootCauses, payroll.CauseHighPostTaxDeductions)
		out.Recommendations = append(out.Recommendations, recommendReviewDeductions)
	}
	if p.GrossEarnings.LessThan(LowGrossThreshold) {
		out.RootCauses = append(out.RootCauses, payroll.CauseLowGrossEarnings)
		out.Recommendations = append(out.Recommendations, recommendCheckProRata)
	}
	if total := periodDays(p); total > 0 && p.Attendance.LOPDays*2 > total {
		out.RootCauses = append(out.RootCauses, payroll.CauseExcessiveLOP)
		out.Recommendations = append(out.Recommendations, recommendAuditAttendance)
	}

	if p.Status != payroll.PayslipStatusDisputed || !p.RequiresManualReview {
		out.Transitions = append(out.Transitions, payroll.StateTransition{
			PayslipID:            p.ID,
			From:                 p.Status,
			To:                   payroll.PayslipStatusDisputed,
			RequiresManualReview: true,
		})
	}
	return out
}

func periodDays(p payroll.Payslip) int {
	if p.Attendance.TotalDays > 0 {
		return p.Attendance.TotalDays
	}
	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return 0
	}
	return int(p.PeriodEnd.Sub(p.PeriodStart).Hours()/24) + 1
}

// ApplyTransitions returns p with every transition addressed to it applied.
func ApplyTransitions(p payroll.Payslip, transitions []payroll.StateTransition) payroll.Payslip {
	for _, t := range transitions {
		if t.PayslipID != p.ID {
			continue
		}
		p.Status = t.To
		p.RequiresManualReview = t.RequiresManualReview
	}
	return p
}
