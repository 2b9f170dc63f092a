package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUNS ==========

type CreateRunRequest struct {
	TenantID    string `json:"-"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	start, end time.Time
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{Field: "tenant_id", Message: "is required"})
	}
	start, okStart := validator.IsValidDate(r.PeriodStart)
	if !okStart {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be YYYY-MM-DD"})
	}
	end, okEnd := validator.IsValidDate(r.PeriodEnd)
	if !okEnd {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be YYYY-MM-DD"})
	}
	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}
	r.start, r.end = start, end

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *CreateRunRequest) Period() (start, end time.Time) {
	return r.start, r.end
}

type UpdateRunStatusRequest struct {
	TenantID string    `json:"-"`
	ActorID  string    `json:"-"`
	RunID    string    `json:"-"`
	Status   RunStatus `json:"status"`
}

func (r *UpdateRunStatusRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.RunID) {
		errs = append(errs, validator.ValidationError{Field: "run_id", Message: "is required"})
	}
	switch r.Status {
	case RunStatusProcessing, RunStatusProcessed, RunStatusApproved, RunStatusPaid:
	default:
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be one of: PROCESSING PROCESSED APPROVED PAID"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SetRunLockRequest struct {
	TenantID string `json:"-"`
	ActorID  string `json:"-"`
	RunID    string `json:"-"`
	Locked   bool   `json:"locked"`
}

type RunResponse struct {
	ID          string     `json:"id"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	Status      RunStatus  `json:"status"`
	Locked      bool       `json:"locked"`
	LockedBy    *string    `json:"locked_by,omitempty"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	ApprovedBy  *string    `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PaidBy      *string    `json:"paid_by,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func NewRunResponse(run PayrollRun) RunResponse {
	return RunResponse{
		ID:          run.ID,
		PeriodStart: run.PeriodStart.Format(time.DateOnly),
		PeriodEnd:   run.PeriodEnd.Format(time.DateOnly),
		Status:      run.Status,
		Locked:      run.Locked,
		LockedBy:    run.LockedBy,
		LockedAt:    run.LockedAt,
		ApprovedBy:  run.ApprovedBy,
		ApprovedAt:  run.ApprovedAt,
		PaidBy:      run.PaidBy,
		PaidAt:      run.PaidAt,
	}
}

// ========== GENERATION ==========

type GeneratePayslipRequest struct {
	TenantID          string            `json:"-"`
	ActorID           string            `json:"-"`
	RunID             string            `json:"run_id"`
	EmployeeID        string            `json:"employee_id"`
	EmployeeName      string            `json:"employee_name"`
	JoiningDate       *string           `json:"joining_date,omitempty"`
	ExitDate          *string           `json:"exit_date,omitempty"`
	Attendance        AttendanceSummary `json:"attendance"`
	Bank              BankDetails       `json:"bank"`
	PostTaxDeductions []PayslipLine     `json:"post_tax_deductions,omitempty"`

	joining, exit *time.Time
}

func (r *GeneratePayslipRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{Field: "tenant_id", Message: "is required"})
	}
	if validator.IsEmpty(r.RunID) {
		errs = append(errs, validator.ValidationError{Field: "run_id", Message: "is required"})
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.JoiningDate != nil {
		d, ok := validator.IsValidDate(*r.JoiningDate)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "joining_date", Message: "must be YYYY-MM-DD"})
		}
		r.joining = &d
	}
	if r.ExitDate != nil {
		d, ok := validator.IsValidDate(*r.ExitDate)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "exit_date", Message: "must be YYYY-MM-DD"})
		}
		r.exit = &d
	}
	errs = append(errs, validateAttendance("attendance", r.Attendance)...)
	for _, l := range r.PostTaxDeductions {
		if validator.IsEmpty(l.Name) || l.Amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "post_tax_deductions", Message: "each line needs a name and a non-negative amount"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *GeneratePayslipRequest) Dates() (joining, exit *time.Time) {
	return r.joining, r.exit
}

func validateAttendance(field string, a AttendanceSummary) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if a.TotalDays < 0 || a.PresentDays < 0 || a.LeaveDays < 0 || a.LOPDays < 0 || a.HolidayDays < 0 {
		errs = append(errs, validator.ValidationError{Field: field, Message: "day counts must be non-negative"})
	}
	if a.TotalDays > 0 && a.PresentDays+a.LeaveDays+a.LOPDays+a.HolidayDays > a.TotalDays {
		errs = append(errs, validator.ValidationError{Field: field, Message: "day counts exceed total days"})
	}
	return errs
}

// ========== AMENDMENT ==========

type ReviseSalaryTemplateRequest struct {
	TenantID   string `json:"-"`
	ActorID    string `json:"-"`
	PayslipID  string `json:"-"`
	TemplateID string `json:"salary_template_id"`
	Reason     string `json:"reason"`
}

func (r *ReviseSalaryTemplateRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.PayslipID) {
		errs = append(errs, validator.ValidationError{Field: "payslip_id", Message: "is required"})
	}
	if validator.IsEmpty(r.TemplateID) {
		errs = append(errs, validator.ValidationError{Field: "salary_template_id", Message: "is required"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CorrectAttendanceRequest struct {
	TenantID   string            `json:"-"`
	ActorID    string            `json:"-"`
	PayslipID  string            `json:"-"`
	Attendance AttendanceSummary `json:"attendance"`
	Reason     string            `json:"reason"`
}

func (r *CorrectAttendanceRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.PayslipID) {
		errs = append(errs, validator.ValidationError{Field: "payslip_id", Message: "is required"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}
	if r.Attendance.TotalDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "attendance.total_days", Message: "must be greater than 0"})
	}
	errs = append(errs, validateAttendance("attendance", r.Attendance)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESPONSES ==========

type PayslipResponse struct {
	ID                    string            `json:"id"`
	RunID                 string            `json:"run_id"`
	EmployeeID            string            `json:"employee_id"`
	EmployeeName          string            `json:"employee_name"`
	PeriodStart           string            `json:"period_start"`
	PeriodEnd             string            `json:"period_end"`
	Lines                 []PayslipLine     `json:"lines"`
	GrossEarnings         decimal.Decimal   `json:"gross_earnings"`
	PreTaxDeductions      decimal.Decimal   `json:"pre_tax_deductions"`
	TaxDeductions         decimal.Decimal   `json:"tax_deductions"`
	PostTaxDeductions     decimal.Decimal   `json:"post_tax_deductions"`
	EmployerContributions decimal.Decimal   `json:"employer_contributions"`
	NetPay                decimal.Decimal   `json:"net_pay"`
	Attendance            AttendanceSummary `json:"attendance"`
	Status                PayslipStatus     `json:"status"`
	RequiresManualReview  bool              `json:"requires_manual_review"`
	NeedsRecalculation    bool              `json:"needs_recalculation"`
}

func NewPayslipResponse(p Payslip) PayslipResponse {
	return PayslipResponse{
		ID:                    p.ID,
		RunID:                 p.RunID,
		EmployeeID:            p.EmployeeID,
		EmployeeName:          p.EmployeeName,
		PeriodStart:           p.PeriodStart.Format(time.DateOnly),
		PeriodEnd:             p.PeriodEnd.Format(time.DateOnly),
		Lines:                 p.Lines,
		GrossEarnings:         p.GrossEarnings,
		PreTaxDeductions:      p.PreTaxDeductions,
		TaxDeductions:         p.TaxDeductions,
		PostTaxDeductions:     p.PostTaxDeductions,
		EmployerContributions: p.EmployerContributions,
		NetPay:                p.NetPay,
		Attendance:            p.Attendance,
		Status:                p.Status,
		RequiresManualReview:  p.RequiresManualReview,
		NeedsRecalculation:    p.NeedsRecalculation,
	}
}

type GeneratePayslipResponse struct {
	Payslip  PayslipResponse `json:"payslip"`
	Analysis DisputeAnalysis `json:"analysis"`
}

type AmendmentResponse struct {
	ID                 string           `json:"id"`
	OriginalPayslipID  string           `json:"original_payslip_id"`
	Version            int              `json:"version"`
	Reason             string           `json:"reason"`
	Changes            AmendmentChanges `json:"changes"`
	RecalculatedNetPay *decimal.Decimal `json:"recalculated_net_pay,omitempty"`
	Status             AmendmentStatus  `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
}

func NewAmendmentResponse(a AmendedPayslip) AmendmentResponse {
	resp := AmendmentResponse{
		ID:                a.ID,
		OriginalPayslipID: a.OriginalPayslipID,
		Version:           a.Version,
		Reason:            a.Reason,
		Changes:           a.Changes,
		Status:            a.Status,
		CreatedAt:         a.CreatedAt,
	}
	if a.RecalculatedValues != nil {
		net := a.RecalculatedValues.NetPay.Monthly
		resp.RecalculatedNetPay = &net
	}
	return resp
}
