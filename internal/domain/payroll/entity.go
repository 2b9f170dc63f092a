package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/shopspring/decimal"
)

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft      RunStatus = "DRAFT"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusProcessed  RunStatus = "PROCESSED"
	RunStatusApproved   RunStatus = "APPROVED"
	RunStatusPaid       RunStatus = "PAID"
)

var runTransitions = map[RunStatus]RunStatus{
	RunStatusDraft:      RunStatusProcessing,
	RunStatusProcessing: RunStatusProcessed,
	RunStatusProcessed:  RunStatusApproved,
	RunStatusApproved:   RunStatusPaid,
}

// CanTransitionTo allows one step forward at a time.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	return runTransitions[s] == next
}

// PayrollRun - one tenant's payroll for one period
type PayrollRun struct {
	ID          string
	TenantID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      RunStatus
	Locked      bool // set explicitly by payroll admins, independent of status
	LockedBy    *string
	LockedAt    *time.Time
	ApprovedBy  *string
	ApprovedAt  *time.Time
	PaidBy      *string
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PayslipStatus enum
type PayslipStatus string

const (
	PayslipStatusDraft     PayslipStatus = "DRAFT"
	PayslipStatusProcessed PayslipStatus = "PROCESSED"
	PayslipStatusFailed    PayslipStatus = "FAILED"
	PayslipStatusDisputed  PayslipStatus = "DISPUTED"
	PayslipStatusFinalized PayslipStatus = "FINALIZED"
)

// LineCategory enum
type LineCategory string

const (
	LineEarning              LineCategory = "EARNING"
	LinePreTaxDeduction      LineCategory = "PRE_TAX"
	LineTax                  LineCategory = "TAX"
	LinePostTaxDeduction     LineCategory = "POST_TAX"
	LineEmployerContribution LineCategory = "EMPLOYER_CONTRIBUTION"
)

func (c LineCategory) Valid() bool {
	switch c {
	case LineEarning, LinePreTaxDeduction, LineTax, LinePostTaxDeduction, LineEmployerContribution:
		return true
	}
	return false
}

type PayslipLine struct {
	Name     string          `json:"name"`
	Category LineCategory    `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// AttendanceSummary - day counts for the payslip period
type AttendanceSummary struct {
	TotalDays   int `json:"total_days"`
	PresentDays int `json:"present_days"`
	LeaveDays   int `json:"leave_days"`
	LOPDays     int `json:"lop_days"`
	HolidayDays int `json:"holiday_days"`
}

type BankDetails struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
}

// Payslip - one employee's computed pay for one run
type Payslip struct {
	ID           string
	TenantID     string
	RunID        string
	EmployeeID   string
	EmployeeName string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	JoiningDate  *time.Time
	ExitDate     *time.Time
	RevisionID   *string

	// BaseBreakdown is the full-month structure the payslip was prorated from.
	BaseBreakdown compensation.SalaryBreakdown
	Breakdown     compensation.SalaryBreakdown
	Lines         []PayslipLine

	GrossEarnings         decimal.Decimal
	PreTaxDeductions      decimal.Decimal
	TaxDeductions         decimal.Decimal
	PostTaxDeductions     decimal.Decimal
	EmployerContributions decimal.Decimal
	NetPay                decimal.Decimal

	Attendance AttendanceSummary
	Bank       BankDetails

	Status               PayslipStatus
	RequiresManualReview bool
	NeedsRecalculation   bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// LinesIn returns lines of one category, in order.
func (p Payslip) LinesIn(category LineCategory) []PayslipLine {
	var out []PayslipLine
	for _, l := range p.Lines {
		if l.Category == category {
			out = append(out, l)
		}
	}
	return out
}

// AmendmentStatus enum
type AmendmentStatus string

const (
	AmendmentStatusPendingApproval AmendmentStatus = "PENDING_APPROVAL"
	AmendmentStatusApproved        AmendmentStatus = "APPROVED"
	AmendmentStatusRejected        AmendmentStatus = "REJECTED"
)

type AmendmentChanges struct {
	SalaryTemplateID   *string            `json:"salary_template_id,omitempty"`
	SalaryTemplateName *string            `json:"salary_template_name,omitempty"`
	Attendance         *AttendanceSummary `json:"attendance,omitempty"`
}

// AmendedPayslip - linked correction of a payslip; the original is never replaced
type AmendedPayslip struct {
	ID                 string
	TenantID           string
	OriginalPayslipID  string
	Version            int
	Reason             string
	Changes            AmendmentChanges
	RecalculatedValues *compensation.SalaryBreakdown
	Status             AmendmentStatus
	RequestedBy        string
	CreatedAt          time.Time
}

// AuditEntry - append-only record of an amendment action
type AuditEntry struct {
	ID         string
	TenantID   string
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	Reason     string
	Before     map[string]any
	After      map[string]any
	CreatedAt  time.Time
}

const (
	AuditEntityPayslip = "payslip"
	AuditEntityRun     = "payroll_run"

	AuditActionAttendanceCorrected = "ATTENDANCE_CORRECTED"
	AuditActionTemplateAmended     = "SALARY_TEMPLATE_AMENDED"
	AuditActionRecalculated        = "RECALCULATED"
	AuditActionDisputed            = "DISPUTED"
	AuditActionRunStatusChanged    = "RUN_STATUS_CHANGED"
	AuditActionRunLockChanged      = "RUN_LOCK_CHANGED"
)

// RootCause enum
type RootCause string

const (
	CauseHighPostTaxDeductions RootCause = "HIGH_POST_TAX_DEDUCTIONS"
	CauseLowGrossEarnings      RootCause = "LOW_GROSS_EARNINGS"
	CauseExcessiveLOP          RootCause = "EXCESSIVE_LOP"
)

// StateTransition is a change the caller must persist for a payslip.
type StateTransition struct {
	PayslipID            string        `json:"payslip_id"`
	From                 PayslipStatus `json:"from"`
	To                   PayslipStatus `json:"to"`
	RequiresManualReview bool          `json:"requires_manual_review"`
}

type DisputeAnalysis struct {
	PayslipID         string            `json:"payslip_id"`
	HasNegativeNetPay bool              `json:"has_negative_net_pay"`
	NetPay            decimal.Decimal   `json:"net_pay"`
	RootCauses        []RootCause       `json:"root_causes"`
	Recommendations   []string          `json:"recommendations"`
	Transitions       []StateTransition `json:"transitions"`
}

type BankTransfer struct {
	BankName  string          `json:"bank_name"`
	Employees int             `json:"employees"`
	Amount    decimal.Decimal `json:"amount"`
}

type SummaryFailure struct {
	PayslipID string `json:"payslip_id"`
	Reason    string `json:"reason"`
}

type PayrollSummary struct {
	RunID       string    `json:"run_id"`
	TenantID    string    `json:"tenant_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Status      RunStatus `json:"status"`

	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Disputed  int `json:"disputed"`

	TotalGross                 decimal.Decimal `json:"total_gross"`
	TotalPreTaxDeductions      decimal.Decimal `json:"total_pre_tax_deductions"`
	TotalTax                   decimal.Decimal `json:"total_tax"`
	TotalPostTaxDeductions     decimal.Decimal `json:"total_post_tax_deductions"`
	TotalNetPay                decimal.Decimal `json:"total_net_pay"`
	TotalEmployerContributions decimal.Decimal `json:"total_employer_contributions"`

	Earnings              map[string]decimal.Decimal `json:"earnings"`
	Deductions            map[string]decimal.Decimal `json:"deductions"`
	EmployerContributions map[string]decimal.Decimal `json:"employer_contributions"`
	BankTransfers         []BankTransfer             `json:"bank_transfers"`
	Failures              []SummaryFailure           `json:"failures,omitempty"`
}
