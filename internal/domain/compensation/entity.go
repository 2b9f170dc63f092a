package compensation

import (
	"time"

	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// Component names used on payslip lines and in summaries.
const (
	ComponentBasic            = "BASIC"
	ComponentHRA              = "HRA"
	ComponentConveyance       = "CONVEYANCE"
	ComponentMedical          = "MEDICAL"
	ComponentSpecialAllowance = "SPECIAL_ALLOWANCE"
	ComponentEmployeePF       = "EMPLOYEE_PF"
	ComponentEmployeeESI      = "EMPLOYEE_ESI"
	ComponentProfessionalTax  = "PROFESSIONAL_TAX"
	ComponentEmployerPF       = "EMPLOYER_PF"
	ComponentEmployerESI      = "EMPLOYER_ESI"
)

// ComponentAmount holds a monthly value and its annualised counterpart.
type ComponentAmount struct {
	Monthly decimal.Decimal `json:"monthly"`
	Yearly  decimal.Decimal `json:"yearly"`
}

func Monthly(m decimal.Decimal) ComponentAmount {
	return ComponentAmount{Monthly: m, Yearly: m.Mul(twelve)}
}

type NamedAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// SalaryBreakdown is the solved salary structure for one employee.
type SalaryBreakdown struct {
	AnnualCTC  decimal.Decimal `json:"annual_ctc"`
	MonthlyCTC decimal.Decimal `json:"monthly_ctc"`

	Basic            ComponentAmount `json:"basic"`
	HRA              ComponentAmount `json:"hra"`
	Conveyance       ComponentAmount `json:"conveyance"`
	Medical          ComponentAmount `json:"medical"`
	SpecialAllowance ComponentAmount `json:"special_allowance"`

	EmployeePF      ComponentAmount `json:"employee_pf"`
	EmployeeESI     ComponentAmount `json:"employee_esi"`
	ProfessionalTax ComponentAmount `json:"professional_tax"`

	EmployerPF  ComponentAmount `json:"employer_pf"`
	EmployerESI ComponentAmount `json:"employer_esi"`

	GrossEarnings         ComponentAmount `json:"gross_earnings"`
	TotalDeductions       ComponentAmount `json:"total_deductions"`
	NetPay                ComponentAmount `json:"net_pay"`
	EmployerContributions ComponentAmount `json:"employer_contributions"`
	ReconstructedCTC      ComponentAmount `json:"reconstructed_ctc"`

	// FirstPassGross is gross before the state-insurance re-solve; FinalGross after it.
	FirstPassGross      decimal.Decimal `json:"first_pass_gross"`
	FinalGross          decimal.Decimal `json:"final_gross"`
	ESIEligible         bool            `json:"esi_eligible"`
	ReconciliationDrift decimal.Decimal `json:"reconciliation_drift"`
}

func (b SalaryBreakdown) Earnings() []NamedAmount {
	return []NamedAmount{
		{Name: ComponentBasic, Amount: b.Basic.Monthly},
		{Name: ComponentHRA, Amount: b.HRA.Monthly},
		{Name: ComponentConveyance, Amount: b.Conveyance.Monthly},
		{Name: ComponentMedical, Amount: b.Medical.Monthly},
		{Name: ComponentSpecialAllowance, Amount: b.SpecialAllowance.Monthly},
	}
}

func (b SalaryBreakdown) Deductions() []NamedAmount {
	return []NamedAmount{
		{Name: ComponentEmployeePF, Amount: b.EmployeePF.Monthly},
		{Name: ComponentEmployeeESI, Amount: b.EmployeeESI.Monthly},
		{Name: ComponentProfessionalTax, Amount: b.ProfessionalTax.Monthly},
	}
}

func (b SalaryBreakdown) EmployerLines() []NamedAmount {
	return []NamedAmount{
		{Name: ComponentEmployerPF, Amount: b.EmployerPF.Monthly},
		{Name: ComponentEmployerESI, Amount: b.EmployerESI.Monthly},
	}
}

// ContributionPair is the employee and employer share of one statutory contribution.
type ContributionPair struct {
	Employee decimal.Decimal `json:"employee"`
	Employer decimal.Decimal `json:"employer"`
}

// ManualEarnings is the part of a hand-edited structure statutory amounts depend on.
type ManualEarnings struct {
	Basic decimal.Decimal `json:"basic" validate:"gte=0"`
	Gross decimal.Decimal `json:"gross" validate:"gt=0"`
}

type StatutoryAmounts struct {
	PFWageBasis     decimal.Decimal  `json:"pf_wage_basis"`
	ProvidentFund   ContributionPair `json:"provident_fund"`
	ESIEligible     bool             `json:"esi_eligible"`
	StateInsurance  ContributionPair `json:"state_insurance"`
	ProfessionalTax decimal.Decimal  `json:"professional_tax"`
	TotalDeductions decimal.Decimal  `json:"total_deductions"`
}

// SalaryTemplate binds a named CTC and optional rule overrides to a tenant.
type SalaryTemplate struct {
	ID        string             `json:"id"`
	TenantID  string             `json:"tenant_id"`
	Name      string             `json:"name"`
	AnnualCTC decimal.Decimal    `json:"annual_ctc"`
	Overrides *CompensationRules `json:"overrides,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// LeaveTreatmentForfeitedAsLOP marks unused leave that is not paid out at exit.
const LeaveTreatmentForfeitedAsLOP = "FORFEITED_AS_LOP"

// ProRata is a day-based proration of one pay period.
type ProRata struct {
	DaysWorked int             `json:"days_worked"`
	TotalDays  int             `json:"total_days"`
	Factor     decimal.Decimal `json:"factor"`
}

func (p ProRata) IsFull() bool {
	return p.DaysWorked == p.TotalDays
}

type ForfeitedLeave struct {
	Days      decimal.Decimal `json:"days"`
	Treatment string          `json:"treatment"`
}

type ResignationProRata struct {
	ProRata
	ForfeitedLeave *ForfeitedLeave `json:"forfeited_leave,omitempty"`
}
