package compensation

import (
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/rounding"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Statutory and structure defaults applied when a tenant leaves a field unset.
var (
	DefaultBasicPercent      = decimal.NewFromInt(40)
	DefaultHRAPercentOfBasic = decimal.NewFromInt(40)

	DefaultPFEmployeeRate = decimal.NewFromInt(12)
	DefaultPFEmployerRate = decimal.NewFromInt(12)
	DefaultPFWageCeiling  = decimal.NewFromInt(15000)

	DefaultESIEmployeeRate = decimal.RequireFromString("0.75")
	DefaultESIEmployerRate = decimal.RequireFromString("3.25")
	DefaultESIWageCeiling  = decimal.NewFromInt(21000)

	DefaultProfessionalTax = decimal.NewFromInt(200)

	DefaultConveyance = AllowancePolicy{Mode: AllowanceFixed, Value: decimal.NewFromInt(1600)}
	DefaultMedical    = AllowancePolicy{Mode: AllowanceFixed, Value: decimal.NewFromInt(1250)}
)

const (
	DefaultCountry   = "IN"
	DefaultCurrency  = "INR"
	DefaultTaxRegime = "NEW"
)

// AllowanceMode selects how conveyance/medical amounts are derived.
type AllowanceMode string

const (
	AllowanceFixed          AllowanceMode = "FIXED"
	AllowancePercentOfBasic AllowanceMode = "PERCENT_OF_BASIC"
)

type AllowancePolicy struct {
	Mode  AllowanceMode   `json:"mode" validate:"required,oneof=FIXED PERCENT_OF_BASIC"`
	Value decimal.Decimal `json:"value" validate:"gte=0"`
}

// ProfessionalTaxSlab applies Amount when MinIncome <= monthly income <= MaxIncome.
// A nil MaxIncome is open-ended.
type ProfessionalTaxSlab struct {
	MinIncome decimal.Decimal  `json:"min_income"`
	MaxIncome *decimal.Decimal `json:"max_income,omitempty"`
	Amount    decimal.Decimal  `json:"amount"`
}

func (s ProfessionalTaxSlab) Contains(income decimal.Decimal) bool {
	if income.LessThan(s.MinIncome) {
		return false
	}
	return s.MaxIncome == nil || income.LessThanOrEqual(*s.MaxIncome)
}

// CompensationRules is a tenant's statutory and structure configuration as stored.
// Nil fields are unset and resolve to the documented defaults.
type CompensationRules struct {
	TenantID  string `json:"tenant_id"`
	Country   string `json:"country,omitempty"`
	Currency  string `json:"currency,omitempty"`
	TaxRegime string `json:"tax_regime,omitempty" validate:"omitempty,oneof=OLD NEW"`

	PFEnabled      *bool            `json:"pf_enabled,omitempty"`
	PFEmployeeRate *decimal.Decimal `json:"pf_employee_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	PFEmployerRate *decimal.Decimal `json:"pf_employer_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	PFWageCeiling  *decimal.Decimal `json:"pf_wage_ceiling,omitempty" validate:"omitempty,gt=0"`
	PFCapEnabled   *bool            `json:"pf_cap_enabled,omitempty"`

	ESIEnabled      *bool            `json:"esi_enabled,omitempty"`
	ESIEmployeeRate *decimal.Decimal `json:"esi_employee_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	ESIEmployerRate *decimal.Decimal `json:"esi_employer_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	ESIWageCeiling  *decimal.Decimal `json:"esi_wage_ceiling,omitempty" validate:"omitempty,gt=0"`

	PTEnabled    *bool                            `json:"pt_enabled,omitempty"`
	PTFlatAmount *decimal.Decimal                 `json:"pt_flat_amount,omitempty" validate:"omitempty,gte=0"`
	PTState      string                           `json:"pt_state,omitempty"`
	PTSlabs      map[string][]ProfessionalTaxSlab `json:"pt_slabs,omitempty"`

	RoundingMethod string           `json:"rounding_method,omitempty" validate:"omitempty,oneof=HALF_UP HALF_DOWN CEIL FLOOR"`
	RoundingUnit   *decimal.Decimal `json:"rounding_unit,omitempty" validate:"omitempty,gt=0"`

	BasicPercent      *decimal.Decimal `json:"basic_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
	HRAPercentOfBasic *decimal.Decimal `json:"hra_percent_of_basic,omitempty" validate:"omitempty,gte=0,lte=100"`
	Conveyance        *AllowancePolicy `json:"conveyance,omitempty"`
	Medical           *AllowancePolicy `json:"medical,omitempty"`
}

func (r CompensationRules) Validate() error {
	err := validator.Struct(r)
	var errs validator.ValidationErrors
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = verrs
	}

	hundred := decimal.NewFromInt(100)
	for field, p := range map[string]*AllowancePolicy{"conveyance.value": r.Conveyance, "medical.value": r.Medical} {
		if p != nil && p.Mode == AllowancePercentOfBasic && p.Value.GreaterThan(hundred) {
			errs = append(errs, validator.ValidationError{Field: field, Message: "must be less than or equal to 100"})
		}
	}
	for state, slabs := range r.PTSlabs {
		for _, s := range slabs {
			if s.MaxIncome != nil && s.MaxIncome.LessThan(s.MinIncome) {
				errs = append(errs, validator.ValidationError{Field: "pt_slabs." + state, Message: "max_income must not be below min_income"})
				break
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Merge overlays the set fields of override onto r.
func (r CompensationRules) Merge(override CompensationRules) CompensationRules {
	out := r
	if override.Country != "" {
		out.Country = override.Country
	}
	if override.Currency != "" {
		out.Currency = override.Currency
	}
	if override.TaxRegime != "" {
		out.TaxRegime = override.TaxRegime
	}
	pickBool(&out.PFEnabled, override.PFEnabled)
	pickDec(&out.PFEmployeeRate, override.PFEmployeeRate)
	pickDec(&out.PFEmployerRate, override.PFEmployerRate)
	pickDec(&out.PFWageCeiling, override.PFWageCeiling)
	pickBool(&out.PFCapEnabled, override.PFCapEnabled)
	pickBool(&out.ESIEnabled, override.ESIEnabled)
	pickDec(&out.ESIEmployeeRate, override.ESIEmployeeRate)
	pickDec(&out.ESIEmployerRate, override.ESIEmployerRate)
	pickDec(&out.ESIWageCeiling, override.ESIWageCeiling)
	pickBool(&out.PTEnabled, override.PTEnabled)
	pickDec(&out.PTFlatAmount, override.PTFlatAmount)
	if override.PTState != "" {
		out.PTState = override.PTState
	}
	if len(override.PTSlabs) > 0 {
		out.PTSlabs = override.PTSlabs
	}
	if override.RoundingMethod != "" {
		out.RoundingMethod = override.RoundingMethod
	}
	pickDec(&out.RoundingUnit, override.RoundingUnit)
	pickDec(&out.BasicPercent, override.BasicPercent)
	pickDec(&out.HRAPercentOfBasic, override.HRAPercentOfBasic)
	if override.Conveyance != nil {
		out.Conveyance = override.Conveyance
	}
	if override.Medical != nil {
		out.Medical = override.Medical
	}
	return out
}

func pickBool(dst **bool, v *bool) {
	if v != nil {
		*dst = v
	}
}

func pickDec(dst **decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = v
	}
}

type PFConfig struct {
	Enabled      bool
	EmployeeRate decimal.Decimal
	EmployerRate decimal.Decimal
	WageCeiling  decimal.Decimal
	CapEnabled   bool
}

type ESIConfig struct {
	Enabled      bool
	EmployeeRate decimal.Decimal
	EmployerRate decimal.Decimal
	WageCeiling  decimal.Decimal
}

type PTConfig struct {
	Enabled    bool
	FlatAmount decimal.Decimal
	State      string
	Slabs      []ProfessionalTaxSlab
}

// ResolvedRules is CompensationRules with every default applied. Computation only reads this.
type ResolvedRules struct {
	Country           string
	Currency          string
	TaxRegime         string
	PF                PFConfig
	ESI               ESIConfig
	PT                PTConfig
	Rounding          rounding.Policy
	BasicPercent      decimal.Decimal
	HRAPercentOfBasic decimal.Decimal
	Conveyance        AllowancePolicy
	Medical           AllowancePolicy
}

// Resolve fills unset fields with the statutory defaults. Statutory modules default to enabled.
func (r CompensationRules) Resolve() ResolvedRules {
	out := ResolvedRules{
		Country:   orString(r.Country, DefaultCountry),
		Currency:  orString(r.Currency, DefaultCurrency),
		TaxRegime: orString(r.TaxRegime, DefaultTaxRegime),
		PF: PFConfig{
			Enabled:      orBool(r.PFEnabled, true),
			EmployeeRate: orDec(r.PFEmployeeRate, DefaultPFEmployeeRate),
			EmployerRate: orDec(r.PFEmployerRate, DefaultPFEmployerRate),
			WageCeiling:  orDec(r.PFWageCeiling, DefaultPFWageCeiling),
			CapEnabled:   orBool(r.PFCapEnabled, true),
		},
		ESI: ESIConfig{
			Enabled:      orBool(r.ESIEnabled, true),
			EmployeeRate: orDec(r.ESIEmployeeRate, DefaultESIEmployeeRate),
			EmployerRate: orDec(r.ESIEmployerRate, DefaultESIEmployerRate),
			WageCeiling:  orDec(r.ESIWageCeiling, DefaultESIWageCeiling),
		},
		PT: PTConfig{
			Enabled:    orBool(r.PTEnabled, true),
			FlatAmount: orDec(r.PTFlatAmount, DefaultProfessionalTax),
			State:      r.PTState,
		},
		BasicPercent:      orDec(r.BasicPercent, DefaultBasicPercent),
		HRAPercentOfBasic: orDec(r.HRAPercentOfBasic, DefaultHRAPercentOfBasic),
		Conveyance:        DefaultConveyance,
		Medical:           DefaultMedical,
	}
	if r.PTState != "" {
		out.PT.Slabs = r.PTSlabs[r.PTState]
	}

	method, err := rounding.Parse(r.RoundingMethod)
	if err != nil {
		method = rounding.HalfUp
	}
	out.Rounding = rounding.New(method, orDec(r.RoundingUnit, decimal.NewFromInt(1)))

	if r.Conveyance != nil {
		out.Conveyance = *r.Conveyance
	}
	if r.Medical != nil {
		out.Medical = *r.Medical
	}
	return out
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orBool(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func orDec(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}
