package compensation

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type ComputeBreakdownRequest struct {
	TenantID  string             `json:"-"`
	AnnualCTC decimal.Decimal    `json:"annual_ctc"`
	Overrides *CompensationRules `json:"overrides,omitempty"`
}

func (r *ComputeBreakdownRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{Field: "tenant_id", Message: "is required"})
	}
	if !r.AnnualCTC.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "annual_ctc", Message: "must be greater than 0"})
	}
	if r.Overrides != nil {
		if err := r.Overrides.Validate(); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, e := range verrs {
					errs = append(errs, validator.ValidationError{Field: "overrides." + e.Field, Message: e.Message})
				}
			} else {
				return err
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ManualEditRequest struct {
	TenantID string         `json:"-"`
	Earnings ManualEarnings `json:"earnings"`
}

func (r *ManualEditRequest) Validate() error {
	if validator.IsEmpty(r.TenantID) {
		return validator.ValidationErrors{{Field: "tenant_id", Message: "is required"}}
	}
	return validator.Struct(r)
}

// ProRateRequest prorates a solved breakdown for a joiner, a leaver, or LOP days.
type ProRateRequest struct {
	TenantID      string          `json:"-"`
	AnnualCTC     decimal.Decimal `json:"annual_ctc"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	JoiningDate   *string         `json:"joining_date,omitempty"`
	ExitDate      *string         `json:"exit_date,omitempty"`
	UnusedLeave   decimal.Decimal `json:"unused_leave"`
	LossOfPayDays int             `json:"loss_of_pay_days"`

	periodStart, periodEnd time.Time
	joining, exit          *time.Time
}

func (r *ProRateRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{Field: "tenant_id", Message: "is required"})
	}
	if !r.AnnualCTC.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "annual_ctc", Message: "must be greater than 0"})
	}
	var ok bool
	if r.periodStart, ok = validator.IsValidDate(r.PeriodStart); !ok {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be YYYY-MM-DD"})
	}
	if r.periodEnd, ok = validator.IsValidDate(r.PeriodEnd); !ok {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be YYYY-MM-DD"})
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
	if r.LossOfPayDays < 0 {
		errs = append(errs, validator.ValidationError{Field: "loss_of_pay_days", Message: "must be non-negative"})
	}
	if r.UnusedLeave.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "unused_leave", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Dates returns the parsed dates; only meaningful after Validate succeeded.
func (r *ProRateRequest) Dates() (periodStart, periodEnd time.Time, joining, exit *time.Time) {
	return r.periodStart, r.periodEnd, r.joining, r.exit
}

type ProRateResponse struct {
	ProRata        ProRata         `json:"pro_rata"`
	ForfeitedLeave *ForfeitedLeave `json:"forfeited_leave,omitempty"`
	Breakdown      SalaryBreakdown `json:"breakdown"`
}
