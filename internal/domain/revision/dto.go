package revision

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

type CreateDraftRequest struct {
	TenantID         string                       `json:"-"`
	ActorID          string                       `json:"-"`
	EmployeeID       string                       `json:"employee_id"`
	Type             RevisionType                 `json:"type"`
	NewBreakdown     compensation.SalaryBreakdown `json:"-"`
	Reason           string                       `json:"reason"`
	EffectiveFrom    string                       `json:"effective_from"`
	PromotionDetails *PromotionDetails            `json:"promotion_details,omitempty"`

	effectiveFrom time.Time
}

func (r *CreateDraftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{Field: "tenant_id", Message: "is required"})
	}
	if validator.IsEmpty(r.ActorID) {
		errs = append(errs, validator.ValidationError{Field: "actor_id", Message: "is required"})
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	switch r.Type {
	case TypeIncrement, TypeRevision:
	case TypePromotion:
		if r.PromotionDetails == nil || validator.IsEmpty(r.PromotionDetails.ToDesignation) {
			errs = append(errs, validator.ValidationError{Field: "promotion_details.to_designation", Message: "is required for a promotion"})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "type", Message: "must be one of: INCREMENT REVISION PROMOTION"})
	}
	if !r.NewBreakdown.AnnualCTC.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "annual_ctc", Message: "must be greater than 0"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}
	date, ok := validator.IsValidDate(r.EffectiveFrom)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "effective_from", Message: "must be YYYY-MM-DD"})
	}
	r.effectiveFrom = date

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *CreateDraftRequest) EffectiveDate() time.Time {
	return r.effectiveFrom
}

type UpdateDraftRequest struct {
	TenantID     string                       `json:"-"`
	ActorID      string                       `json:"-"`
	RevisionID   string                       `json:"-"`
	NewBreakdown compensation.SalaryBreakdown `json:"-"`
	Reason       *string                      `json:"reason,omitempty"`
}

func (r *UpdateDraftRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.RevisionID) {
		errs = append(errs, validator.ValidationError{Field: "revision_id", Message: "is required"})
	}
	if validator.IsEmpty(r.ActorID) {
		errs = append(errs, validator.ValidationError{Field: "actor_id", Message: "is required"})
	}
	if !r.NewBreakdown.AnnualCTC.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "annual_ctc", Message: "must be greater than 0"})
	}
	if r.Reason != nil && validator.IsEmpty(*r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "must not be blank"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RejectRequest struct {
	TenantID   string `json:"-"`
	RevisionID string `json:"-"`
	ApproverID string `json:"-"`
	Reason     string `json:"reason"`
}

// ResolvedSnapshot is what payroll consumes for a period. Revision is the ledger
// entry the snapshot came from.
type ResolvedSnapshot struct {
	Snapshot Snapshot       `json:"snapshot"`
	Revision SalaryRevision `json:"revision"`
	// Applied is true when this call moved the revision from APPROVED to APPLIED.
	Applied bool `json:"applied"`
}
