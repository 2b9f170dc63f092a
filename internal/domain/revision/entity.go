package revision

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/shopspring/decimal"
)

type RevisionType string

const (
	TypeIncrement RevisionType = "INCREMENT"
	TypeRevision  RevisionType = "REVISION"
	TypePromotion RevisionType = "PROMOTION"
)

type RevisionStatus string

const (
	StatusDraft           RevisionStatus = "DRAFT"
	StatusPendingApproval RevisionStatus = "PENDING_APPROVAL"
	StatusApproved        RevisionStatus = "APPROVED"
	StatusApplied         RevisionStatus = "APPLIED"
	StatusRejected        RevisionStatus = "REJECTED"
)

var transitions = map[RevisionStatus][]RevisionStatus{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusApplied},
}

func (s RevisionStatus) CanTransitionTo(next RevisionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen is true until the revision is applied or rejected.
func (s RevisionStatus) IsOpen() bool {
	return s == StatusDraft || s == StatusPendingApproval || s == StatusApproved
}

// Snapshot is a full breakdown captured at a point in time.
type Snapshot struct {
	Breakdown compensation.SalaryBreakdown `json:"breakdown"`
	Locked    bool                         `json:"locked"`
}

type ChangeSummary struct {
	OldCTC           decimal.Decimal `json:"old_ctc"`
	NewCTC           decimal.Decimal `json:"new_ctc"`
	AbsoluteChange   decimal.Decimal `json:"absolute_change"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
	Reason           string          `json:"reason"`
}

// NewChangeSummary compares annual CTCs. A zero old CTC reports no percentage change.
func NewChangeSummary(oldCTC, newCTC decimal.Decimal, reason string) ChangeSummary {
	abs := newCTC.Sub(oldCTC)
	pct := decimal.Zero
	if !oldCTC.IsZero() {
		pct = abs.Div(oldCTC).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return ChangeSummary{
		OldCTC:           oldCTC,
		NewCTC:           newCTC,
		AbsoluteChange:   abs,
		PercentageChange: pct,
		Reason:           reason,
	}
}

type PromotionDetails struct {
	FromDesignation string  `json:"from_designation"`
	ToDesignation   string  `json:"to_designation"`
	FromGrade       *string `json:"from_grade,omitempty"`
	ToGrade         *string `json:"to_grade,omitempty"`
}

type Approval struct {
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      *string    `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
}

type Audit struct {
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	ModifiedBy         *string    `json:"modified_by,omitempty"`
	ModifiedAt         *time.Time `json:"modified_at,omitempty"`
	SubmittedBy        *string    `json:"submitted_by,omitempty"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	AppliedBy          *string    `json:"applied_by,omitempty"`
	AppliedAt          *time.Time `json:"applied_at,omitempty"`
	AppliedPeriodStart *time.Time `json:"applied_period_start,omitempty"`
}

// SalaryRevision is one append-only ledger entry for a tenant+employee pair.
// Sequence is the entry's position in that employee's ledger.
type SalaryRevision struct {
	ID               string            `json:"id"`
	TenantID         string            `json:"tenant_id"`
	EmployeeID       string            `json:"employee_id"`
	Sequence         int64             `json:"sequence"`
	Type             RevisionType      `json:"type"`
	EffectiveFrom    time.Time         `json:"effective_from"`
	OldSnapshot      *Snapshot         `json:"old_snapshot,omitempty"`
	NewSnapshot      Snapshot          `json:"new_snapshot"`
	SnapshotDigest   string            `json:"snapshot_digest,omitempty"`
	ChangeSummary    ChangeSummary     `json:"change_summary"`
	PromotionDetails *PromotionDetails `json:"promotion_details,omitempty"`
	Approval         Approval          `json:"approval"`
	Status           RevisionStatus    `json:"status"`
	Audit            Audit             `json:"audit"`
}

// ComputeDigest hashes both snapshots' breakdowns. Lock flags are excluded so sealing
// does not change the digest.
func (r SalaryRevision) ComputeDigest() (string, error) {
	payload := struct {
		Old *compensation.SalaryBreakdown `json:"old"`
		New compensation.SalaryBreakdown  `json:"new"`
	}{New: r.NewSnapshot.Breakdown}
	if r.OldSnapshot != nil {
		payload.Old = &r.OldSnapshot.Breakdown
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Seal locks both snapshots and records their digest.
func (r *SalaryRevision) Seal() error {
	digest, err := r.ComputeDigest()
	if err != nil {
		return err
	}
	r.NewSnapshot.Locked = true
	if r.OldSnapshot != nil {
		r.OldSnapshot.Locked = true
	}
	r.SnapshotDigest = digest
	return nil
}

// VerifySealed reports whether the stored snapshots still match the digest written at sealing.
// A DRAFT is never sealed and always verifies.
func (r SalaryRevision) VerifySealed() (bool, error) {
	if r.Status == StatusDraft {
		return true, nil
	}
	if r.SnapshotDigest == "" || !r.NewSnapshot.Locked {
		return false, nil
	}
	digest, err := r.ComputeDigest()
	if err != nil {
		return false, err
	}
	return digest == r.SnapshotDigest, nil
}
