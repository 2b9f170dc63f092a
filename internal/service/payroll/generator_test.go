package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stagedTxKey struct{}

type stagedWrites struct {
	writes []func()
}

// stagingTransactor applies writes made inside fn only when fn succeeds.
type stagingTransactor struct {
	commits   int
	rollbacks int
}

func (s *stagingTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &stagedWrites{}
	if err := fn(context.WithValue(ctx, stagedTxKey{}, tx)); err != nil {
		s.rollbacks++
		return err
	}
	for _, w := range tx.writes {
		w()
	}
	s.commits++
	return nil
}

// stageWrite defers apply to commit when ctx carries a transaction and runs it at once otherwise.
func stageWrite(ctx context.Context, apply func()) {
	if tx, ok := ctx.Value(stagedTxKey{}).(*stagedWrites); ok {
		tx.writes = append(tx.writes, apply)
		return
	}
	apply()
}

// approvedLedger resolves one APPROVED revision and marks it APPLIED the way the
// revision repository does.
func approvedLedger(t *testing.T, svc *PayrollServiceImpl, deps testDeps) (*stagingTransactor, *revision.SalaryRevision) {
	t.Helper()
	base := solved600k(t)
	rev := &revision.SalaryRevision{
		ID:          "rev-2",
		TenantID:    "tenant-1",
		EmployeeID:  "emp-1",
		NewSnapshot: revision.Snapshot{Breakdown: base, Locked: true},
		Status:      revision.StatusApproved,
	}
	deps.revisions.resolveFn = func(ctx context.Context, tenantID, employeeID string, periodStart time.Time) (revision.ResolvedSnapshot, error) {
		resolved := revision.ResolvedSnapshot{Snapshot: rev.NewSnapshot, Revision: *rev}
		if rev.Status == revision.StatusApproved {
			stageWrite(ctx, func() { rev.Status = revision.StatusApplied })
			resolved.Applied = true
		}
		return resolved, nil
	}

	tx := &stagingTransactor{}
	svc.tx = tx
	return tx, rev
}

func TestGeneratePayslip_FailedInsertKeepsRevisionApproved(t *testing.T) {
	svc, deps := newTestService(t)
	tx, rev := approvedLedger(t, svc, deps)
	deps.payslips.createErr = apperror.WithContext(payroll.ErrPayslipAlreadyExists, "payroll_run_id", "run-1", "employee_id", "emp-1")

	_, _, err := svc.GeneratePayslip(context.Background(), generateRequest())

	assert.True(t, errors.Is(err, payroll.ErrPayslipAlreadyExists))
	assert.Equal(t, revision.StatusApproved, rev.Status)
	assert.Equal(t, 1, tx.rollbacks)
	assert.Zero(t, tx.commits)
	assert.Empty(t, deps.payslips.slips)
}

func TestGeneratePayslip_AppliesRevisionWithPayslip(t *testing.T) {
	svc, deps := newTestService(t)
	tx, rev := approvedLedger(t, svc, deps)

	slip, _, err := svc.GeneratePayslip(context.Background(), generateRequest())
	require.NoError(t, err)

	assert.Equal(t, revision.StatusApplied, rev.Status)
	require.NotNil(t, slip.RevisionID)
	assert.Equal(t, "rev-2", *slip.RevisionID)
	assert.Equal(t, 1, tx.commits)
	assert.Equal(t, 1, deps.runs.getForUpdateN)
}

func TestGeneratePayslip_RunLockedBeforeResolve(t *testing.T) {
	svc, deps := newTestService(t)
	_, rev := approvedLedger(t, svc, deps)
	run := deps.runs.runs["run-1"]
	run.Locked = true
	deps.runs.runs["run-1"] = run

	_, _, err := svc.GeneratePayslip(context.Background(), generateRequest())

	assert.True(t, errors.Is(err, payroll.ErrRunExplicitlyLocked))
	assert.Equal(t, revision.StatusApproved, rev.Status)
	assert.Equal(t, 1, deps.runs.getForUpdateN)
}
