package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2026, 7, 20, 10, 0, 0, 0, time.UTC)

func fixedGuard() *LockGuard {
	g := NewLockGuard(DefaultAmendmentWindow)
	g.now = func() time.Time { return fixedNow }
	return g
}

func TestIsLocked(t *testing.T) {
	tests := []struct {
		status payroll.RunStatus
		want   bool
	}{
		{payroll.RunStatusDraft, false},
		{payroll.RunStatusProcessing, false},
		{payroll.RunStatusProcessed, false},
		{payroll.RunStatusApproved, true},
		{payroll.RunStatusPaid, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocked(payroll.PayrollRun{Status: tt.status}))
		})
	}
}

func TestLockGuard_CheckRun(t *testing.T) {
	g := fixedGuard()

	err := g.CheckRun(payroll.PayrollRun{ID: "run-1", Status: payroll.RunStatusPaid})
	assert.True(t, errors.Is(err, payroll.ErrRunAlreadyPaid))
	assert.Equal(t, apperror.KindLocked, apperror.KindOf(err))

	err = g.CheckRun(payroll.PayrollRun{ID: "run-1", Status: payroll.RunStatusApproved})
	assert.True(t, errors.Is(err, payroll.ErrRunAlreadyApproved))

	assert.NoError(t, g.CheckRun(payroll.PayrollRun{Status: payroll.RunStatusProcessed, Locked: true}))
}

func TestLockGuard_CheckExplicitLock(t *testing.T) {
	g := fixedGuard()

	err := g.CheckExplicitLock(payroll.PayrollRun{ID: "run-1", Status: payroll.RunStatusDraft, Locked: true})
	assert.True(t, errors.Is(err, payroll.ErrRunExplicitlyLocked))
	assert.Equal(t, apperror.KindLocked, apperror.KindOf(err))

	assert.NoError(t, g.CheckExplicitLock(payroll.PayrollRun{Status: payroll.RunStatusPaid}))
}

func TestLockGuard_CheckWindow(t *testing.T) {
	g := fixedGuard()

	old := payroll.Payslip{ID: "slip-1", CreatedAt: fixedNow.AddDate(0, 0, -35)}
	err := g.CheckWindow(old)
	assert.True(t, errors.Is(err, payroll.ErrAmendmentWindowPassed))

	var appErr *apperror.AppError
	if assert.True(t, errors.As(err, &appErr)) {
		assert.Equal(t, 35, appErr.Context["days_since_creation"])
		assert.Equal(t, 30, appErr.Context["window_days"])
	}

	assert.NoError(t, g.CheckWindow(payroll.Payslip{CreatedAt: fixedNow.AddDate(0, 0, -29)}))
	assert.NoError(t, g.CheckWindow(payroll.Payslip{CreatedAt: fixedNow.AddDate(0, 0, -30)}))
}
