package payroll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
	compsvc "github.com/cmlabs-hris/payroll-engine/internal/service/compensation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRunRepository struct {
	runs          map[string]payroll.PayrollRun
	getForUpdateN int
}

func (f *fakeRunRepository) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(f.runs)+1)
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeRunRepository) GetByID(ctx context.Context, tenantID, id string) (payroll.PayrollRun, error) {
	run, ok := f.runs[id]
	if !ok || run.TenantID != tenantID {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeRunRepository) GetForUpdate(ctx context.Context, tenantID, id string) (payroll.PayrollRun, error) {
	f.getForUpdateN++
	return f.GetByID(ctx, tenantID, id)
}

func (f *fakeRunRepository) UpdateStatus(ctx context.Context, tenantID, id string, status payroll.RunStatus, actorID string) error {
	run := f.runs[id]
	run.Status = status
	f.runs[id] = run
	return nil
}

func (f *fakeRunRepository) SetLocked(ctx context.Context, tenantID, id string, locked bool, actorID string) error {
	run := f.runs[id]
	run.Locked = locked
	f.runs[id] = run
	return nil
}

type fakePayslipRepository struct {
	slips        map[string]payroll.Payslip
	nextID       int
	attendanceFn func(id string, a payroll.AttendanceSummary, needsRecalculation bool)
	replaced     []payroll.Payslip
	createErr    error
}

func (f *fakePayslipRepository) Create(ctx context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	if f.createErr != nil {
		return payroll.Payslip{}, f.createErr
	}
	f.nextID++
	p.ID = fmt.Sprintf("slip-%d", f.nextID)
	f.slips[p.ID] = p
	return p, nil
}

func (f *fakePayslipRepository) GetByID(ctx context.Context, tenantID, id string) (payroll.Payslip, error) {
	p, ok := f.slips[id]
	if !ok || p.TenantID != tenantID {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return p, nil
}

func (f *fakePayslipRepository) UpdateAttendance(ctx context.Context, tenantID, id string, a payroll.AttendanceSummary, needsRecalculation bool) error {
	if f.attendanceFn != nil {
		f.attendanceFn(id, a, needsRecalculation)
	}
	p := f.slips[id]
	p.Attendance = a
	p.NeedsRecalculation = needsRecalculation
	f.slips[id] = p
	return nil
}

func (f *fakePayslipRepository) UpdateReviewState(ctx context.Context, tenantID, id string, status payroll.PayslipStatus, requiresManualReview bool) error {
	p := f.slips[id]
	p.Status = status
	p.RequiresManualReview = requiresManualReview
	f.slips[id] = p
	return nil
}

func (f *fakePayslipRepository) ReplaceComputation(ctx context.Context, p payroll.Payslip) error {
	f.replaced = append(f.replaced, p)
	f.slips[p.ID] = p
	return nil
}

func (f *fakePayslipRepository) ListByRun(ctx context.Context, tenantID, runID string) ([]payroll.Payslip, error) {
	var out []payroll.Payslip
	for _, p := range f.slips {
		if p.TenantID == tenantID && p.RunID == runID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayslipRepository) ListNeedingRecalculation(ctx context.Context, limit int) ([]payroll.Payslip, error) {
	var out []payroll.Payslip
	for i := 1; i <= f.nextID+len(f.slips); i++ {
		p, ok := f.slips[fmt.Sprintf("slip-%d", i)]
		if ok && p.NeedsRecalculation && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAmendmentRepository struct {
	latest  int
	created []payroll.AmendedPayslip
}

func (f *fakeAmendmentRepository) Create(ctx context.Context, a payroll.AmendedPayslip) (payroll.AmendedPayslip, error) {
	a.ID = fmt.Sprintf("amend-%d", a.Version)
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeAmendmentRepository) LatestVersion(ctx context.Context, tenantID, payslipID string) (int, error) {
	return f.latest, nil
}

func (f *fakeAmendmentRepository) ListByPayslip(ctx context.Context, tenantID, payslipID string) ([]payroll.AmendedPayslip, error) {
	return f.created, nil
}

type fakeAuditLogRepository struct {
	entries []payroll.AuditEntry
}

func (f *fakeAuditLogRepository) Append(ctx context.Context, entry payroll.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeCompensationService struct {
	breakdownForTemplateFn func(ctx context.Context, tenantID, templateID string) (compensation.SalaryTemplate, compensation.SalaryBreakdown, error)
}

func (f *fakeCompensationService) RulesForTenant(ctx context.Context, tenantID string) (compensation.CompensationRules, error) {
	return compensation.CompensationRules{}, nil
}

func (f *fakeCompensationService) ComputeBreakdown(ctx context.Context, req compensation.ComputeBreakdownRequest) (compensation.SalaryBreakdown, error) {
	return compsvc.NewSolver(compsvc.DefaultTolerance).Solve(req.AnnualCTC, compensation.CompensationRules{})
}

func (f *fakeCompensationService) ValidateManualEdits(ctx context.Context, req compensation.ManualEditRequest) (compensation.StatutoryAmounts, error) {
	return compensation.StatutoryAmounts{}, nil
}

func (f *fakeCompensationService) ProRate(ctx context.Context, req compensation.ProRateRequest) (compensation.ProRateResponse, error) {
	return compensation.ProRateResponse{}, nil
}

func (f *fakeCompensationService) BreakdownForTemplate(ctx context.Context, tenantID, templateID string) (compensation.SalaryTemplate, compensation.SalaryBreakdown, error) {
	if f.breakdownForTemplateFn != nil {
		return f.breakdownForTemplateFn(ctx, tenantID, templateID)
	}
	return compensation.SalaryTemplate{}, compensation.SalaryBreakdown{}, compensation.ErrTemplateNotFound
}

type fakeRevisionService struct {
	revision.RevisionService
	resolveFn func(ctx context.Context, tenantID, employeeID string, periodStart time.Time) (revision.ResolvedSnapshot, error)
}

func (f *fakeRevisionService) ResolveForPeriod(ctx context.Context, tenantID, employeeID string, periodStart time.Time, actorID string) (revision.ResolvedSnapshot, error) {
	return f.resolveFn(ctx, tenantID, employeeID, periodStart)
}

type testDeps struct {
	runs       *fakeRunRepository
	payslips   *fakePayslipRepository
	amendments *fakeAmendmentRepository
	audit      *fakeAuditLogRepository
	comp       *fakeCompensationService
	revisions  *fakeRevisionService
}

var (
	juneStart = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	juneEnd   = time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
)

// solved600k is the 6,00,000 CTC structure under default rules: gross 48200, net 46200.
func solved600k(t *testing.T) compensation.SalaryBreakdown {
	t.Helper()
	b, err := compsvc.NewSolver(compsvc.DefaultTolerance).Solve(d("600000"), compensation.CompensationRules{})
	require.NoError(t, err)
	return b
}

func newTestService(t *testing.T) (*PayrollServiceImpl, testDeps) {
	t.Helper()
	base := solved600k(t)
	deps := testDeps{
		runs: &fakeRunRepository{runs: map[string]payroll.PayrollRun{
			"run-1": {ID: "run-1", TenantID: "tenant-1", PeriodStart: juneStart, PeriodEnd: juneEnd, Status: payroll.RunStatusProcessing},
		}},
		payslips:   &fakePayslipRepository{slips: map[string]payroll.Payslip{}},
		amendments: &fakeAmendmentRepository{},
		audit:      &fakeAuditLogRepository{},
		comp:       &fakeCompensationService{},
		revisions: &fakeRevisionService{resolveFn: func(ctx context.Context, tenantID, employeeID string, periodStart time.Time) (revision.ResolvedSnapshot, error) {
			return revision.ResolvedSnapshot{
				Snapshot: revision.Snapshot{Breakdown: base, Locked: true},
				Revision: revision.SalaryRevision{ID: "rev-1", TenantID: tenantID, EmployeeID: employeeID},
			}, nil
		}},
	}

	svc := NewPayrollService(fakeTransactor{}, deps.runs, deps.payslips, deps.amendments, deps.audit, deps.comp, deps.revisions, fixedGuard()).(*PayrollServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc, deps
}

func generateRequest() payroll.GeneratePayslipRequest {
	return payroll.GeneratePayslipRequest{
		TenantID:     "tenant-1",
		ActorID:      "admin-1",
		RunID:        "run-1",
		EmployeeID:   "emp-1",
		EmployeeName: "Asha",
		Attendance:   payroll.AttendanceSummary{TotalDays: 30, PresentDays: 30},
		Bank:         payroll.BankDetails{BankName: "HDFC"},
	}
}

func TestGeneratePayslip_FullMonth(t *testing.T) {
	svc, deps := newTestService(t)
	req := generateRequest()
	req.PostTaxDeductions = []payroll.PayslipLine{{Name: "LOAN", Amount: d("1000")}}

	slip, analysis, err := svc.GeneratePayslip(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "slip-1", slip.ID)
	assertDec(t, "48200", slip.GrossEarnings, "gross")
	assertDec(t, "1800", slip.PreTaxDeductions, "pre-tax")
	assertDec(t, "200", slip.TaxDeductions, "tax")
	assertDec(t, "1000", slip.PostTaxDeductions, "post-tax")
	assertDec(t, "45200", slip.NetPay, "net")
	assertDec(t, "1800", slip.EmployerContributions, "employer")
	assert.Len(t, slip.Lines, 9)
	assert.Equal(t, payroll.PayslipStatusProcessed, slip.Status)
	require.NotNil(t, slip.RevisionID)
	assert.Equal(t, "rev-1", *slip.RevisionID)
	assert.False(t, analysis.HasNegativeNetPay)
	assert.Contains(t, deps.payslips.slips, "slip-1")
}

func TestGeneratePayslip_NegativeNetIsDisputed(t *testing.T) {
	svc, _ := newTestService(t)
	req := generateRequest()
	req.PostTaxDeductions = []payroll.PayslipLine{{Name: "ADVANCE_RECOVERY", Amount: d("50000")}}

	slip, analysis, err := svc.GeneratePayslip(context.Background(), req)
	require.NoError(t, err)

	assertDec(t, "-3800", slip.NetPay, "net")
	assert.Equal(t, payroll.PayslipStatusDisputed, slip.Status)
	assert.True(t, slip.RequiresManualReview)
	assert.True(t, analysis.HasNegativeNetPay)
	assert.Equal(t, slip.ID, analysis.PayslipID)
	assert.Equal(t, []payroll.RootCause{payroll.CauseHighPostTaxDeductions}, analysis.RootCauses)
	require.Len(t, analysis.Transitions, 1)
	assert.Equal(t, slip.ID, analysis.Transitions[0].PayslipID)
}

func TestGeneratePayslip_NewJoinerIsProrated(t *testing.T) {
	svc, _ := newTestService(t)
	req := generateRequest()
	joining := "2026-06-16"
	req.JoiningDate = &joining

	slip, _, err := svc.GeneratePayslip(context.Background(), req)
	require.NoError(t, err)

	// 15 of 30 days
	assertDec(t, "24100", slip.GrossEarnings, "gross")
	assertDec(t, "10000", slip.Breakdown.Basic.Monthly, "basic")
}

func TestGeneratePayslip_LockedRun(t *testing.T) {
	svc, deps := newTestService(t)
	run := deps.runs.runs["run-1"]
	run.Status = payroll.RunStatusPaid
	deps.runs.runs["run-1"] = run

	_, _, err := svc.GeneratePayslip(context.Background(), generateRequest())

	assert.True(t, errors.Is(err, payroll.ErrRunAlreadyPaid))
	assert.Empty(t, deps.payslips.slips)
}

func seedPayslip(t *testing.T, svc *PayrollServiceImpl, createdAt time.Time) payroll.Payslip {
	t.Helper()
	slip, _, err := svc.GeneratePayslip(context.Background(), generateRequest())
	require.NoError(t, err)
	payslips := svc.payslipRepo.(*fakePayslipRepository)
	slip.CreatedAt = createdAt
	payslips.slips[slip.ID] = slip
	svc.runRepo.(*fakeRunRepository).getForUpdateN = 0
	return slip
}

func templateBreakdown(t *testing.T) func(ctx context.Context, tenantID, templateID string) (compensation.SalaryTemplate, compensation.SalaryBreakdown, error) {
	return func(ctx context.Context, tenantID, templateID string) (compensation.SalaryTemplate, compensation.SalaryBreakdown, error) {
		b, err := compsvc.NewSolver(compsvc.DefaultTolerance).Solve(d("720000"), compensation.CompensationRules{})
		require.NoError(t, err)
		return compensation.SalaryTemplate{ID: templateID, TenantID: tenantID, Name: "Senior", AnnualCTC: d("720000")}, b, nil
	}
}

func reviseRequest(payslipID string) payroll.ReviseSalaryTemplateRequest {
	return payroll.ReviseSalaryTemplateRequest{
		TenantID:   "tenant-1",
		ActorID:    "admin-1",
		PayslipID:  payslipID,
		TemplateID: "tmpl-senior",
		Reason:     "promotion missed in June",
	}
}

func TestReviseSalaryTemplate_CreatesLinkedAmendment(t *testing.T) {
	svc, deps := newTestService(t)
	deps.comp.breakdownForTemplateFn = templateBreakdown(t)
	deps.amendments.latest = 1
	slip := seedPayslip(t, svc, fixedNow.AddDate(0, 0, -10))

	amended, err := svc.ReviseSalaryTemplate(context.Background(), reviseRequest(slip.ID))
	require.NoError(t, err)

	assert.Equal(t, slip.ID, amended.OriginalPayslipID)
	assert.Equal(t, 2, amended.Version)
	assert.Equal(t, payroll.AmendmentStatusPendingApproval, amended.Status)
	require.NotNil(t, amended.Changes.SalaryTemplateID)
	assert.Equal(t, "tmpl-senior", *amended.Changes.SalaryTemplateID)
	require.NotNil(t, amended.RecalculatedValues)
	assert.True(t, amended.RecalculatedValues.GrossEarnings.Monthly.GreaterThan(slip.GrossEarnings))

	// original untouched
	assert.Equal(t, slip, deps.payslips.slips[slip.ID])
	require.Len(t, deps.audit.entries, 1)
	assert.Equal(t, payroll.AuditActionTemplateAmended, deps.audit.entries[0].Action)
	assert.Equal(t, "admin-1", deps.audit.entries[0].ActorID)
}

func TestReviseSalaryTemplate_WindowCheckedBeforeLock(t *testing.T) {
	svc, deps := newTestService(t)
	deps.comp.breakdownForTemplateFn = templateBreakdown(t)
	slip := seedPayslip(t, svc, fixedNow.AddDate(0, 0, -35))

	_, err := svc.ReviseSalaryTemplate(context.Background(), reviseRequest(slip.ID))
	assert.True(t, errors.Is(err, payroll.ErrAmendmentWindowPassed))
	assert.Zero(t, deps.runs.getForUpdateN)

	// still the window reason once the run is paid
	run := deps.runs.runs["run-1"]
	run.Status = payroll.RunStatusPaid
	deps.runs.runs["run-1"] = run
	_, err = svc.ReviseSalaryTemplate(context.Background(), reviseRequest(slip.ID))
	assert.True(t, errors.Is(err, payroll.ErrAmendmentWindowPassed))
	assert.Empty(t, deps.amendments.created)
	assert.Empty(t, deps.audit.entries)
}

func TestReviseSalaryTemplate_ApprovedRun(t *testing.T) {
	svc, deps := newTestService(t)
	deps.comp.breakdownForTemplateFn = templateBreakdown(t)
	slip := seedPayslip(t, svc, fixedNow.AddDate(0, 0, -5))
	run := deps.runs.runs["run-1"]
	run.Status = payroll.RunStatusApproved
	deps.runs.runs["run-1"] = run

	_, err := svc.ReviseSalaryTemplate(context.Background(), reviseRequest(slip.ID))

	assert.True(t, errors.Is(err, payroll.ErrRunAlreadyApproved))
	assert.Equal(t, 1, deps.runs.getForUpdateN)
	assert.Empty(t, deps.amendments.created)
}

func attendanceRequest(payslipID string) payroll.CorrectAttendanceRequest {
	return payroll.CorrectAttendanceRequest{
		TenantID:   "tenant-1",
		ActorID:    "admin-1",
		PayslipID:  payslipID,
		Attendance: payroll.AttendanceSummary{TotalDays: 30, PresentDays: 27, LOPDays: 3},
		Reason:     "biometric sync missed three absences",
	}
}

func TestCorrectBackdatedAttendance(t *testing.T) {
	svc, deps := newTestService(t)
	slip := seedPayslip(t, svc, fixedNow.AddDate(0, 0, -40))

	updated, err := svc.CorrectBackdatedAttendance(context.Background(), attendanceRequest(slip.ID))
	require.NoError(t, err)

	assert.True(t, updated.NeedsRecalculation)
	assert.Equal(t, 3, updated.Attendance.LOPDays)
	assert.True(t, deps.payslips.slips[slip.ID].NeedsRecalculation)
	require.Len(t, deps.audit.entries, 1)
	entry := deps.audit.entries[0]
	assert.Equal(t, payroll.AuditActionAttendanceCorrected, entry.Action)
	assert.Equal(t, 0, entry.Before["lop_days"])
	assert.Equal(t, 3, entry.After["lop_days"])
}

func TestCorrectBackdatedAttendance_LockGate(t *testing.T) {
	tests := []struct {
		name   string
		status payroll.RunStatus
		locked bool
		want   error
	}{
		{"paid", payroll.RunStatusPaid, false, payroll.ErrRunAlreadyPaid},
		{"approved", payroll.RunStatusApproved, false, payroll.ErrRunAlreadyApproved},
		{"explicitly locked", payroll.RunStatusProcessed, true, payroll.ErrRunExplicitlyLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			slip := seedPayslip(t, svc, fixedNow)
			called := false
			deps.payslips.attendanceFn = func(string, payroll.AttendanceSummary, bool) { called = true }
			run := deps.runs.runs["run-1"]
			run.Status = tt.status
			run.Locked = tt.locked
			deps.runs.runs["run-1"] = run

			_, err := svc.CorrectBackdatedAttendance(context.Background(), attendanceRequest(slip.ID))

			assert.True(t, errors.Is(err, tt.want))
			assert.False(t, called)
			assert.Empty(t, deps.audit.entries)
		})
	}
}

func TestRecalculatePending(t *testing.T) {
	svc, deps := newTestService(t)
	req := generateRequest()
	req.PostTaxDeductions = []payroll.PayslipLine{{Name: "LOAN", Amount: d("500")}}
	slip, _, err := svc.GeneratePayslip(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CorrectBackdatedAttendance(context.Background(), attendanceRequest(slip.ID))
	require.NoError(t, err)

	done, err := svc.RecalculatePending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	got := deps.payslips.slips[slip.ID]
	assert.False(t, got.NeedsRecalculation)
	// 27 of 30 days
	assertDec(t, "43380", got.GrossEarnings, "gross")
	assertDec(t, "1800", got.PreTaxDeductions, "pre-tax")
	assertDec(t, "500", got.PostTaxDeductions, "post-tax kept")
	assertDec(t, "40880", got.NetPay, "net")
	assert.True(t, got.BaseBreakdown.GrossEarnings.Monthly.Equal(decimal.NewFromInt(48200)))

	last := deps.audit.entries[len(deps.audit.entries)-1]
	assert.Equal(t, payroll.AuditActionRecalculated, last.Action)
}

func TestRecalculatePending_SkipsLockedRuns(t *testing.T) {
	svc, deps := newTestService(t)
	slip := seedPayslip(t, svc, fixedNow)
	_, err := svc.CorrectBackdatedAttendance(context.Background(), attendanceRequest(slip.ID))
	require.NoError(t, err)

	run := deps.runs.runs["run-1"]
	run.Status = payroll.RunStatusApproved
	deps.runs.runs["run-1"] = run

	done, err := svc.RecalculatePending(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, done)
	assert.Empty(t, deps.payslips.replaced)
	assert.True(t, deps.payslips.slips[slip.ID].NeedsRecalculation)
}

func TestAnalyzePayslip_PersistsTransition(t *testing.T) {
	svc, deps := newTestService(t)
	slip := seedPayslip(t, svc, fixedNow)
	slip.Lines = append(slip.Lines, payroll.PayslipLine{Name: "LOAN", Category: payroll.LinePostTaxDeduction, Amount: d("47000")})
	applyTotals(&slip)
	deps.payslips.slips[slip.ID] = slip

	analysis, err := svc.AnalyzePayslip(context.Background(), "tenant-1", slip.ID)
	require.NoError(t, err)

	assert.True(t, analysis.HasNegativeNetPay)
	stored := deps.payslips.slips[slip.ID]
	assert.Equal(t, payroll.PayslipStatusDisputed, stored.Status)
	assert.True(t, stored.RequiresManualReview)
	require.Len(t, deps.audit.entries, 1)
	assert.Equal(t, payroll.AuditActionDisputed, deps.audit.entries[0].Action)
}

func TestSummarizeRun(t *testing.T) {
	svc, _ := newTestService(t)
	seedPayslip(t, svc, fixedNow)
	seedPayslip(t, svc, fixedNow)

	summary, err := svc.SummarizeRun(context.Background(), "tenant-1", "run-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assertDec(t, "92400", summary.TotalNetPay, "net")
	require.Len(t, summary.BankTransfers, 1)
	assert.Equal(t, 2, summary.BankTransfers[0].Employees)
}
