package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

const DefaultRecalculationInterval = 5 * time.Minute

type PayrollJobs struct {
	payrollSvc payroll.PayrollService
	batchSize  int
	interval   time.Duration
}

func NewPayrollJobs(payrollSvc payroll.PayrollService, batchSize int, interval time.Duration) *PayrollJobs {
	if interval <= 0 {
		interval = DefaultRecalculationInterval
	}
	return &PayrollJobs{payrollSvc: payrollSvc, batchSize: batchSize, interval: interval}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     "recalculate_corrected_payslips",
		Interval: j.interval,
		Fn:       j.RecalculateCorrectedPayslips,
	})
}

// RecalculateCorrectedPayslips sweeps payslips flagged by attendance corrections.
func (j *PayrollJobs) RecalculateCorrectedPayslips(ctx context.Context) error {
	_, err := j.payrollSvc.RecalculatePending(ctx, j.batchSize)
	return err
}
