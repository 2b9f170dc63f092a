package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnceRunsEveryJob(t *testing.T) {
	s := NewScheduler(context.Background())
	var calls []string
	s.AddJob(Job{Name: "a", Interval: time.Minute, Fn: func(ctx context.Context) error {
		calls = append(calls, "a")
		return nil
	}})
	s.AddJob(Job{Name: "b", Interval: time.Minute, Fn: func(ctx context.Context) error {
		calls = append(calls, "b")
		return errors.New("failed")
	}})
	s.AddJob(Job{Name: "c", Interval: time.Minute, Fn: func(ctx context.Context) error {
		calls = append(calls, "c")
		return nil
	}})

	s.RunOnce(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestScheduler_JobGetsTimeout(t *testing.T) {
	s := NewScheduler(context.Background())
	var hasDeadline bool
	s.AddJob(Job{Name: "a", Interval: time.Minute, Timeout: time.Second, Fn: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}})

	s.RunOnce(context.Background())

	assert.True(t, hasDeadline)
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler(context.Background())
	var runs atomic.Int32
	started := make(chan struct{}, 1)
	s.AddJob(Job{Name: "a", Interval: time.Hour, Fn: func(ctx context.Context) error {
		runs.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		return nil
	}})

	s.Start()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

type fakePayrollService struct {
	payroll.PayrollService
	limit int
}

func (f *fakePayrollService) RecalculatePending(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return 0, nil
}

func TestPayrollJobs_RecalculatesWithBatchSize(t *testing.T) {
	svc := &fakePayrollService{}
	jobs := NewPayrollJobs(svc, 25, 0)
	s := NewScheduler(context.Background())
	jobs.RegisterJobs(s)

	s.RunOnce(context.Background())

	require.Len(t, s.jobs, 1)
	assert.Equal(t, DefaultRecalculationInterval, s.jobs[0].Interval)
	assert.Equal(t, 25, svc.limit)
}
