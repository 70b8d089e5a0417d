package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvoiceService struct {
	invoicedomain.Service

	markOverdueCalls []time.Time
	markOverdueCount int64
	markOverdueErr   error
}

func (s *stubInvoiceService) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	s.markOverdueCalls = append(s.markOverdueCalls, asOf)
	return s.markOverdueCount, s.markOverdueErr
}

func newTestScheduler(t *testing.T, svc invoicedomain.Service, cfg Config) *Scheduler {
	t.Helper()

	sched, err := New(Params{
		Log:        zap.NewNop(),
		InvoiceSvc: svc,
		Clock:      clock.NewFakeClock(time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC)),
		Config:     cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceMarksOverdue(t *testing.T) {
	svc := &stubInvoiceService{markOverdueCount: 3}
	sched := newTestScheduler(t, svc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	require.Len(t, svc.markOverdueCalls, 1)
	assert.Equal(t, time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC), svc.markOverdueCalls[0])
}

func TestRunOncePropagatesJobError(t *testing.T) {
	boom := errors.New("db down")
	svc := &stubInvoiceService{markOverdueErr: boom}
	sched := newTestScheduler(t, svc, Config{})

	err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	svc := &stubInvoiceService{}
	sched := newTestScheduler(t, svc, Config{EnabledJobs: []string{"other_job"}})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, svc.markOverdueCalls)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
