package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/repository"
	"github.com/mfserna/taskcycle/internal/testutil"
)

// brokenInstanceDates fails ListInstanceDates for one master and delegates
// everything else to the real repository.
type brokenInstanceDates struct {
	repository.TaskRepo
	masterID string
}

func (r *brokenInstanceDates) ListInstanceDates(ctx context.Context, masterID string) ([]time.Time, error) {
	if masterID == r.masterID {
		return nil, errors.New("disk I/O error")
	}
	return r.TaskRepo.ListInstanceDates(ctx, masterID)
}

func seedExpiringMaster(t *testing.T, env *testEnv, title string, opts ...testutil.TaskOption) *domain.Task {
	t.Helper()
	ctx := context.Background()
	opts = append([]testutil.TaskOption{testutil.WithRecurrenceEnd(testutil.Date(2026, 1, 5))}, opts...)
	master := testutil.NewTestMaster(title, testutil.Date(2026, 1, 1),
		domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1}, opts...)
	require.NoError(t, env.tasks.Create(ctx, master))
	for day := 1; day <= 5; day++ {
		require.NoError(t, env.tasks.Create(ctx, testutil.NewTestInstance(master, testutil.Date(2026, 1, day))))
	}
	return master
}

func TestExtendDueMastersPushesHorizon(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Extender.LookaheadDays = 90
	env.cfg.Extender.ExtendYears = 1
	ctx := context.Background()

	master := seedExpiringMaster(t, env, "Daily backup check")
	now := testutil.Date(2026, 1, 10)

	report, err := env.extenderService().ExtendDueMasters(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MastersExtended)
	assert.Equal(t, 365, report.InstancesCreated)

	stored, err := env.tasks.GetByID(ctx, master.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RecurrenceEndDate)
	assert.Equal(t, testutil.Date(2027, 1, 5), *stored.RecurrenceEndDate)

	dates, err := env.tasks.ListInstanceDates(ctx, master.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 370)
	seen := map[string]bool{}
	for _, d := range dates {
		key := d.Format("2006-01-02")
		require.Falsef(t, seen[key], "duplicate instance on %s", key)
		seen[key] = true
	}
}

func TestExtendDueMastersIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Extender.LookaheadDays = 90
	env.cfg.Extender.ExtendYears = 1
	ctx := context.Background()

	master := seedExpiringMaster(t, env, "Daily backup check")
	now := testutil.Date(2026, 1, 10)

	first, err := env.extenderService().ExtendDueMasters(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, first.MastersExtended)

	// The horizon now ends well past the lookahead window.
	second, err := env.extenderService().ExtendDueMasters(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.MastersExtended)
	assert.Equal(t, 0, second.InstancesCreated)

	dates, err := env.tasks.ListInstanceDates(ctx, master.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 370)
}

func TestExtendDueMastersSkipsBoundedRules(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Extender.LookaheadDays = 90
	ctx := context.Background()

	count := 5
	master := testutil.NewTestMaster("Five payments", testutil.Date(2026, 1, 1),
		domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Count: &count},
		testutil.WithRecurrenceEnd(testutil.Date(2026, 1, 5)))
	require.NoError(t, env.tasks.Create(ctx, master))

	report, err := env.extenderService().ExtendDueMasters(ctx, testutil.Date(2026, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, report.MastersExtended)
	assert.Equal(t, 0, report.InstancesCreated)

	stored, err := env.tasks.GetByID(ctx, master.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2026, 1, 5), *stored.RecurrenceEndDate)
}

func TestExtendDueMastersLongCycle(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Generation.MaxOccurrences = 2000
	env.cfg.Extender.LookaheadDays = 90
	env.cfg.Extender.ExtendYears = 1
	env.cfg.Extender.LongCycleExtendYears = 3
	ctx := context.Background()

	master := seedExpiringMaster(t, env, "Equipment overhaul", testutil.WithLongCycle())

	report, err := env.extenderService().ExtendDueMasters(ctx, testutil.Date(2026, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, report.MastersExtended)
	// 2026-01-06 through 2029-01-05, one instance per day.
	assert.Equal(t, 1096, report.InstancesCreated)

	stored, err := env.tasks.GetByID(ctx, master.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2029, 1, 5), *stored.RecurrenceEndDate)
}

func TestExtendDueMastersCapsCreationPerSweep(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Extender.LookaheadDays = 90
	env.cfg.Extender.ExtendYears = 1
	env.cfg.Extender.LongCycleExtendYears = 3
	ctx := context.Background()

	// A three-year daily extension wants 1096 instances; the default cap
	// of 1000 stops the horizon at the last created date.
	master := seedExpiringMaster(t, env, "Equipment overhaul", testutil.WithLongCycle())

	report, err := env.extenderService().ExtendDueMasters(ctx, testutil.Date(2026, 1, 10))
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.MastersExtended)
	assert.Equal(t, 1000, report.InstancesCreated)

	stored, err := env.tasks.GetByID(ctx, master.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RecurrenceEndDate)
	assert.Equal(t, testutil.Date(2028, 10, 1), *stored.RecurrenceEndDate)

	dates, err := env.tasks.ListInstanceDates(ctx, master.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 1005)

	// A sweep near the shortened horizon picks up where this one stopped.
	later, err := env.extenderService().ExtendDueMasters(ctx, testutil.Date(2028, 9, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, later.MastersExtended)
	assert.Equal(t, 1000, later.InstancesCreated)

	stored, err = env.tasks.GetByID(ctx, master.ID)
	require.NoError(t, err)
	assert.True(t, stored.RecurrenceEndDate.After(testutil.Date(2028, 10, 1)))
}

func TestExtendDueMastersIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Extender.LookaheadDays = 90
	env.cfg.Extender.ExtendYears = 1
	ctx := context.Background()

	broken := seedExpiringMaster(t, env, "Corrupt series")
	healthy := seedExpiringMaster(t, env, "Daily backup check")

	svc := NewExtenderService(
		&brokenInstanceDates{TaskRepo: env.tasks, masterID: broken.ID},
		env.uow, env.cfg.Generation, env.cfg.Extender)

	report, err := svc.ExtendDueMasters(ctx, testutil.Date(2026, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, report.MastersExtended)
	assert.Equal(t, 365, report.InstancesCreated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken.ID, report.Failures[0].MasterID)
	assert.ErrorContains(t, report.Failures[0].Err, "disk I/O error")

	stored, err := env.tasks.GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2027, 1, 5), *stored.RecurrenceEndDate)

	stored, err = env.tasks.GetByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2026, 1, 5), *stored.RecurrenceEndDate)
}

func TestExtendDueMastersIgnoresDistantHorizons(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Extender.LookaheadDays = 30
	ctx := context.Background()

	master := testutil.NewTestMaster("Far-off series", testutil.Date(2026, 1, 1),
		domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
		testutil.WithRecurrenceEnd(testutil.Date(2027, 6, 1)))
	require.NoError(t, env.tasks.Create(ctx, master))

	report, err := env.extenderService().ExtendDueMasters(ctx, testutil.Date(2026, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, report.MastersExtended)
}
