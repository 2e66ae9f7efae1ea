package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyRule() domain.RecurrenceRule {
	return domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1}
}

func TestTaskRepo_CreateAndGet_RoundTripsRule(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)
	ctx := context.Background()

	count := 6
	end := testutil.Date(2025, 6, 30)
	master := testutil.NewTestMaster("Payroll run", testutil.Date(2024, 1, 31), domain.RecurrenceRule{
		Frequency: domain.FreqMonthly,
		Interval:  1,
		Count:     &count,
	}, testutil.WithBusiness("biz-1"), testutil.WithRecurrenceEnd(end))
	require.NoError(t, repo.Create(ctx, master))

	got, err := repo.GetByID(ctx, master.ID)
	require.NoError(t, err)

	assert.Equal(t, master.Title, got.Title)
	assert.Equal(t, domain.KindMaster, got.Kind)
	require.NotNil(t, got.Rule)
	assert.Equal(t, domain.FreqMonthly, got.Rule.Frequency)
	require.NotNil(t, got.Rule.Count)
	assert.Equal(t, 6, *got.Rule.Count)
	require.NotNil(t, got.RecurrenceEndDate)
	assert.True(t, got.RecurrenceEndDate.Equal(end))
	assert.True(t, got.StartDate.Equal(testutil.Date(2024, 1, 31)))
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepo_CreateMany_And_ListInstances(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)
	ctx := context.Background()

	master := testutil.NewTestMaster("Stock count", testutil.Date(2024, 1, 1), dailyRule())
	require.NoError(t, repo.Create(ctx, master))

	var batch []*domain.Task
	for i := 0; i < 5; i++ {
		batch = append(batch, testutil.NewTestInstance(master, testutil.Date(2024, 1, 1+i)))
	}
	require.NoError(t, repo.CreateMany(ctx, batch))

	instances, err := repo.ListInstances(ctx, master.ID)
	require.NoError(t, err)
	require.Len(t, instances, 5)
	for i, inst := range instances {
		assert.True(t, inst.StartDate.Equal(testutil.Date(2024, 1, 1+i)), "instances ordered by date")
		require.NotNil(t, inst.ParentTaskID)
		assert.Equal(t, master.ID, *inst.ParentTaskID)
	}

	dates, err := repo.ListInstanceDates(ctx, master.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 5)
}

func TestTaskRepo_DeleteMaster_CascadesToInstancesAndExceptions(t *testing.T) {
	database := testutil.NewTestDB(t)
	tasks := NewSQLiteTaskRepo(database)
	exceptions := NewSQLiteExceptionRepo(database)
	ctx := context.Background()

	master := testutil.NewTestMaster("Cleaning", testutil.Date(2024, 1, 1), dailyRule())
	require.NoError(t, tasks.Create(ctx, master))
	inst := testutil.NewTestInstance(master, testutil.Date(2024, 1, 2))
	require.NoError(t, tasks.Create(ctx, inst))
	require.NoError(t, exceptions.Upsert(ctx, &domain.Exception{
		MasterTaskID: master.ID,
		Date:         testutil.Date(2024, 1, 3),
		Type:         domain.ExceptionCancelled,
		CreatedAt:    time.Now().UTC(),
	}))

	require.NoError(t, tasks.Delete(ctx, master.ID))

	_, err := tasks.GetByID(ctx, inst.ID)
	assert.ErrorIs(t, err, ErrNotFound, "instances cascade with the master")

	excs, err := exceptions.ListByMaster(ctx, master.ID)
	require.NoError(t, err)
	assert.Empty(t, excs, "exceptions cascade with the master")
}

func TestTaskRepo_List_Filters(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)
	ctx := context.Background()

	a := testutil.NewTestStandalone("A", testutil.Date(2024, 1, 5),
		testutil.WithAssignee("u1"), testutil.WithBusiness("b1"))
	b := testutil.NewTestStandalone("B", testutil.Date(2024, 2, 5),
		testutil.WithAssignee("u2"), testutil.WithBusiness("b1"),
		testutil.WithStatus(domain.TaskDone))
	m := testutil.NewTestMaster("M", testutil.Date(2024, 3, 1), dailyRule(),
		testutil.WithBusiness("b2"))
	for _, task := range []*domain.Task{a, b, m} {
		require.NoError(t, repo.Create(ctx, task))
	}

	from := testutil.Date(2024, 2, 1)
	got, err := repo.List(ctx, TaskQuery{From: &from})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.List(ctx, TaskQuery{AssigneeID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)

	done := domain.TaskDone
	got, err = repo.List(ctx, TaskQuery{Status: &done, BusinessID: "b1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Title)

	masterKind := domain.KindMaster
	got, err = repo.List(ctx, TaskQuery{Kind: &masterKind})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "M", got[0].Title)
}

func TestTaskRepo_UpdateSeries_TouchesMasterAndInstancesOnly(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)
	ctx := context.Background()

	master := testutil.NewTestMaster("Inventory", testutil.Date(2024, 1, 1), dailyRule())
	require.NoError(t, repo.Create(ctx, master))
	inst := testutil.NewTestInstance(master, testutil.Date(2024, 1, 2))
	require.NoError(t, repo.Create(ctx, inst))
	other := testutil.NewTestStandalone("Unrelated", testutil.Date(2024, 1, 2))
	require.NoError(t, repo.Create(ctx, other))

	newTitle := "Inventory v2"
	n, err := repo.UpdateSeries(ctx, master.ID, domain.TaskChanges{Title: &newTitle}, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	gotMaster, err := repo.GetByID(ctx, master.ID)
	require.NoError(t, err)
	assert.Equal(t, newTitle, gotMaster.Title)

	gotInst, err := repo.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, newTitle, gotInst.Title)

	gotOther, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Unrelated", gotOther.Title)
}

func TestTaskRepo_ListMastersExpiringBy(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)
	ctx := context.Background()

	soon := testutil.NewTestMaster("Soon", testutil.Date(2024, 1, 1), dailyRule(),
		testutil.WithRecurrenceEnd(testutil.Date(2024, 3, 1)))
	later := testutil.NewTestMaster("Later", testutil.Date(2024, 1, 1), dailyRule(),
		testutil.WithRecurrenceEnd(testutil.Date(2026, 1, 1)))
	require.NoError(t, repo.Create(ctx, soon))
	require.NoError(t, repo.Create(ctx, later))

	got, err := repo.ListMastersExpiringBy(ctx, testutil.Date(2024, 4, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Soon", got[0].Title)
}

func TestTaskRepo_GetMany(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteTaskRepo(database)
	ctx := context.Background()

	a := testutil.NewTestStandalone("A", testutil.Date(2024, 1, 1))
	b := testutil.NewTestStandalone("B", testutil.Date(2024, 1, 2))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetMany(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, a.ID)
	assert.Contains(t, got, b.ID)
}
