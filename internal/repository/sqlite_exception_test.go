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

func TestExceptionRepo_UpsertReplacesSameDate(t *testing.T) {
	database := testutil.NewTestDB(t)
	tasks := NewSQLiteTaskRepo(database)
	repo := NewSQLiteExceptionRepo(database)
	ctx := context.Background()

	master := testutil.NewTestMaster("Orders", testutil.Date(2024, 1, 1), dailyRule())
	require.NoError(t, tasks.Create(ctx, master))

	date := testutil.Date(2024, 1, 5)
	require.NoError(t, repo.Upsert(ctx, &domain.Exception{
		MasterTaskID: master.ID,
		Date:         date,
		Type:         domain.ExceptionCancelled,
		CreatedAt:    time.Now().UTC(),
	}))

	newID := "replacement"
	require.NoError(t, repo.Upsert(ctx, &domain.Exception{
		MasterTaskID: master.ID,
		Date:         date,
		Type:         domain.ExceptionModified,
		NewTaskID:    &newID,
		Notes:        "rescoped",
		CreatedAt:    time.Now().UTC(),
	}))

	all, err := repo.ListByMaster(ctx, master.ID)
	require.NoError(t, err)
	require.Len(t, all, 1, "one exception per (master, date)")
	assert.Equal(t, domain.ExceptionModified, all[0].Type)
	require.NotNil(t, all[0].NewTaskID)
	assert.Equal(t, newID, *all[0].NewTaskID)
	assert.Equal(t, "rescoped", all[0].Notes)
}

func TestExceptionRepo_Get(t *testing.T) {
	database := testutil.NewTestDB(t)
	tasks := NewSQLiteTaskRepo(database)
	repo := NewSQLiteExceptionRepo(database)
	ctx := context.Background()

	master := testutil.NewTestMaster("Orders", testutil.Date(2024, 1, 1), dailyRule())
	require.NoError(t, tasks.Create(ctx, master))

	_, err := repo.Get(ctx, master.ID, testutil.Date(2024, 1, 5))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &domain.Exception{
		MasterTaskID: master.ID,
		Date:         testutil.Date(2024, 1, 5),
		Type:         domain.ExceptionMoved,
		CreatedAt:    time.Now().UTC(),
	}))

	got, err := repo.Get(ctx, master.ID, testutil.Date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, domain.ExceptionMoved, got.Type)
	assert.True(t, got.Date.Equal(testutil.Date(2024, 1, 5)))
}

func TestExceptionRepo_ListOrderedByDate(t *testing.T) {
	database := testutil.NewTestDB(t)
	tasks := NewSQLiteTaskRepo(database)
	repo := NewSQLiteExceptionRepo(database)
	ctx := context.Background()

	master := testutil.NewTestMaster("Orders", testutil.Date(2024, 1, 1), dailyRule())
	require.NoError(t, tasks.Create(ctx, master))

	for _, d := range []time.Time{
		testutil.Date(2024, 3, 1), testutil.Date(2024, 1, 15), testutil.Date(2024, 2, 1),
	} {
		require.NoError(t, repo.Upsert(ctx, &domain.Exception{
			MasterTaskID: master.ID,
			Date:         d,
			Type:         domain.ExceptionCancelled,
			CreatedAt:    time.Now().UTC(),
		}))
	}

	all, err := repo.ListByMaster(ctx, master.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Date.Before(all[i].Date))
	}
}
