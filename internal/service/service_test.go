package service

import (
	"database/sql"
	"testing"

	"github.com/mfserna/taskcycle/internal/config"
	"github.com/mfserna/taskcycle/internal/db"
	"github.com/mfserna/taskcycle/internal/repository"
	"github.com/mfserna/taskcycle/internal/testutil"
)

type testEnv struct {
	db         *sql.DB
	tasks      *repository.SQLiteTaskRepo
	exceptions *repository.SQLiteExceptionRepo
	uow        db.UnitOfWork
	cfg        config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	return &testEnv{
		db:         database,
		tasks:      repository.NewSQLiteTaskRepo(database),
		exceptions: repository.NewSQLiteExceptionRepo(database),
		uow:        testutil.NewTestUoW(database),
		cfg:        config.Default(),
	}
}

func (e *testEnv) taskService() TaskService {
	return NewTaskService(e.tasks, e.uow, e.cfg.Generation)
}

func (e *testEnv) seriesService() SeriesService {
	return NewSeriesService(e.tasks, e.uow, e.cfg.Generation)
}

func (e *testEnv) queryService() QueryService {
	return NewQueryService(e.tasks, e.exceptions, e.cfg.Generation, e.cfg.Query)
}

func (e *testEnv) extenderService() ExtenderService {
	return NewExtenderService(e.tasks, e.uow, e.cfg.Generation, e.cfg.Extender)
}
