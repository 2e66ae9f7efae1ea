package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mfserna/taskcycle/internal/config"
	"github.com/mfserna/taskcycle/internal/db"
	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
	"github.com/mfserna/taskcycle/internal/repository"
)

type extenderService struct {
	tasks repository.TaskRepo
	uow   db.UnitOfWork
	gen   config.GenerationConfig
	ext   config.ExtenderConfig
	obs   UseCaseObserver
}

func NewExtenderService(
	tasks repository.TaskRepo,
	uow db.UnitOfWork,
	gen config.GenerationConfig,
	ext config.ExtenderConfig,
	observers ...UseCaseObserver,
) ExtenderService {
	return &extenderService{
		tasks: tasks,
		uow:   uow,
		gen:   gen,
		ext:   ext,
		obs:   useCaseObserverOrNoop(observers),
	}
}

// ExtendDueMasters sweeps masters whose materialized horizon ends within
// the lookahead window and pushes each horizon out by the configured
// number of years. Dates that already have an instance are skipped, so
// running the sweep twice in a row creates nothing the second time.
func (s *extenderService) ExtendDueMasters(ctx context.Context, now time.Time) (*ExtendReport, error) {
	cutoff := recur.DateOnly(now).AddDate(0, 0, s.ext.LookaheadDays)

	report := &ExtendReport{}
	err := observe(ctx, s.obs, "extender.sweep", map[string]any{
		"cutoff": cutoff.Format("2006-01-02"),
	}, func() error {
		masters, err := s.tasks.ListMastersExpiringBy(ctx, cutoff)
		if err != nil {
			return err
		}
		if s.ext.BatchSize > 0 && len(masters) > s.ext.BatchSize {
			masters = masters[:s.ext.BatchSize]
		}
		for _, master := range masters {
			created, err := s.extendMaster(ctx, master)
			if err != nil {
				report.Failures = append(report.Failures, ExtendFailure{
					MasterID: master.ID,
					Err:      fmt.Errorf("extending %s: %w", master.DisplayID(), err),
				})
				continue
			}
			if created >= 0 {
				report.MastersExtended++
				report.InstancesCreated += created
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// extendMaster materializes the next horizon of one master inside its own
// transaction. Returns -1 when the master needs no extension.
func (s *extenderService) extendMaster(ctx context.Context, master *domain.Task) (int, error) {
	// Bounded rules end on their own terms; there is no horizon to push.
	if master.Rule == nil || master.Rule.Bounded() {
		return -1, nil
	}

	currentEnd := master.StartDate
	if master.RecurrenceEndDate != nil {
		currentEnd = *master.RecurrenceEndDate
	}
	years := s.ext.ExtendYears
	if master.LongCycle {
		years = s.ext.LongCycleExtendYears
	}
	newEnd := recur.DateOnly(currentEnd).AddDate(years, 0, 0)

	existing, err := s.tasks.ListInstanceDates(ctx, master.ID)
	if err != nil {
		return 0, err
	}

	// Generation restarts from the series anchor so anchored monthly and
	// yearly rules land on the same dates as the original run. Excluding
	// the already-materialized dates leaves only net-new spans; the
	// window itself bounds the expansion, at most one span per day.
	anchor := recur.DateOnly(master.StartDate)
	windowDays := int(newEnd.Sub(anchor).Hours()/24) + 1
	fresh, err := recur.Generate(master.StartDate, *master.Rule, recur.Options{
		EndBound:       &newEnd,
		Exclude:        existing,
		MaxOccurrences: windowDays,
	})
	if err != nil {
		return 0, err
	}

	// One sweep materializes at most the configured cap. When the window
	// holds more, the horizon stops at the last created date and a later
	// sweep continues from there.
	if len(fresh) > s.gen.MaxOccurrences {
		fresh = fresh[:s.gen.MaxOccurrences]
		newEnd = fresh[len(fresh)-1].Start
	}
	instances := materializeInstances(master, fresh)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txTasks := repository.NewSQLiteTaskRepo(tx)
		for _, chunk := range chunkTasks(instances, insertChunk) {
			if err := txTasks.CreateMany(ctx, chunk); err != nil {
				return err
			}
		}
		master.RecurrenceEndDate = &newEnd
		master.UpdatedAt = time.Now().UTC()
		return txTasks.Update(ctx, master)
	})
	if err != nil {
		return 0, err
	}
	return len(instances), nil
}
