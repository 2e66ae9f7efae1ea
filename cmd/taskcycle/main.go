package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/mfserna/taskcycle/internal/cli"
	"github.com/mfserna/taskcycle/internal/cli/formatter"
	"github.com/mfserna/taskcycle/internal/config"
	"github.com/mfserna/taskcycle/internal/db"
	"github.com/mfserna/taskcycle/internal/extender"
	"github.com/mfserna/taskcycle/internal/repository"
	"github.com/mfserna/taskcycle/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("TASKCYCLE_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	taskRepo := repository.NewSQLiteTaskRepo(database)
	exceptionRepo := repository.NewSQLiteExceptionRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	// Service telemetry goes to stderr only when asked for.
	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if os.Getenv("TASKCYCLE_DEBUG") != "" {
		observer = service.NewLogUseCaseObserver(os.Stderr)
	}

	extenderSvc := service.NewExtenderService(taskRepo, uow, cfg.Generation, cfg.Extender, observer)

	app := &cli.App{
		Tasks:    service.NewTaskService(taskRepo, uow, cfg.Generation, observer),
		Series:   service.NewSeriesService(taskRepo, uow, cfg.Generation, observer),
		Query:    service.NewQueryService(taskRepo, exceptionRepo, cfg.Generation, cfg.Query, observer),
		Extender: extenderSvc,
	}

	app.RunDaemon = func(ctx context.Context) error {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		daemon := extender.NewDaemon(extenderSvc, cfg.Extender.CronSpec, log)

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := daemon.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		daemon.Stop()
		return nil
	}

	formatter.SetColorEnabled(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	return cli.NewRootCmd(app).Execute()
}
