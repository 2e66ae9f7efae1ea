// Package extender runs the horizon extension sweep on a schedule so
// long-lived recurring series never run out of materialized instances.
package extender

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mfserna/taskcycle/internal/service"
)

type Daemon struct {
	mu sync.Mutex

	svc  service.ExtenderService
	spec string
	log  zerolog.Logger

	c       *cron.Cron
	running bool
}

func NewDaemon(svc service.ExtenderService, spec string, log zerolog.Logger) *Daemon {
	return &Daemon{svc: svc, spec: spec, log: log}
}

// Start schedules the sweep and runs one immediately so a freshly started
// daemon catches up without waiting for the first tick.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(d.spec, func() { d.sweep(ctx) }); err != nil {
		return fmt.Errorf("registering sweep schedule %q: %w", d.spec, err)
	}
	d.c = c
	c.Start()
	d.log.Info().Str("spec", d.spec).Msg("extender daemon started")

	go d.sweep(ctx)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c == nil {
		return
	}
	<-d.c.Stop().Done()
	d.c = nil
	d.log.Info().Msg("extender daemon stopped")
}

// sweep runs one extension pass. Overlapping ticks are dropped rather
// than queued: the next tick will pick up whatever this one misses.
func (d *Daemon) sweep(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.log.Warn().Msg("previous sweep still running, skipping tick")
		return
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	started := time.Now()
	report, err := d.svc.ExtendDueMasters(ctx, time.Now().UTC())
	if err != nil {
		d.log.Error().Err(err).Msg("extension sweep failed")
		return
	}
	for _, f := range report.Failures {
		d.log.Warn().Err(f.Err).Str("master_id", f.MasterID).Msg("master not extended")
	}
	d.log.Info().
		Int("masters_extended", report.MastersExtended).
		Int("instances_created", report.InstancesCreated).
		Int("failures", len(report.Failures)).
		Dur("took", time.Since(started)).
		Msg("extension sweep finished")
}
