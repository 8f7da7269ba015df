// Package scheduler owns the recurring triggers. Each trigger runs on a cron
// expression and never overlaps itself: a firing that arrives while the
// previous run is still going is skipped, not queued.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}
}

func (s *Scheduler) Add(ctx context.Context, job Job) error {
	_, err := s.cron.AddFunc(job.Spec, func() {
		log.Printf("[INFO] trigger %q fired", job.Name)
		job.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering trigger %q (%s): %w", job.Name, job.Spec, err)
	}
	return nil
}

// Start runs the triggers until ctx is cancelled, then waits for any
// in-flight run to finish so a shutdown never cuts a batch mid-send.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Printf("[INFO] scheduler started")
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()

	return ctx.Err()
}
