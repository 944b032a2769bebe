/**
 * @description
 * Cron-driven expiry sweep. Lazy expiry checks already reject transitions
 * against expired products at access time; the sweep additionally moves idle
 * expired products to their terminal status so market projections and
 * downstream consumers see them without waiting for the next caller action.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpirySweeper schedules the periodic product-expiry job.
type ExpirySweeper struct {
	cron     *cron.Cron
	service  *Service
	schedule string
}

// NewExpirySweeper creates a sweeper running the given cron schedule.
func NewExpirySweeper(service *Service, schedule string) *ExpirySweeper {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &ExpirySweeper{
		cron:     c,
		service:  service,
		schedule: schedule,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *ExpirySweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("level=info component=sweeper msg=\"expiry sweep scheduled\" schedule=%q", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler and returns a context that is done once
// any in-flight sweep has finished.
func (s *ExpirySweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *ExpirySweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := s.service.ExpireDueProducts(ctx)
	if err != nil {
		log.Printf("level=error component=sweeper msg=\"expiry sweep failed\" expired=%d err=%v", expired, err)
		return
	}
	if expired > 0 {
		log.Printf("level=info component=sweeper msg=\"expiry sweep complete\" expired=%d", expired)
	}
}
