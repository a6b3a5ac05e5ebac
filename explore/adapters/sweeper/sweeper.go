package sweeper

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const DefaultSchedule = "@every 1m"

// Sweeper closes idle sessions on a cron schedule.
type Sweeper struct {
	log  *slog.Logger
	cron *cron.Cron
	svc  core.Sweeper
	now  func() time.Time
}

func New(log *slog.Logger, svc core.Sweeper, schedule string) (*Sweeper, error) {
	if svc == nil {
		return nil, core.ErrNilDependency
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Sweeper{
		log:  log,
		cron: cron.New(),
		svc:  svc,
		now:  time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("adding sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) run() {
	if n := s.svc.Sweep(s.now()); n > 0 {
		s.log.Debug("sweep finished", "closed", n)
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
