package heartbeat

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs fn every interval until the returned stop func is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func(), err error)
}

// fixedDelay schedules the next run exactly d after the previous one. The
// "@every" spec rounds the start down to the second, which can fire the
// first run up to a second early.
type fixedDelay struct {
	d time.Duration
}

func (s fixedDelay) Next(t time.Time) time.Time {
	return t.Add(s.d)
}

// CronScheduler runs interval jobs on robfig/cron. A run is never earlier
// than interval after the previous one; it may be later.
type CronScheduler struct{}

func NewCronScheduler() *CronScheduler {
	return &CronScheduler{}
}

func (s *CronScheduler) Every(interval time.Duration, fn func()) (func(), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("heartbeat interval must be > 0, got %s", interval)
	}
	if fn == nil {
		return nil, errors.New("heartbeat job is required")
	}

	logger := cron.PrintfLogger(log.Default())
	scheduler := cron.New(cron.WithChain(cron.Recover(logger)))
	scheduler.Schedule(fixedDelay{d: interval}, cron.FuncJob(fn))
	scheduler.Start()
	return func() {
		scheduler.Stop()
	}, nil
}
