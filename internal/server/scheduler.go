package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorhill/cronexpr"
)

const defaultTick = time.Minute

// Job is a named background task run on a cron schedule.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type scheduledJob struct {
	Job
	expr    *cronexpr.Expression
	next    time.Time
	running atomic.Bool
}

// Scheduler checks job schedules on a ticker. A job still running when it next
// comes due is skipped for that slot.
type Scheduler struct {
	jobs   []*scheduledJob
	tick   time.Duration
	logger *log.Logger
	now    func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTick sets how often schedules are checked.
func WithTick(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

func withClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler parses every job's cron spec. Standard five-field expressions and
// the @hourly/@daily/@weekly style macros are accepted.
func NewScheduler(jobs []Job, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		tick:   defaultTick,
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	start := s.now()
	for _, j := range jobs {
		expr, err := cronexpr.Parse(j.Spec)
		if err != nil {
			return nil, fmt.Errorf("job %s: parse cron %q: %w", j.Name, j.Spec, err)
		}
		s.jobs = append(s.jobs, &scheduledJob{Job: j, expr: expr, next: expr.Next(start)})
	}
	return s, nil
}

// Start runs the ticker loop until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	ticker := time.NewTicker(s.tick)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
	for _, j := range s.jobs {
		s.logger.Printf("job %s scheduled (%s), next run %s", j.Name, j.Spec, j.next.Format(time.RFC3339))
	}
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	for _, j := range s.jobs {
		if j.next.After(now) {
			continue
		}
		j.next = j.expr.Next(now)
		if !j.running.CompareAndSwap(false, true) {
			s.logger.Printf("job %s still running, skipped", j.Name)
			continue
		}
		s.wg.Add(1)
		go func(j *scheduledJob) {
			defer s.wg.Done()
			defer j.running.Store(false)
			start := time.Now()
			if err := j.Run(ctx); err != nil {
				s.logger.Printf("job %s failed after %s: %v", j.Name, time.Since(start), err)
				return
			}
			s.logger.Printf("job %s done in %s", j.Name, time.Since(start))
		}(j)
	}
}
