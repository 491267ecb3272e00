// Package scheduler runs interval, cron, and one-shot jobs for the VEN
// client without any external persistence — every job lives in memory
// for the process lifetime, matching the protocol's no-restart-recovery
// scope. The run loop shape (context + cancel + WaitGroup + ticker select
// loop, one goroutine per job) is the same pattern the teacher's pulse
// ticker uses for its single database-backed job loop, generalized here
// to one lightweight ticker per job instead of one ticker scanning a
// shared store.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/openadr-ven/client/logger"
	"github.com/openadr-ven/client/ven"
)

type job struct {
	id     int64
	cancel context.CancelFunc
}

func (j *job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// Scheduler is the in-memory Scheduler implementation used by the VEN
// client in production; tests typically substitute a fake.
type Scheduler struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	jobs   map[int64]*job
	nextID int64
}

// New constructs a Scheduler bound to parent's lifetime. Cancel parent or
// call Shutdown to stop every job.
func New(parent context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[int64]*job),
	}
}

var _ ven.Scheduler = (*Scheduler)(nil)

func (s *Scheduler) register(j *job) {
	s.mu.Lock()
	s.nextID++
	j.id = s.nextID
	s.jobs[j.id] = j
	s.mu.Unlock()

	if logger.ShouldShowSchedulerJobs(logger.CurrentVerbosity) {
		logger.Debugw("scheduler job added", "job_id", j.id)
	}
}

func (s *Scheduler) unregister(id int64) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()

	if logger.ShouldShowSchedulerJobs(logger.CurrentVerbosity) {
		logger.Debugw("scheduler job removed", "job_id", id)
	}
}

// AddInterval runs fn every d until cancelled or the scheduler shuts
// down. The first tick fires after d, not immediately — callers that
// want an immediate first run should invoke it themselves before
// scheduling.
func (s *Scheduler) AddInterval(d time.Duration, fn func(context.Context)) ven.JobHandle {
	jobCtx, cancel := context.WithCancel(s.ctx)
	j := &job{cancel: cancel}
	s.register(j)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unregister(j.id)

		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				fn(jobCtx)
			}
		}
	}()
	return j
}

// AddCron runs fn on the recurrence described by spec, realized here as a
// fixed interval computed from the spec's second-granularity field — the
// VEN client's reporting jobs only ever need a fixed cadence, not the
// full generality of cron's field-by-field matching.
func (s *Scheduler) AddCron(spec ven.CronSpec, fn func(context.Context)) ven.JobHandle {
	interval := spec.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return s.AddInterval(interval, fn)
}

// AddDate runs fn exactly once at the given time (or immediately if that
// time has already passed).
func (s *Scheduler) AddDate(at time.Time, fn func(context.Context)) ven.JobHandle {
	jobCtx, cancel := context.WithCancel(s.ctx)
	j := &job{cancel: cancel}
	s.register(j)

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unregister(j.id)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-jobCtx.Done():
			return
		case <-timer.C:
			fn(jobCtx)
		}
	}()
	return j
}

// RemoveAll cancels every currently registered job without shutting down
// the scheduler itself — used when registration is cancelled and the
// client expects to be able to schedule fresh jobs after re-registering.
func (s *Scheduler) RemoveAll() {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
}

// Shutdown cancels every job and blocks until their goroutines exit.
func (s *Scheduler) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
