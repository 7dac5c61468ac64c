package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultQueueSize = 128
	DefaultWorkers   = 2
)

// Runner is one unit of background work. The returned details are logged.
type Runner func(ctx context.Context) (any, error)

type Service struct {
	queue     chan job
	workers   int
	schedules []schedule
	wg        sync.WaitGroup
}

type job struct {
	Type  string
	Owner string
	Run   Runner
}

type schedule struct {
	Type     string
	Interval time.Duration
	Run      Runner
}

func New(queueSize, workers int) *Service {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		queue:   make(chan job, queueSize),
		workers: workers,
	}
}

// Every registers run to be enqueued each interval once Start is called.
// Non-positive intervals are ignored.
func (s *Service) Every(jobType string, interval time.Duration, run Runner) {
	if interval <= 0 {
		return
	}
	s.schedules = append(s.schedules, schedule{Type: jobType, Interval: interval, Run: run})
}

func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx)
		}()
	}
	for _, sc := range s.schedules {
		s.wg.Add(1)
		go func(sc schedule) {
			defer s.wg.Done()
			s.schedule(ctx, sc)
		}(sc)
	}
}

// Wait blocks until workers and schedulers exit after the Start context ends.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue hands run to a worker. It reports false when the queue is full.
func (s *Service) Enqueue(jobType, owner string, run Runner) bool {
	select {
	case s.queue <- job{Type: jobType, Owner: owner, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType, "owner", owner)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, owner string, run Runner) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Owner: owner, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "owner", j.Owner, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	start := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job run",
		"jobType", j.Type,
		"owner", j.Owner,
		"status", status,
		"durationMs", time.Since(start).Milliseconds(),
		"details", details,
	)
	return details, err
}

func (s *Service) schedule(ctx context.Context, sc schedule) {
	ticker := time.NewTicker(sc.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sc.Type, "scheduler", sc.Run)
		}
	}
}
