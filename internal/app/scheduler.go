package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one periodic background job
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Scheduler runs background tasks on their own tickers
type Scheduler struct {
	tasks    []Task
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(logger *zap.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches every task; each runs once immediately and then on its interval
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Int("tasks", len(s.tasks)))

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}
}

// Stop signals all tasks and waits for the running ones to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	defer s.wg.Done()

	s.tick(ctx, task)

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, task)
		case <-s.stopChan:
			s.logger.Info("Task stopped", zap.String("task", task.Name))
			return
		case <-ctx.Done():
			s.logger.Info("Task cancelled", zap.String("task", task.Name))
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, task Task) {
	n, err := task.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("Background task failed", zap.String("task", task.Name), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("Background task done", zap.String("task", task.Name), zap.Int("processed", n))
	}
}
