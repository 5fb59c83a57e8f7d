package schedsvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
)

// Handler processes one scheduled task. Returning a core.RetryableError
// requeues the task with backoff; any other error drops it.
type Handler func(ctx context.Context, payload interface{}) error

type task struct {
	name    string
	payload interface{}
	attempt int
}

// Scheduler is an in-process task queue backed by a worker pool.
// Tasks are lost on restart; handlers must tolerate redelivery.
type Scheduler struct {
	conf   core.BackfillConfig
	logger core.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	queue  chan task
	wg     sync.WaitGroup
	cancel context.CancelFunc
	closed chan struct{}
}

var _ core.TaskScheduler = (*Scheduler)(nil)

func NewScheduler(conf *core.Config, logger core.Logger) *Scheduler {
	return &Scheduler{
		conf:     conf.Backfill,
		logger:   logger,
		handlers: make(map[string]Handler),
		queue:    make(chan task, conf.Backfill.QueueSize),
		closed:   make(chan struct{}),
	}
}

// Register binds a handler to a task name. It must be called before Start.
func (s *Scheduler) Register(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

func (s *Scheduler) Schedule(name string, payload interface{}) error {
	s.mu.RLock()
	_, ok := s.handlers[name]
	s.mu.RUnlock()
	if !ok {
		return errors.Errorf("no handler registered for task %q", name)
	}

	select {
	case <-s.closed:
		return errors.New("scheduler is shut down")
	default:
	}

	select {
	case s.queue <- task{name: name, payload: payload, attempt: 1}:
		return nil
	default:
		return errors.Errorf("task queue is full, dropping %q", name)
	}
}

// Start launches the worker pool. It returns immediately.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for i := 0; i < s.conf.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-s.queue:
					s.run(ctx, t)
				}
			}
		}()
	}
}

// Stop drains in-flight work and rejects further scheduling. It returns
// once all workers exit or ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.closed)
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "stopping scheduler")
	}
}

func (s *Scheduler) run(ctx context.Context, t task) {
	s.mu.RLock()
	h := s.handlers[t.name]
	s.mu.RUnlock()

	err := h(ctx, t.payload)
	if err == nil {
		return
	}

	var rerr *core.RetryableError
	if cause, ok := errors.Cause(err).(*core.RetryableError); ok {
		rerr = cause
	} else {
		s.logger.Error(fmt.Sprintf("task %q failed permanently: %v", t.name, err), err)
		return
	}

	if t.attempt >= s.conf.MaxAttempts {
		s.logger.Error(fmt.Sprintf(
			"task %q gave up after %d attempt(s): %v", t.name, t.attempt, rerr.Err), rerr.Err)
		return
	}

	delay := rerr.After
	if delay == 0 {
		delay = s.delayFor(t.attempt)
	}
	s.logger.Info(fmt.Sprintf(
		"task %q attempt %d/%d failed, retrying in %s: %v",
		t.name, t.attempt, s.conf.MaxAttempts, delay, rerr.Err))

	t.attempt++
	s.requeue(ctx, t, delay)
}

func (s *Scheduler) requeue(ctx context.Context, t task, delay time.Duration) {
	s.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
		case s.queue <- t:
		}
	})
	go func() {
		<-ctx.Done()
		if timer.Stop() {
			s.wg.Done()
		}
	}()
}

// delayFor computes the exponential backoff delay for the given attempt.
func (s *Scheduler) delayFor(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.conf.InitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Minute
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
