package schedsvc

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	logsvc "github.com/darasalabs/darasa/services/logger"
)

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()
	conf := &core.Config{}
	conf.Backfill.MaxAttempts = 3
	conf.Backfill.InitialDelay = time.Millisecond
	conf.Backfill.Workers = 2
	conf.Backfill.QueueSize = 8
	return NewScheduler(conf, logsvc.NewNopLogger())
}

func stopScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestScheduleAndRun(t *testing.T) {
	s := testScheduler(t)

	var (
		mu       sync.Mutex
		payloads []interface{}
	)
	done := make(chan struct{}, 1)
	s.Register("backfill", func(ctx context.Context, payload interface{}) error {
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	s.Start()
	defer stopScheduler(t, s)

	if err := s.Schedule("backfill", "lecture-42"); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 || payloads[0] != "lecture-42" {
		t.Errorf("got payloads %v, want [lecture-42]", payloads)
	}
}

func TestSchedule_unregisteredTask(t *testing.T) {
	s := testScheduler(t)

	err := s.Schedule("nope", nil)
	if err == nil {
		t.Fatal("Schedule() error = nil, want an error for an unknown task")
	}
	if !strings.Contains(err.Error(), "no handler registered") {
		t.Errorf("Schedule() error = %v", err)
	}
}

func TestSchedule_afterStop(t *testing.T) {
	s := testScheduler(t)
	s.Register("backfill", func(ctx context.Context, payload interface{}) error { return nil })
	s.Start()
	stopScheduler(t, s)

	if err := s.Schedule("backfill", nil); err == nil {
		t.Fatal("Schedule() error = nil, want an error after shutdown")
	}
}

func TestRetryableFailure_retriedUntilMaxAttempts(t *testing.T) {
	s := testScheduler(t)

	var (
		mu       sync.Mutex
		attempts int
	)
	s.Register("flaky", func(ctx context.Context, payload interface{}) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return core.NewRetryableError(errors.New("not ready yet"))
	})
	s.Start()
	defer stopScheduler(t, s)

	if err := s.Schedule("flaky", nil); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := attempts
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("got %d attempt(s), want 3", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	// no further deliveries after giving up
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("got %d attempt(s), want 3", attempts)
	}
}

func TestPermanentFailure_notRetried(t *testing.T) {
	s := testScheduler(t)

	var (
		mu       sync.Mutex
		attempts int
	)
	s.Register("broken", func(ctx context.Context, payload interface{}) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("bad payload")
	})
	s.Start()
	defer stopScheduler(t, s)

	if err := s.Schedule("broken", nil); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if attempts != 1 {
		t.Errorf("got %d attempt(s), want 1", attempts)
	}
}

func TestStop_drainsInFlightWork(t *testing.T) {
	s := testScheduler(t)

	started := make(chan struct{})
	finished := make(chan struct{})
	s.Register("slow", func(ctx context.Context, payload interface{}) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		close(finished)
		return nil
	})
	s.Start()

	if err := s.Schedule("slow", nil); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	<-started

	stopScheduler(t, s)
	select {
	case <-finished:
	default:
		t.Error("Stop() returned before the in-flight task finished")
	}
}
