package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterRejectsInvalidSpec(t *testing.T) {
	s := New("UTC")

	err := s.Register(Job{Name: "bad", Spec: "not a cron spec", Run: func(ctx context.Context) {}})
	if err == nil {
		t.Error("Register() accepted invalid cron expression")
	}

	err = s.Register(Job{Name: "good", Spec: "0 2 * * *", Run: func(ctx context.Context) {}})
	if err != nil {
		t.Errorf("Register() error = %v for valid expression", err)
	}
}

func TestInvalidTimezoneFallsBackToUTC(t *testing.T) {
	s := New("Not/AZone")
	if s == nil {
		t.Fatal("New() = nil for invalid timezone")
	}

	err := s.Register(Job{Name: "job", Spec: "@hourly", Run: func(ctx context.Context) {}})
	if err != nil {
		t.Errorf("Register() error = %v", err)
	}
}

func TestReentrancyGuardDropsOverlappingRuns(t *testing.T) {
	s := New("UTC")

	var starts atomic.Int32
	release := make(chan struct{})

	err := s.Register(Job{
		Name: "slow",
		Spec: "@every 10ms",
		Run: func(ctx context.Context) {
			starts.Add(1)
			<-release
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	s.Start()

	// Several triggers fire while the first run is still blocked; all of
	// them must be dropped.
	time.Sleep(150 * time.Millisecond)
	if got := starts.Load(); got != 1 {
		t.Errorf("concurrent starts = %d, want 1", got)
	}

	close(release)
	s.Stop()
}

func TestStopWaitsForInflightRun(t *testing.T) {
	s := New("UTC")

	var finished atomic.Bool
	err := s.Register(Job{
		Name: "brief",
		Spec: "@every 10ms",
		Run: func(ctx context.Context) {
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	s.Start()
	time.Sleep(15 * time.Millisecond) // let one run start
	s.Stop()

	if !finished.Load() {
		t.Error("Stop() returned before in-flight run finished")
	}
}
