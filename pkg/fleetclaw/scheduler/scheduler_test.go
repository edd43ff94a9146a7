package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_InvokesRefresh(t *testing.T) {
	var calls atomic.Int64
	s := New(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, testLogger())

	s.run()
	s.run()

	if got := calls.Load(); got != 2 {
		t.Fatalf("refresh ran %d times, want 2", got)
	}
}

func TestRun_SkipsOverlappingSweeps(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64

	s := New(func(ctx context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}, testLogger())

	go s.run()
	<-started

	// A second sweep while the first is in flight must be a no-op.
	s.run()
	close(release)

	deadline := time.After(time.Second)
	for calls.Load() != 1 {
		select {
		case <-deadline:
			t.Fatalf("refresh ran %d times, want 1", calls.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := New(func(ctx context.Context) error { return nil }, testLogger())
	if err := s.Start("not a cron expression"); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
