package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/secrypt/secrypt/internal/logging"
)

type fakeAttachmentCleaner struct {
	expiredCalls int32
	logCalls     int32
	expiredErr   error
	lastCutoff   time.Duration
}

func (f *fakeAttachmentCleaner) CleanupExpired(context.Context) (int64, error) {
	atomic.AddInt32(&f.expiredCalls, 1)
	if f.expiredErr != nil {
		return 0, f.expiredErr
	}
	return 2, nil
}

func (f *fakeAttachmentCleaner) CleanupAccessLogs(_ context.Context, retention time.Duration) (int64, error) {
	atomic.AddInt32(&f.logCalls, 1)
	f.lastCutoff = retention
	return 0, nil
}

type fakeReactionCleaner struct{ calls int32 }

func (f *fakeReactionCleaner) CleanupOrphaned(context.Context) (int64, error) {
	atomic.AddInt32(&f.calls, 1)
	return 1, nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSweep_RunsAllPasses(t *testing.T) {
	attachments := &fakeAttachmentCleaner{}
	reactions := &fakeReactionCleaner{}
	s := New(time.Minute, 24*time.Hour, attachments, reactions, testLogger())

	s.Sweep(context.Background())

	if attachments.expiredCalls != 1 || attachments.logCalls != 1 || reactions.calls != 1 {
		t.Fatalf("pass counts = %d/%d/%d, want 1/1/1",
			attachments.expiredCalls, attachments.logCalls, reactions.calls)
	}
	if attachments.lastCutoff != 24*time.Hour {
		t.Errorf("retention passed through = %v, want 24h", attachments.lastCutoff)
	}
}

func TestSweep_FailingPassDoesNotStopOthers(t *testing.T) {
	attachments := &fakeAttachmentCleaner{expiredErr: errors.New("bucket unreachable")}
	reactions := &fakeReactionCleaner{}
	s := New(time.Minute, 24*time.Hour, attachments, reactions, testLogger())

	s.Sweep(context.Background())

	if attachments.logCalls != 1 || reactions.calls != 1 {
		t.Fatalf("later passes must still run, got %d/%d",
			attachments.logCalls, reactions.calls)
	}
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	attachments := &fakeAttachmentCleaner{}
	reactions := &fakeReactionCleaner{}
	s := New(5*time.Millisecond, time.Hour, attachments, reactions, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&reactions.calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeps did not happen in time")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
