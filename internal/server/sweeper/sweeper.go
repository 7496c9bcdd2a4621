// Package sweeper runs the periodic maintenance passes: expiring
// attachments, purging stale audit rows, and removing reactions orphaned by
// message deletion.
package sweeper

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/logging"
)

// AttachmentCleaner is the subset of the attachment service the sweep
// drives.
type AttachmentCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
	CleanupAccessLogs(ctx context.Context, retention time.Duration) (int64, error)
}

// ReactionCleaner is the subset of the reaction service the sweep drives.
type ReactionCleaner interface {
	CleanupOrphaned(ctx context.Context) (int64, error)
}

// Sweeper periodically runs the cleanup passes until its context is
// cancelled. Failures are logged and the next tick retries; one failing
// pass does not stop the others.
type Sweeper struct {
	interval    time.Duration
	retention   time.Duration
	attachments AttachmentCleaner
	reactions   ReactionCleaner
	logger      logging.Logger
}

func New(interval, retention time.Duration, attachments AttachmentCleaner, reactions ReactionCleaner, logger logging.Logger) *Sweeper {
	return &Sweeper{
		interval:    interval,
		retention:   retention,
		attachments: attachments,
		reactions:   reactions,
		logger:      logger,
	}
}

// Run blocks, sweeping once per interval, until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs all cleanup passes once.
func (s *Sweeper) Sweep(ctx context.Context) {
	if n, err := s.attachments.CleanupExpired(ctx); err != nil {
		s.logger.Error(ctx, "expired attachment sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Info(ctx, "expired attachments removed", "count", n)
	}

	if n, err := s.attachments.CleanupAccessLogs(ctx, s.retention); err != nil {
		s.logger.Error(ctx, "access log sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Info(ctx, "stale access logs purged", "count", n)
	}

	if n, err := s.reactions.CleanupOrphaned(ctx); err != nil {
		s.logger.Error(ctx, "orphaned reaction sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Info(ctx, "orphaned reactions removed", "count", n)
	}
}
