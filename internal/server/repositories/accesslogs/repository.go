// Package accesslogs persists append-only chat.AccessLog audit rows.
package accesslogs

import (
	"context"
	"time"

	"github.com/secrypt/secrypt/internal/chat"
)

type Repository interface {
	Create(ctx context.Context, log *chat.AccessLog) error
	ListByAttachment(ctx context.Context, attachmentID string, limit int) ([]*chat.AccessLog, error)
	// SuspiciousActivity aggregates failed attempts per (ip, identity)
	// since the given instant, keeping groups with at least minAttempts.
	SuspiciousActivity(ctx context.Context, since time.Time, minAttempts int) ([]chat.SuspiciousActivity, error)
	// DeleteOlderThan purges audit rows created before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
